package http

import (
	"UTMTrack-Backend/internal/repository"
	"UTMTrack-Backend/internal/service"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrorResponse структура ошибки
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SuccessResponse ответ операций без тела
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

var errEmptyBody = errors.New("request body is empty")

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}

// writeServiceError переводит ошибки сервисного слоя в HTTP-статусы
func writeServiceError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, ErrorResponse{Error: "Validation failed", Fields: verr.Fields}, http.StatusUnprocessableEntity)
	case errors.Is(err, repository.ErrLinkNotFound):
		writeError(w, "UTM link not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrVideoNotFound):
		writeError(w, "Video not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrSlugExists):
		writeError(w, "Pretty slug already exists", http.StatusConflict)
	case errors.Is(err, service.ErrNoActiveVideos):
		writeError(w, "No active videos found", http.StatusNotFound)
	default:
		log.Error("request failed", zap.String("operation", op), zap.Error(err))
		writeError(w, fmt.Sprintf("Failed to %s: %v", op, err), http.StatusInternalServerError)
	}
}

// decodeJSON читает тело запроса; пустое тело допустимо только при allowEmpty
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		if allowEmpty {
			return nil
		}
		return errEmptyBody
	}
	return err
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid link id %q", raw)
	}
	return id, nil
}

// queryInt читает целый query-параметр; отсутствующий параметр дает fallback
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func queryBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}

// daysParam читает окно отчета и проверяет границы 1..365
func daysParam(w http.ResponseWriter, r *http.Request, log *zap.Logger, name string, fallback int) (int, bool) {
	days, err := queryInt(r, name, fallback)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	if err := service.ValidateDaysBack(name, days); err != nil {
		writeServiceError(w, log, "validate window", err)
		return 0, false
	}
	return days, true
}
