package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// TrackingType стратегия редиректа для ссылки
type TrackingType string

const (
	TrackingServerRedirect TrackingType = "server_redirect"
	TrackingDirectPostHog  TrackingType = "direct_posthog"
	TrackingDirectGA4      TrackingType = "direct_ga4"
)

// TrackingTypes закрытый список допустимых стратегий
var TrackingTypes = []TrackingType{TrackingServerRedirect, TrackingDirectPostHog, TrackingDirectGA4}

// Valid сообщает, входит ли значение в закрытый список
func (t TrackingType) Valid() bool {
	switch t {
	case TrackingServerRedirect, TrackingDirectPostHog, TrackingDirectGA4:
		return true
	}
	return false
}

// IsDirect true для стратегий, где UTM-параметры встраиваются на стороне клиента
func (t TrackingType) IsDirect() bool {
	return t == TrackingDirectPostHog || t == TrackingDirectGA4
}

// UTMParams набор UTM-параметров ссылки
type UTMParams struct {
	Source   string
	Medium   string
	Campaign string
	Content  string
	Term     string
}

// Values возвращает непустые параметры в виде query-значений
func (p UTMParams) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("utm_source", p.Source)
	set("utm_medium", p.Medium)
	set("utm_campaign", p.Campaign)
	set("utm_content", p.Content)
	set("utm_term", p.Term)
	return v
}

// BuildTrackingURL собирает адрес назначения с UTM-параметрами. Существующие
// query-параметры сохраняются, одноименные UTM-ключи их перезаписывают.
func BuildTrackingURL(destination string, params UTMParams) (string, error) {
	u, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination url: %w", err)
	}

	query := u.Query()
	for key, values := range params.Values() {
		query[key] = values
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// TrackingLink представляет UTM-ссылку, привязанную к видео
type TrackingLink struct {
	ID                 int64        `gorm:"primaryKey;column:id" json:"id"`
	VideoID            string       `gorm:"column:video_id;size:255;not null;index:idx_utm_video_active,priority:1" json:"video_id"`
	DestinationURL     string       `gorm:"column:destination_url;type:text;not null" json:"destination_url"`
	UTMSource          string       `gorm:"column:utm_source;size:100;not null;default:youtube" json:"utm_source"`
	UTMMedium          string       `gorm:"column:utm_medium;size:100;not null;default:video" json:"utm_medium"`
	UTMCampaign        *string      `gorm:"column:utm_campaign;size:255" json:"utm_campaign,omitempty"`
	UTMContent         *string      `gorm:"column:utm_content;size:255" json:"utm_content,omitempty"`
	UTMTerm            *string      `gorm:"column:utm_term;size:255" json:"utm_term,omitempty"`
	TrackingURL        string       `gorm:"column:tracking_url;type:text;not null" json:"tracking_url"`
	DirectURL          *string      `gorm:"column:direct_url;type:text" json:"direct_url,omitempty"`
	PrettySlug         *string      `gorm:"column:pretty_slug;size:100;uniqueIndex" json:"pretty_slug,omitempty"`
	TrackingType       TrackingType `gorm:"column:tracking_type;size:20;not null;default:server_redirect" json:"tracking_type"`
	IsActive           bool         `gorm:"column:is_active;not null;index:idx_utm_video_active,priority:2" json:"is_active"`
	ForwardingEnabled  bool         `gorm:"column:forwarding_enabled;not null" json:"forwarding_enabled"`
	ExternalEvents     int64        `gorm:"column:external_events;not null;default:0" json:"external_events"`
	ExternalUsers      int64        `gorm:"column:external_users;not null;default:0" json:"external_users"`
	ExternalSessions   int64        `gorm:"column:external_sessions;not null;default:0" json:"external_sessions"`
	ExternalLastSyncAt *time.Time   `gorm:"column:external_last_sync_at" json:"external_last_sync_at,omitempty"`
	CreatedAt          time.Time    `gorm:"column:created_at;autoCreateTime;index:idx_utm_created" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Clicks []ClickEvent `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (TrackingLink) TableName() string {
	return "utm_links"
}

// UTM собирает UTM-параметры ссылки
func (l *TrackingLink) UTM() UTMParams {
	return UTMParams{
		Source:   l.UTMSource,
		Medium:   l.UTMMedium,
		Campaign: deref(l.UTMCampaign),
		Content:  deref(l.UTMContent),
		Term:     deref(l.UTMTerm),
	}
}

// RegenerateURLs пересчитывает tracking_url и direct_url из текущих полей.
// Должен вызываться после любого изменения UTM-параметров, destination или стратегии.
func (l *TrackingLink) RegenerateURLs() error {
	trackingURL, err := BuildTrackingURL(l.DestinationURL, l.UTM())
	if err != nil {
		return err
	}
	l.TrackingURL = trackingURL

	if l.TrackingType.IsDirect() {
		direct := trackingURL
		l.DirectURL = &direct
	} else {
		l.DirectURL = nil
	}
	return nil
}

// RedirectTarget выбирает адрес редиректа по стратегии ссылки.
// Неизвестная стратегия обрабатывается как server_redirect.
func (l *TrackingLink) RedirectTarget() string {
	if !l.TrackingType.IsDirect() {
		return l.DestinationURL
	}
	if l.DirectURL != nil && *l.DirectURL != "" {
		return *l.DirectURL
	}
	if l.TrackingURL != "" {
		return l.TrackingURL
	}
	return l.DestinationURL
}

// ShortPath относительный путь короткой ссылки
func (l *TrackingLink) ShortPath() string {
	if l.PrettySlug != nil && *l.PrettySlug != "" {
		return "/api/v1/go/" + *l.PrettySlug
	}
	return "/api/v1/r/" + strconv.FormatInt(l.ID, 10)
}

// ShareableURL адрес, который публикуется в описании видео: для direct-стратегий
// это ссылка с UTM напрямую на destination, иначе короткая ссылка сервиса.
func (l *TrackingLink) ShareableURL(baseURL string) string {
	if l.TrackingType.IsDirect() {
		if l.DirectURL != nil && *l.DirectURL != "" {
			return *l.DirectURL
		}
		return l.TrackingURL
	}
	return baseURL + l.ShortPath()
}

// LinkStats ссылка со статистикой кликов
type LinkStats struct {
	TrackingLink
	ClickCount    int64      `gorm:"column:click_count" json:"click_count"`
	LastClickedAt *time.Time `gorm:"column:last_clicked_at" json:"last_clicked_at,omitempty"`
}

// LinkFilter параметры выборки ссылок
type LinkFilter struct {
	VideoID    string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ExternalStats метрики ссылки, полученные от внешней аналитики
type ExternalStats struct {
	Events   int64
	Users    int64
	Sessions int64
	SyncedAt time.Time
}

// ForwardingSummary сводка по пересылке событий во внешнюю аналитику
type ForwardingSummary struct {
	ForwardingLinks int64      `json:"forwarding_links"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr возвращает указатель на непустую строку, nil для пустой
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
