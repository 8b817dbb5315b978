package memory

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
)

// txStorage представление MemStorage внутри WithinTx. Чтение идет напрямую,
// каждая запись добавляет шаг отмены в журнал.
type txStorage struct {
	*MemStorage
	journal []undoFunc
}

func (t *txStorage) record(op func() (undoFunc, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	undo, err := op()
	if err != nil {
		return err
	}
	t.journal = append(t.journal, undo)
	return nil
}

// rollback применяет шаги отмены в обратном порядке
func (t *txStorage) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.journal) - 1; i >= 0; i-- {
		t.journal[i](t.MemStorage)
	}
	t.journal = nil
}

func (t *txStorage) CreateLink(_ context.Context, link *domain.TrackingLink) error {
	return t.record(func() (undoFunc, error) { return t.createLink(link) })
}

func (t *txStorage) UpdateLink(_ context.Context, link *domain.TrackingLink) error {
	return t.record(func() (undoFunc, error) { return t.updateLink(link) })
}

func (t *txStorage) DeleteLink(_ context.Context, id int64) error {
	return t.record(func() (undoFunc, error) { return t.deleteLink(id) })
}

func (t *txStorage) RecordClick(_ context.Context, click *domain.ClickEvent) error {
	return t.record(func() (undoFunc, error) { return t.recordClick(click) })
}

func (t *txStorage) UpsertVideo(_ context.Context, video *domain.Video) error {
	return t.record(func() (undoFunc, error) { return t.upsertVideo(video) })
}

func (t *txStorage) UpdateExternalStats(_ context.Context, linkID int64, stats domain.ExternalStats) error {
	return t.record(func() (undoFunc, error) { return t.updateExternalStats(linkID, stats) })
}

func (t *txStorage) CreateConversion(_ context.Context, conv *domain.ConversionEvent) error {
	return t.record(func() (undoFunc, error) { return t.createConversion(conv) })
}

// WithinTx во вложенном вызове пишет в тот же журнал
func (t *txStorage) WithinTx(_ context.Context, fn func(tx repository.Storage) error) error {
	return fn(t)
}
