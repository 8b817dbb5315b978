package domain

import (
	"math"
	"time"
)

const (
	// FunnelStepConversion шаг воронки для записанных конверсий
	FunnelStepConversion = "conversion"
	// UnknownSource источник неатрибутированных конверсий в разбивке
	UnknownSource = "unknown"
)

// ConversionEvent целевое действие пользователя после перехода по ссылке.
// Источник и видео копируются из ссылки на момент записи.
type ConversionEvent struct {
	ID            int64                  `gorm:"primaryKey;column:id" json:"id"`
	OccurredAt    time.Time              `gorm:"column:date;not null;index" json:"date"`
	EventType     string                 `gorm:"column:event_type;size:100;not null;index" json:"event_type"`
	EventValue    float64                `gorm:"column:event_value;not null;default:0" json:"event_value"`
	LinkID        *int64                 `gorm:"column:utm_link_id;index" json:"utm_link_id,omitempty"`
	Source        *string                `gorm:"column:youtube_source;size:100" json:"youtube_source,omitempty"`
	SourceVideoID *string                `gorm:"column:youtube_source_id;size:100" json:"youtube_source_id,omitempty"`
	UserID        *string                `gorm:"column:user_id;size:100" json:"user_id,omitempty"`
	SessionID     *string                `gorm:"column:session_id;size:100" json:"session_id,omitempty"`
	FunnelStep    string                 `gorm:"column:funnel_step;size:100" json:"funnel_step"`
	Properties    map[string]interface{} `gorm:"column:conversion_data;type:text;serializer:json" json:"properties,omitempty"`
	DataSource    string                 `gorm:"column:data_source;size:50" json:"data_source"`
}

// TableName возвращает название таблицы для GORM
func (ConversionEvent) TableName() string {
	return "conversion_events"
}

// Attribute привязывает конверсию к ссылке
func (c *ConversionEvent) Attribute(link *TrackingLink) {
	id := link.ID
	c.LinkID = &id
	c.Source = StringPtr(link.UTM().Source)
	c.SourceVideoID = StringPtr(link.VideoID)
}

// SourceName источник для разбивки отчета
func (c *ConversionEvent) SourceName() string {
	if c.Source != nil && *c.Source != "" {
		return *c.Source
	}
	return UnknownSource
}

// ConversionFilter параметры выборки конверсий
type ConversionFilter struct {
	EventType string
	Since     time.Time
	Limit     int
}

// ConversionTypeStats агрегат по типу события
type ConversionTypeStats struct {
	EventType  string  `json:"event_type"`
	Count      int64   `json:"count"`
	TotalValue float64 `json:"total_value"`
	AvgValue   float64 `json:"avg_value"`
}

// ConversionSourceStats агрегат по источнику трафика
type ConversionSourceStats struct {
	Source     string  `json:"source"`
	Count      int64   `json:"count"`
	TotalValue float64 `json:"total_value"`
}

// ConversionReport сводка конверсий за окно
type ConversionReport struct {
	PeriodDays       int                     `json:"analysis_period_days"`
	TotalConversions int64                   `json:"total_conversions"`
	TotalValue       float64                 `json:"total_value"`
	AverageValue     float64                 `json:"average_value"`
	ByType           []ConversionTypeStats   `json:"conversion_types"`
	BySource         []ConversionSourceStats `json:"source_breakdown"`
}

// NewConversionReport считает итоги по разбивке типов
func NewConversionReport(days int, byType []ConversionTypeStats, bySource []ConversionSourceStats) *ConversionReport {
	report := &ConversionReport{PeriodDays: days, ByType: byType, BySource: bySource}
	for i := range byType {
		report.TotalConversions += byType[i].Count
		report.TotalValue += byType[i].TotalValue
	}
	if report.TotalConversions > 0 {
		report.AverageValue = round2(report.TotalValue / float64(report.TotalConversions))
	}
	report.TotalValue = round2(report.TotalValue)
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
