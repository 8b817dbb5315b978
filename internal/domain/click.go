package domain

import (
	"time"
)

// ClickEvent представляет клик по UTM-ссылке. Создается один раз и не изменяется.
type ClickEvent struct {
	ID         int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID     int64     `gorm:"column:utm_link_id;not null;index:idx_click_link_time,priority:1" json:"link_id"`
	ClickedAt  time.Time `gorm:"column:clicked_at;not null;index:idx_click_link_time,priority:2" json:"clicked_at"`
	UserAgent  *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	IPAddress  *string   `gorm:"column:ip_address;size:45" json:"ip_address,omitempty"`
	Referrer   *string   `gorm:"column:referrer;type:text" json:"referrer,omitempty"`
	DeviceType *string   `gorm:"column:device_type;size:10" json:"device_type,omitempty"` // 'desktop', 'mobile', 'tablet', 'bot'
	Browser    *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS         *string   `gorm:"column:os;size:50" json:"os,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (ClickEvent) TableName() string {
	return "link_clicks"
}

// GetDeviceType возвращает тип устройства или "unknown"
func (c *ClickEvent) GetDeviceType() string {
	if c.DeviceType != nil {
		return *c.DeviceType
	}
	return "unknown"
}

// ClickMetadata метаданные клика: явно переданные клиентом или извлеченные из запроса
type ClickMetadata struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// Merge объединяет явные и извлеченные метаданные по полям.
// Явное значение важнее, извлеченное заполняет пропуски.
func (m ClickMetadata) Merge(inferred ClickMetadata) ClickMetadata {
	pick := func(explicit, fallback string) string {
		if explicit != "" {
			return explicit
		}
		return fallback
	}
	return ClickMetadata{
		UserAgent: pick(m.UserAgent, inferred.UserAgent),
		IPAddress: pick(m.IPAddress, inferred.IPAddress),
		Referrer:  pick(m.Referrer, inferred.Referrer),
	}
}

// NewClickEvent собирает событие клика из метаданных
func NewClickEvent(linkID int64, meta ClickMetadata, at time.Time) *ClickEvent {
	return &ClickEvent{
		LinkID:    linkID,
		ClickedAt: at,
		UserAgent: StringPtr(meta.UserAgent),
		IPAddress: StringPtr(meta.IPAddress),
		Referrer:  StringPtr(meta.Referrer),
	}
}
