package domain

import "time"

// Video видео из каталога, к которому привязываются ссылки
type Video struct {
	ID          int64      `gorm:"primaryKey;column:id" json:"-"`
	VideoID     string     `gorm:"column:video_id;size:255;not null;uniqueIndex" json:"video_id"`
	Title       string     `gorm:"column:title;size:500;not null" json:"title"`
	ViewCount   int64      `gorm:"column:view_count;not null;default:0" json:"view_count"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	IsActive    bool       `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName возвращает название таблицы для GORM
func (Video) TableName() string {
	return "videos"
}
