package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId          string         `gorm:"type:varchar(255);not null;index"`
	Mode            string         `gorm:"type:varchar(64);not null"`
	VoiceName       string         `gorm:"type:varchar(64)"`
	StartedAt       time.Time      `gorm:"not null;index"`
	DurationSeconds int            `gorm:"not null"`
	Transcript      datatypes.JSON `gorm:"type:jsonb"`
	MetricsHistory  datatypes.JSON `gorm:"type:jsonb"`
	Report          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}
