package models

import (
	"time"
	"tixcore/src/types"
)

// PartnerWebhookLogEntry records outbound partner webhook attempts. A row is
// created when a notification is enqueued and updated on every retry until
// it succeeds or the retry cap is reached.
type PartnerWebhookLogEntry struct {
	ID             uint        `gorm:"primarykey" json:"id"`
	PartnerID      uint        `gorm:"index" json:"partner_id"`
	EventType      string      `json:"event_type"`
	Payload        types.JSONB `gorm:"type:jsonb" json:"payload"`
	Success        bool        `gorm:"default:false" json:"success"`
	RetryCount     uint        `gorm:"default:0" json:"retry_count"`
	LastRetryAt    *time.Time  `json:"last_retry_at,omitempty"`
	ResponseStatus *int        `json:"response_status,omitempty"`
	LastError      *string     `json:"last_error,omitempty"`

	Partner Partner `json:"-"`

	types.Timestamps
}
