package models

import "tixcore/src/types"

// WebhookLogEntry is the append-only audit trail of inbound gateway calls.
// The raw payload is written before any processing so the trail survives a
// crash mid-pipeline. Rows are never deleted; only the processed flag and
// error message are updated.
type WebhookLogEntry struct {
	ID           uint    `gorm:"primarykey" json:"id"`
	OrderID      string  `gorm:"index" json:"order_id"`
	RawPayload   string  `json:"raw_payload"`
	Processed    bool    `gorm:"default:false" json:"processed"`
	ErrorMessage *string `json:"error_message,omitempty"`

	types.Timestamps
}
