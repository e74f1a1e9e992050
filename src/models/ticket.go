package models

import (
	"time"
	"tixcore/src/types"

	"github.com/google/uuid"
)

type Ticket struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	TransactionID uuid.UUID  `gorm:"type:uuid" json:"transaction_id"`
	EventID       uint       `json:"event_id"`
	HolderID      uint       `json:"holder_id"`
	// UniqueCode carries a storage-level unique constraint so a racing
	// double-issue fails loudly instead of duplicating silently.
	UniqueCode string             `gorm:"uniqueIndex" json:"code"`
	Status     types.TicketStatus `gorm:"default:'active'" json:"status"`
	ScannedAt  *time.Time         `json:"scanned_at,omitempty"`
	ScannedBy  *uint              `json:"scanned_by,omitempty"`

	Transaction Transaction `json:"-"`
	Event       Event       `json:"event,omitempty"`
	Holder      User        `gorm:"foreignKey:holder_id" json:"-"`

	types.Timestamps
}
