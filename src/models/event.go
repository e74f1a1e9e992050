package models

import (
	"time"
	"tixcore/src/types"
)

type Event struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title,omitempty"`
	Name        string            `json:"name,omitempty"`
	Location    string            `json:"location,omitempty"`
	DateTime    time.Time         `json:"date_time,omitempty"`
	Status      types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`
	OrganizerID uint              `json:"organizer,omitempty"`
	Price       int64             `json:"price"`

	// CurrentStock = TotalStock minus the quantities of completed
	// transactions. Decremented only by the conditional update in
	// common.DecrementStock, never below zero.
	TotalStock   uint `json:"total_stock"`
	CurrentStock uint `json:"current_stock"`

	Organizer User `gorm:"foreignKey:organizer_id" json:"-"`

	types.Timestamps
}
