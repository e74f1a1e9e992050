package models

import "tixcore/src/types"

// Partner is a downstream system subscribed to outbound webhooks.
type Partner struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Name       string `json:"name"`
	WebhookURL string `json:"webhook_url"`
	// Secret, when set, is the shared key for the HMAC signature header.
	Secret string `json:"-"`
	Active bool   `gorm:"default:true" json:"active"`

	types.Timestamps
}
