package models

import "tixcore/src/types"

type User struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	UID       string `json:"uid,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `gorm:"default:'user'" json:"role,omitempty"`
	ActiveOrg uint   `json:"active_org,omitempty"`

	types.Timestamps
}
