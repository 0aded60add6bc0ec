package models

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyContact принадлежит ровно одному актору.
// У актора не более одного основного контакта.
type EmergencyContact struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Relationship string    `json:"relationship"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
