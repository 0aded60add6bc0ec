package models

import (
	"time"

	"github.com/google/uuid"
)

// Category - категория инцидента
type Category string

const (
	CategoryFire     Category = "fire"
	CategoryMedical  Category = "medical"
	CategoryAccident Category = "accident"
	CategorySecurity Category = "security"
)

// Categories перечисляет все допустимые категории
var Categories = []Category{CategoryFire, CategoryMedical, CategoryAccident, CategorySecurity}

func (c Category) Valid() bool {
	switch c {
	case CategoryFire, CategoryMedical, CategoryAccident, CategorySecurity:
		return true
	}
	return false
}

// Status - состояние инцидента в жизненном цикле
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusResolved Status = "resolved"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo сообщает, существует ли переход s -> next.
// Допустимы только pending -> verified и verified -> resolved.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusVerified
	case StatusVerified:
		return next == StatusResolved
	}
	return false
}

// Location - необязательное местоположение инцидента
type Location struct {
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (l *Location) IsZero() bool {
	return l == nil || (l.Address == "" && l.Latitude == nil && l.Longitude == nil)
}

type Incident struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          Category   `json:"category"`
	Status            Status     `json:"status"`
	ReporterID        uuid.UUID  `json:"reporter_id"`
	Location          *Location  `json:"location,omitempty"`
	MediaURLs         []string   `json:"media_urls,omitempty"`
	VerificationCount int        `json:"verification_count"`
	VerifiedBy        *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	ResolvedBy        *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IncidentView задает срез списка инцидентов
type IncidentView string

const (
	ViewAll          IncidentView = "all"
	ViewOrganization IncidentView = "organization"
	ViewMine         IncidentView = "mine"
)

// IncidentFilter - параметры выборки списка инцидентов.
// Пустые срезы означают отсутствие ограничения.
type IncidentFilter struct {
	Statuses   []Status
	Categories []Category
	ReporterID *uuid.UUID
	Page       int
	PageSize   int
}

// IncidentStats - количество инцидентов по статусам
type IncidentStats struct {
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

// IncidentQuery - параметры списка инцидентов, как их передает клиент
type IncidentQuery struct {
	Status   Status
	Category Category
	View     IncidentView
	Page     int
	PageSize int
}
