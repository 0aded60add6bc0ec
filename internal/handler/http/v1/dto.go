package v1

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// RegisterRequest DTO для регистрации
// @Description DTO для регистрации гражданина
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// LoginRequest DTO для входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse DTO с выданным токеном
type SessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserResponse `json:"user"`
}

// LocationDTO - местоположение инцидента
type LocationDTO struct {
	Address   string   `json:"address,omitempty" validate:"omitempty,max=500"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	Title       string       `json:"title" validate:"required,max=255"`
	Description string       `json:"description" validate:"required"`
	Category    string       `json:"category" validate:"required,oneof=fire medical accident security"`
	Location    *LocationDTO `json:"location,omitempty"`
	MediaURLs   []string     `json:"media_urls,omitempty" validate:"omitempty,max=10,dive,url"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                uuid.UUID    `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Category          string       `json:"category"`
	Status            string       `json:"status"`
	ReporterID        uuid.UUID    `json:"reporter_id"`
	Location          *LocationDTO `json:"location,omitempty"`
	MediaURLs         []string     `json:"media_urls,omitempty"`
	VerificationCount int          `json:"verification_count"`
	VerifiedBy        *uuid.UUID   `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time   `json:"verified_at,omitempty"`
	ResolvedBy        *uuid.UUID   `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// VerificationResponse - запись подтверждения
type VerificationResponse struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// VerifyResponse DTO для ответа на подтверждение инцидента
type VerifyResponse struct {
	Incident      *IncidentResponse     `json:"incident"`
	Verification  *VerificationResponse `json:"verification"`
	StatusChanged bool                  `json:"status_changed"`
}

// StatsResponse DTO для ответа со статистикой
// @Description Количество инцидентов по статусам
type StatsResponse struct {
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone,omitempty"`
	Role           string     `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UpdateProfileRequest DTO для изменения своего профиля
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// ChangeRoleRequest DTO для изменения роли пользователя.
// Значение "user" принимается как синоним citizen.
type ChangeRoleRequest struct {
	Role           string     `json:"role" validate:"required"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

type OrganizationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Types     []string  `json:"types"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateOrganizationRequest DTO для создания организации
type CreateOrganizationRequest struct {
	Name  string   `json:"name" validate:"required,max=255"`
	Types []string `json:"types" validate:"required,min=1,dive,oneof=police fire medical other"`
}

// UpdateOrganizationRequest DTO для частичного изменения организации
type UpdateOrganizationRequest struct {
	Name   *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Types  []string `json:"types,omitempty" validate:"omitempty,min=1,dive,oneof=police fire medical other"`
	Active *bool    `json:"active,omitempty"`
}

type ContactResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Relationship string    `json:"relationship"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactRequest DTO для создания и изменения экстренного контакта
type ContactRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Phone        string `json:"phone" validate:"required,max=32"`
	Relationship string `json:"relationship" validate:"required,max=64"`
	IsPrimary    bool   `json:"is_primary"`
}
