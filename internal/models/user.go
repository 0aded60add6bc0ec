package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role - роль актора. У актора ровно одна роль.
type Role string

const (
	RoleCitizen      Role = "citizen"
	RolePolice       Role = "police"
	RoleFireDept     Role = "fire_dept"
	RoleMedicalStaff Role = "medical_staff"
	RoleModerator    Role = "moderator"
	RoleSuperAdmin   Role = "super_admin"
)

// ParseRole разбирает строку роли; "user" считается синонимом citizen.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "user" {
		return RoleCitizen, true
	}
	switch r {
	case RoleCitizen, RolePolice, RoleFireDept, RoleMedicalStaff, RoleModerator, RoleSuperAdmin:
		return r, true
	}
	return "", false
}

// IsResponder сообщает, относится ли роль к сотрудникам служб с ограничением по категориям
func (r Role) IsResponder() bool {
	return r == RolePolice || r == RoleFireDept || r == RoleMedicalStaff
}

// IsStaff - сотрудники, модераторы и администраторы
func (r Role) IsStaff() bool {
	return r.IsResponder() || r == RoleModerator || r == RoleSuperAdmin
}

// RequiresOrganization сообщает, должна ли роль быть привязана к организации
func (r Role) RequiresOrganization() bool {
	return r.IsResponder() || r == RoleModerator
}

type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone,omitempty"`
	Role           Role       `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Actor - аутентифицированный субъект запроса с текущей ролью.
// OrganizationTypes пуст, если организации нет или она неактивна.
type Actor struct {
	ID                uuid.UUID  `json:"id"`
	Role              Role       `json:"role"`
	OrganizationID    *uuid.UUID `json:"organization_id,omitempty"`
	OrganizationTypes []OrgType  `json:"organization_types,omitempty"`
}

// UserFilter - параметры выборки пользователей
type UserFilter struct {
	OrganizationID *uuid.UUID
	Page           int
	PageSize       int
}

// Registration - данные для создания учетной записи
type Registration struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// Session - выданный токен доступа
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// ProfileUpdate - изменяемые владельцем поля профиля
type ProfileUpdate struct {
	FullName string
	Phone    string
}

// RoleChange - административное изменение роли и организации
type RoleChange struct {
	Role           Role
	OrganizationID *uuid.UUID
}
