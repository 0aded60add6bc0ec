package service

import (
	"errors"
	"time"

	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/rindwa/rindwa_api/internal/token"
)

// Ошибки хранилища. Репозитории возвращают их, сервисы переводят в apperr.
var (
	ErrNotFound              = errors.New("record not found")
	ErrDuplicateVerification = errors.New("verification already recorded")
	ErrStatusConflict        = errors.New("incident status does not match")
	ErrDuplicateEmail        = errors.New("email already registered")
)

// Authorizer - политика доступа, см. пакет policy
type Authorizer interface {
	Authorize(actor *models.Actor, action policy.Action, res policy.Resource) error
	CategoriesFor(actor *models.Actor) []models.Category
}

// TokenIssuer выпускает и проверяет токены доступа
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
	Parse(tokenString string) (*token.Claims, error)
}

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
