package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/rindwa/rindwa_api/internal/token"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=auth.go -destination=mocks/auth_mock.go -package=mocks

const minPasswordLength = 8

// UserRepository определяет контракт для работы с учетными записями
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List с PageSize <= 0 возвращает всех подходящих пользователей
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role, organizationID *uuid.UUID) (*models.User, error)
}

// OrganizationRepository определяет контракт для работы с организациями
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Organization, error)
	Update(ctx context.Context, id uuid.UUID, update models.OrganizationUpdate) (*models.Organization, error)
}

// ActorCache хранит разрешенных акторов с коротким TTL.
// GetActor возвращает (nil, nil) при промахе.
type ActorCache interface {
	GetActor(ctx context.Context, id uuid.UUID) (*models.Actor, error)
	SetActor(ctx context.Context, actor *models.Actor) error
	InvalidateActor(ctx context.Context, id uuid.UUID) error
}

// AuthService отвечает за регистрацию, вход и разрешение актора по токену
type AuthService interface {
	Register(ctx context.Context, reg models.Registration) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	// Authenticate возвращает актора с текущей ролью из хранилища, а не из токена.
	Authenticate(ctx context.Context, accessToken string) (*models.Actor, error)
}

type authService struct {
	users    UserRepository
	orgs     OrganizationRepository
	cache    ActorCache
	tokens   TokenIssuer
	policy   Authorizer
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewAuthService(users UserRepository, orgs OrganizationRepository, cache ActorCache, tokens TokenIssuer, authz Authorizer, logger *logrus.Logger) AuthService {
	return &authService{
		users:    users,
		orgs:     orgs,
		cache:    cache,
		tokens:   tokens,
		policy:   authz,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register создает учетную запись гражданина и выдает токен
func (s *authService) Register(ctx context.Context, reg models.Registration) (*models.Session, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.FullName = strings.TrimSpace(reg.FullName)
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Register",
		"email":   reg.Email,
	})
	log.Info("Attempting to register a new account")

	if err := s.policy.Authorize(nil, policy.ActionCreate, policy.Resource{Kind: policy.ResourceAccount}); err != nil {
		return nil, err
	}
	if err := s.validate.Var(reg.Email, "required,email"); err != nil {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(reg.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	if reg.FullName == "" {
		return nil, apperr.Validation("full name is required")
	}

	hash, err := token.HashPassword(reg.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		return nil, apperr.Internal(err, "could not register account")
	}

	user := &models.User{
		Email:        reg.Email,
		PasswordHash: hash,
		FullName:     reg.FullName,
		Phone:        strings.TrimSpace(reg.Phone),
		Role:         models.RoleCitizen,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			log.Warn("Email already registered")
			return nil, apperr.Validation("email is already registered")
		}
		log.WithError(err).Error("Failed to create user in repository")
		return nil, apperr.Internal(err, "could not register account")
	}

	log.WithField("user_id", user.ID).Info("Account registered successfully")
	return s.issue(log, user)
}

// Login проверяет пароль и выдает токен
func (s *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Login",
		"email":   email,
	})

	if err := s.policy.Authorize(nil, policy.ActionCreate, policy.Resource{Kind: policy.ResourceSession}); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("Login with unknown email")
			return nil, apperr.Unauthenticated("invalid email or password")
		}
		log.WithError(err).Error("Failed to load user by email")
		return nil, apperr.Internal(err, "could not log in")
	}
	if !token.CheckPassword(user.PasswordHash, password) {
		log.Warn("Login with wrong password")
		return nil, apperr.Unauthenticated("invalid email or password")
	}

	log.WithField("user_id", user.ID).Info("User logged in")
	return s.issue(log, user)
}

func (s *authService) issue(log *logrus.Entry, user *models.User) (*models.Session, error) {
	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		log.WithError(err).Error("Failed to issue access token")
		return nil, apperr.Internal(err, "could not issue token")
	}
	return &models.Session{Token: accessToken, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate разбирает токен и загружает актора с текущей ролью и организацией
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.Actor, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, apperr.Unauthenticated("token has expired")
		}
		return nil, apperr.Unauthenticated("invalid token")
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Authenticate",
		"user_id": claims.UserID,
	})

	cached, err := s.cache.GetActor(ctx, claims.UserID)
	if err != nil {
		log.WithError(err).Warn("Failed to read actor cache")
	}
	if cached != nil {
		return cached, nil
	}

	actor, err := resolveActor(ctx, s.users, s.orgs, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("Token subject no longer exists")
			return nil, apperr.Unauthenticated("account no longer exists")
		}
		log.WithError(err).Error("Failed to resolve actor")
		return nil, apperr.Internal(err, "could not authenticate")
	}

	if err := s.cache.SetActor(ctx, actor); err != nil {
		log.WithError(err).Warn("Failed to cache actor")
	}
	return actor, nil
}

// resolveActor собирает актора из пользователя и его организации.
// Неактивная или удаленная организация не дает типов.
func resolveActor(ctx context.Context, users UserRepository, orgs OrganizationRepository, id uuid.UUID) (*models.Actor, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	actor := &models.Actor{ID: user.ID, Role: user.Role, OrganizationID: user.OrganizationID}
	if user.OrganizationID == nil {
		return actor, nil
	}

	org, err := orgs.GetByID(ctx, *user.OrganizationID)
	switch {
	case errors.Is(err, ErrNotFound):
		return actor, nil
	case err != nil:
		return nil, err
	}
	if org.Active {
		actor.OrganizationTypes = org.Types
	}
	return actor, nil
}
