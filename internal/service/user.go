package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=user.go -destination=mocks/user_mock.go -package=mocks

// UserService - профиль и администрирование пользователей
type UserService interface {
	GetProfile(ctx context.Context, actor *models.Actor) (*models.User, error)
	UpdateProfile(ctx context.Context, actor *models.Actor, update models.ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context, actor *models.Actor, filter models.UserFilter) ([]*models.User, error)
	ChangeRole(ctx context.Context, actor *models.Actor, targetID uuid.UUID, change models.RoleChange) (*models.User, error)
}

type userService struct {
	users  UserRepository
	orgs   OrganizationRepository
	cache  ActorCache
	policy Authorizer
	logger *logrus.Logger
}

func NewUserService(users UserRepository, orgs OrganizationRepository, cache ActorCache, authz Authorizer, logger *logrus.Logger) UserService {
	return &userService{
		users:  users,
		orgs:   orgs,
		cache:  cache,
		policy: authz,
		logger: logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, actor *models.Actor) (*models.User, error) {
	if err := s.authorizeProfile(actor); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", actor.ID)
		}
		return nil, apperr.Internal(err, "could not load profile")
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor *models.Actor, update models.ProfileUpdate) (*models.User, error) {
	if err := s.authorizeProfile(actor); err != nil {
		return nil, err
	}
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "UpdateProfile",
		"user_id": actor.ID,
	})

	update.FullName = strings.TrimSpace(update.FullName)
	update.Phone = strings.TrimSpace(update.Phone)
	if update.FullName == "" {
		return nil, apperr.Validation("full name is required")
	}

	user, err := s.users.UpdateProfile(ctx, actor.ID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", actor.ID)
		}
		log.WithError(err).Error("Failed to update profile")
		return nil, apperr.Internal(err, "could not update profile")
	}

	log.Info("Profile updated")
	return user, nil
}

func (s *userService) authorizeProfile(actor *models.Actor) error {
	res := policy.Resource{Kind: policy.ResourceProfile}
	if actor != nil {
		res.OwnerID = actor.ID
	}
	return s.policy.Authorize(actor, policy.ActionManage, res)
}

// ListUsers возвращает пользователей. Без фильтра модератор видит только свою организацию.
func (s *userService) ListUsers(ctx context.Context, actor *models.Actor, filter models.UserFilter) ([]*models.User, error) {
	if actor != nil && filter.OrganizationID == nil && actor.Role != models.RoleSuperAdmin {
		filter.OrganizationID = actor.OrganizationID
	}
	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceUser, OrganizationID: filter.OrganizationID}); err != nil {
		return nil, err
	}

	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	users, err := s.users.List(ctx, filter)
	if err != nil {
		s.logger.WithError(err).WithField("method", "ListUsers").Error("Failed to list users")
		return nil, apperr.Internal(err, "could not list users")
	}
	return users, nil
}

// ChangeRole меняет роль и организацию пользователя.
// Новая роль действует со следующего запроса целевого пользователя.
func (s *userService) ChangeRole(ctx context.Context, actor *models.Actor, targetID uuid.UUID, change models.RoleChange) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "user",
		"method":    "ChangeRole",
		"target_id": targetID,
	})

	if actor == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	role, ok := models.ParseRole(string(change.Role))
	if !ok {
		return nil, apperr.Validation("unknown role %q", change.Role)
	}
	log = log.WithField("role", role)
	log.Info("Attempting to change user role")
	if targetID == actor.ID {
		log.Warn("Actor attempted to change own role")
		return nil, apperr.Forbidden("you cannot change your own role")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", targetID)
		}
		return nil, apperr.Internal(err, "could not load user")
	}

	scopeOrg := target.OrganizationID
	if scopeOrg == nil {
		scopeOrg = change.OrganizationID
	}
	if err := s.policy.Authorize(actor, policy.ActionManage, policy.Resource{Kind: policy.ResourceUser, OrganizationID: scopeOrg}); err != nil {
		log.WithError(err).Warn("Role change denied by policy")
		return nil, err
	}
	if change.OrganizationID != nil && !sameOrg(change.OrganizationID, target.OrganizationID) {
		if err := s.policy.Authorize(actor, policy.ActionManage, policy.Resource{Kind: policy.ResourceUser, OrganizationID: change.OrganizationID}); err != nil {
			log.WithError(err).Warn("Organization reassignment denied by policy")
			return nil, err
		}
	}
	if isPrivileged(role) || isPrivileged(target.Role) {
		if err := s.policy.Authorize(actor, policy.ActionManage, policy.Resource{Kind: policy.ResourcePrivilegedRole}); err != nil {
			log.WithError(err).Warn("Privileged role change denied by policy")
			return nil, err
		}
	}

	var orgID *uuid.UUID
	if role.RequiresOrganization() {
		orgID = change.OrganizationID
		if orgID == nil {
			orgID = target.OrganizationID
		}
		if orgID == nil {
			return nil, apperr.Validation("role %s requires an organization", role)
		}
		if _, err := s.orgs.GetByID(ctx, *orgID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, apperr.Validation("organization %s does not exist", *orgID)
			}
			return nil, apperr.Internal(err, "could not load organization")
		}
	}

	updated, err := s.users.UpdateRole(ctx, targetID, role, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", targetID)
		}
		log.WithError(err).Error("Failed to update role in repository")
		return nil, apperr.Internal(err, "could not change role")
	}

	if err := s.cache.InvalidateActor(ctx, targetID); err != nil {
		log.WithError(err).Warn("Failed to invalidate actor cache")
	}
	log.Info("User role changed")
	return updated, nil
}

func isPrivileged(r models.Role) bool {
	return r == models.RoleModerator || r == models.RoleSuperAdmin
}

func sameOrg(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
