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

//go:generate mockgen -source=organization.go -destination=mocks/organization_mock.go -package=mocks

// OrganizationService - справочник организаций служб
type OrganizationService interface {
	CreateOrganization(ctx context.Context, actor *models.Actor, org *models.Organization) error
	GetOrganization(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Organization, error)
	ListOrganizations(ctx context.Context, actor *models.Actor, page, pageSize int) ([]*models.Organization, error)
	UpdateOrganization(ctx context.Context, actor *models.Actor, id uuid.UUID, update models.OrganizationUpdate) (*models.Organization, error)
}

type organizationService struct {
	orgs   OrganizationRepository
	users  UserRepository
	cache  ActorCache
	policy Authorizer
	logger *logrus.Logger
}

func NewOrganizationService(orgs OrganizationRepository, users UserRepository, cache ActorCache, authz Authorizer, logger *logrus.Logger) OrganizationService {
	return &organizationService{
		orgs:   orgs,
		users:  users,
		cache:  cache,
		policy: authz,
		logger: logger,
	}
}

func (s *organizationService) CreateOrganization(ctx context.Context, actor *models.Actor, org *models.Organization) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "organization",
		"method":  "CreateOrganization",
	})

	if err := s.policy.Authorize(actor, policy.ActionManage, policy.Resource{Kind: policy.ResourceOrganization}); err != nil {
		return err
	}

	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return apperr.Validation("organization name is required")
	}
	types, err := normalizeOrgTypes(org.Types)
	if err != nil {
		return err
	}
	org.Types = types
	org.Active = true

	if err := s.orgs.Create(ctx, org); err != nil {
		log.WithError(err).Error("Failed to create organization in repository")
		return apperr.Internal(err, "could not create organization")
	}

	log.WithField("organization_id", org.ID).Info("Organization created")
	return nil
}

func (s *organizationService) GetOrganization(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Organization, error) {
	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceOrganization}); err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("organization %s not found", id)
		}
		return nil, apperr.Internal(err, "could not load organization")
	}
	return org, nil
}

func (s *organizationService) ListOrganizations(ctx context.Context, actor *models.Actor, page, pageSize int) ([]*models.Organization, error) {
	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceOrganization}); err != nil {
		return nil, err
	}

	page, pageSize = normalizePage(page, pageSize)
	orgs, err := s.orgs.List(ctx, page, pageSize)
	if err != nil {
		s.logger.WithError(err).WithField("method", "ListOrganizations").Error("Failed to list organizations")
		return nil, apperr.Internal(err, "could not list organizations")
	}
	return orgs, nil
}

// UpdateOrganization меняет организацию и сбрасывает кэш акторов ее сотрудников,
// чтобы деактивация сразу лишала их областей категорий.
func (s *organizationService) UpdateOrganization(ctx context.Context, actor *models.Actor, id uuid.UUID, update models.OrganizationUpdate) (*models.Organization, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":         "organization",
		"method":          "UpdateOrganization",
		"organization_id": id,
	})

	if err := s.policy.Authorize(actor, policy.ActionManage, policy.Resource{Kind: policy.ResourceOrganization, OrganizationID: &id}); err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperr.Validation("organization name cannot be empty")
		}
		update.Name = &name
	}
	if update.Types != nil {
		types, err := normalizeOrgTypes(update.Types)
		if err != nil {
			return nil, err
		}
		update.Types = types
	}

	org, err := s.orgs.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("organization %s not found", id)
		}
		log.WithError(err).Error("Failed to update organization in repository")
		return nil, apperr.Internal(err, "could not update organization")
	}

	members, err := s.users.List(ctx, models.UserFilter{OrganizationID: &id})
	if err != nil {
		log.WithError(err).Warn("Failed to list organization members for cache invalidation")
	}
	for _, m := range members {
		if err := s.cache.InvalidateActor(ctx, m.ID); err != nil {
			log.WithError(err).WithField("user_id", m.ID).Warn("Failed to invalidate actor cache")
		}
	}

	log.WithField("active", org.Active).Info("Organization updated")
	return org, nil
}

func normalizeOrgTypes(types []models.OrgType) ([]models.OrgType, error) {
	if len(types) == 0 {
		return nil, apperr.Validation("at least one organization type is required")
	}
	seen := make(map[models.OrgType]bool, len(types))
	result := make([]models.OrgType, 0, len(types))
	for _, t := range types {
		if !t.Valid() {
			return nil, apperr.Validation("unknown organization type %q", t)
		}
		if !seen[t] {
			seen[t] = true
			result = append(result, t)
		}
	}
	return result, nil
}
