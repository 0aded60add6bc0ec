package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=contact.go -destination=mocks/contact_mock.go -package=mocks

// localPhone - номер без кода страны, 7-20 цифр
var localPhone = regexp.MustCompile(`^[0-9]{7,20}$`)

// ContactRepository определяет контракт для экстренных контактов.
// Create и Update снимают признак основного с прежнего контакта владельца в той же транзакции.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmergencyContact, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.EmergencyContact, error)
	Update(ctx context.Context, contact *models.EmergencyContact) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContactService - экстренные контакты актора
type ContactService interface {
	ListContacts(ctx context.Context, actor *models.Actor) ([]*models.EmergencyContact, error)
	CreateContact(ctx context.Context, actor *models.Actor, contact *models.EmergencyContact) error
	UpdateContact(ctx context.Context, actor *models.Actor, id uuid.UUID, contact *models.EmergencyContact) (*models.EmergencyContact, error)
	DeleteContact(ctx context.Context, actor *models.Actor, id uuid.UUID) error
}

type contactService struct {
	repo     ContactRepository
	policy   Authorizer
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewContactService(repo ContactRepository, authz Authorizer, logger *logrus.Logger) ContactService {
	return &contactService{
		repo:     repo,
		policy:   authz,
		validate: validator.New(),
		logger:   logger,
	}
}

func contactResource(ownerID uuid.UUID) policy.Resource {
	return policy.Resource{Kind: policy.ResourceContact, OwnerID: ownerID}
}

func (s *contactService) ListContacts(ctx context.Context, actor *models.Actor) ([]*models.EmergencyContact, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if err := s.policy.Authorize(actor, policy.ActionManage, contactResource(actor.ID)); err != nil {
		return nil, err
	}

	contacts, err := s.repo.ListByOwner(ctx, actor.ID)
	if err != nil {
		s.logger.WithError(err).WithField("method", "ListContacts").Error("Failed to list contacts")
		return nil, apperr.Internal(err, "could not list contacts")
	}
	return contacts, nil
}

func (s *contactService) CreateContact(ctx context.Context, actor *models.Actor, contact *models.EmergencyContact) error {
	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	log := s.logger.WithFields(logrus.Fields{
		"service":  "contact",
		"method":   "CreateContact",
		"owner_id": actor.ID,
	})

	if err := s.policy.Authorize(actor, policy.ActionManage, contactResource(actor.ID)); err != nil {
		return err
	}
	if err := s.validateContact(contact); err != nil {
		return err
	}

	contact.OwnerID = actor.ID
	if err := s.repo.Create(ctx, contact); err != nil {
		log.WithError(err).Error("Failed to create contact in repository")
		return apperr.Internal(err, "could not create contact")
	}

	log.WithField("contact_id", contact.ID).Info("Contact created")
	return nil
}

func (s *contactService) UpdateContact(ctx context.Context, actor *models.Actor, id uuid.UUID, contact *models.EmergencyContact) (*models.EmergencyContact, error) {
	existing, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateContact(contact); err != nil {
		return nil, err
	}

	existing.Name = contact.Name
	existing.Phone = contact.Phone
	existing.Relationship = contact.Relationship
	existing.IsPrimary = contact.IsPrimary

	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("contact %s not found", id)
		}
		s.logger.WithError(err).WithField("contact_id", id).Error("Failed to update contact in repository")
		return nil, apperr.Internal(err, "could not update contact")
	}
	return existing, nil
}

func (s *contactService) DeleteContact(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("contact %s not found", id)
		}
		s.logger.WithError(err).WithField("contact_id", id).Error("Failed to delete contact in repository")
		return apperr.Internal(err, "could not delete contact")
	}
	return nil
}

func (s *contactService) loadOwned(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.EmergencyContact, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}

	contact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("contact %s not found", id)
		}
		return nil, apperr.Internal(err, "could not load contact")
	}
	if err := s.policy.Authorize(actor, policy.ActionManage, contactResource(contact.OwnerID)); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *contactService) validateContact(contact *models.EmergencyContact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Relationship = strings.TrimSpace(contact.Relationship)

	if contact.Name == "" {
		return apperr.Validation("contact name is required")
	}
	if contact.Relationship == "" {
		return apperr.Validation("contact relationship is required")
	}
	if s.validate.Var(contact.Phone, "required,e164") != nil && !localPhone.MatchString(contact.Phone) {
		return apperr.Validation("contact phone %q is not a valid phone number", contact.Phone)
	}
	return nil
}
