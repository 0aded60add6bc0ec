package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/config"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/rindwa/rindwa_api/internal/webhook"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=incident.go -destination=mocks/incident_mock.go -package=mocks

// IncidentRepository определяет контракт для работы с бд инцидентов.
// Удаления инцидентов нет: решенные инциденты остаются как журнал.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	Stats(ctx context.Context) (*models.IncidentStats, error)
	// RecordVerification атомарно вставляет подтверждение (если его еще нет),
	// увеличивает счетчик и переводит pending -> verified при достижении threshold
	// или при прямом подтверждении.
	RecordVerification(ctx context.Context, v *models.Verification, threshold int) (*models.VerificationOutcome, error)
	// ConditionalUpdateStatus меняет статус, только если текущий равен expected.
	ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, expected, next models.Status, actorID uuid.UUID) (*models.Incident, error)
	ListVerifications(ctx context.Context, incidentID uuid.UUID) ([]*models.Verification, error)
}

// IncidentCache - кэш чтения инцидентов
type IncidentCache interface {
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncident(ctx context.Context, incident *models.Incident) error
	InvalidateIncident(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт жизненного цикла инцидента
type IncidentService interface {
	CreateIncident(ctx context.Context, actor *models.Actor, incident *models.Incident) error
	GetIncident(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, actor *models.Actor, query models.IncidentQuery) ([]*models.Incident, error)
	VerifyIncident(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.VerificationOutcome, error)
	ResolveIncident(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Incident, error)
	ListVerifications(ctx context.Context, actor *models.Actor, id uuid.UUID) ([]*models.Verification, error)
	GetStats(ctx context.Context, actor *models.Actor) (*models.IncidentStats, error)
}

type incidentService struct {
	repo      IncidentRepository
	cache     IncidentCache
	policy    Authorizer
	publisher webhook.EventPublisher
	logger    *logrus.Logger
	cfg       *config.Config
}

func NewIncidentService(repo IncidentRepository, cache IncidentCache, authz Authorizer, publisher webhook.EventPublisher, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		repo:      repo,
		cache:     cache,
		policy:    authz,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

func incidentResource(incident *models.Incident) policy.Resource {
	return policy.Resource{
		Kind:     policy.ResourceIncident,
		Category: incident.Category,
		OwnerID:  incident.ReporterID,
	}
}

// CreateIncident создает инцидент в статусе pending
func (s *incidentService) CreateIncident(ctx context.Context, actor *models.Actor, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "CreateIncident",
		"category": incident.Category,
	})
	log.Info("Attempting to create a new incident")

	if err := s.policy.Authorize(actor, policy.ActionCreate, policy.Resource{Kind: policy.ResourceIncident, Category: incident.Category}); err != nil {
		log.WithError(err).Warn("Incident creation denied")
		return err
	}
	if err := validateIncident(incident); err != nil {
		log.WithError(err).Warn("Incident validation failed")
		return err
	}

	incident.Status = models.StatusPending
	incident.ReporterID = actor.ID
	incident.VerificationCount = 0
	incident.VerifiedBy, incident.VerifiedAt = nil, nil
	incident.ResolvedBy, incident.ResolvedAt = nil, nil
	if incident.Location.IsZero() {
		incident.Location = nil
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return apperr.Internal(err, "could not create incident")
	}

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	s.publish(ctx, log, webhook.NewEvent(webhook.EventIncidentCreated, incident, actor.ID))
	return nil
}

// GetIncident получает инцидент по ID, сначала из кэша
func (s *incidentService) GetIncident(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})
	log.Info("Fetching incident by ID")

	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceIncident}); err != nil {
		return nil, err
	}

	cached, err := s.cache.GetIncident(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.loadIncident(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident in repository")
		return nil, err
	}

	if err := s.cache.SetIncident(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	log.Info("Incident fetched successfully")
	return incident, nil
}

// ListIncidents возвращает список инцидентов с фильтрами и пагинацией.
// Представление organization ограничивается категориями актора на сервере.
func (s *incidentService) ListIncidents(ctx context.Context, actor *models.Actor, query models.IncidentQuery) ([]*models.Incident, error) {
	page, pageSize := normalizePage(query.Page, query.PageSize)
	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"view":      query.View,
		"page":      page,
		"page_size": pageSize,
	})
	log.Info("Listing incidents")

	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceIncident}); err != nil {
		return nil, err
	}

	filter := models.IncidentFilter{Page: page, PageSize: pageSize}
	if query.Status != "" {
		if !query.Status.Valid() {
			return nil, apperr.Validation("unknown status %q", query.Status)
		}
		filter.Statuses = []models.Status{query.Status}
	}
	if query.Category != "" {
		if !query.Category.Valid() {
			return nil, apperr.Validation("unknown category %q", query.Category)
		}
		filter.Categories = []models.Category{query.Category}
	}

	switch query.View {
	case "", models.ViewAll:
	case models.ViewMine:
		filter.ReporterID = &actor.ID
	case models.ViewOrganization:
		allowed := s.policy.CategoriesFor(actor)
		if len(allowed) == 0 {
			log.Warn("Organization view requested without category scope")
			return nil, apperr.Forbidden("organization view requires an active responder organization")
		}
		filter.Categories = intersectCategories(filter.Categories, allowed)
		if len(filter.Categories) == 0 {
			return []*models.Incident{}, nil
		}
	default:
		return nil, apperr.Validation("unknown view %q", query.View)
	}

	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, apperr.Internal(err, "could not list incidents")
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// VerifyIncident добавляет подтверждение актора.
// Граждане добавляют подтверждение сообщества, которое учитывается в пороге;
// сотрудники служб, модераторы и администраторы подтверждают напрямую.
func (s *incidentService) VerifyIncident(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.VerificationOutcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "VerifyIncident",
		"incident_id": id,
	})
	log.Info("Attempting to verify incident")

	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceIncident}); err != nil {
		return nil, err
	}
	log = log.WithField("actor_id", actor.ID)

	incident, err := s.loadIncident(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to verify a non-existent incident")
		return nil, err
	}

	if incident.ReporterID == actor.ID {
		log.Warn("Reporter attempted to verify own incident")
		return nil, apperr.DuplicateAction("reporters cannot verify their own incident")
	}
	if incident.Status == models.StatusResolved {
		return nil, apperr.InvalidTransition("incident is already resolved")
	}
	if err := s.policy.Authorize(actor, policy.ActionVerify, incidentResource(incident)); err != nil {
		log.WithError(err).Warn("Verification denied by policy")
		return nil, err
	}

	kind := models.VerificationCommunity
	if actor.Role.IsStaff() {
		kind = models.VerificationDirect
	}

	outcome, err := s.repo.RecordVerification(ctx, &models.Verification{
		IncidentID: id,
		ActorID:    actor.ID,
		Kind:       kind,
	}, s.cfg.VerificationThreshold)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateVerification):
			log.Warn("Duplicate verification rejected")
			return nil, apperr.DuplicateAction("you have already verified this incident")
		case errors.Is(err, ErrStatusConflict):
			return nil, apperr.InvalidTransition("incident is already resolved")
		case errors.Is(err, ErrNotFound):
			return nil, apperr.NotFound("incident %s not found", id)
		}
		log.WithError(err).Error("Failed to record verification")
		return nil, apperr.Internal(err, "could not verify incident")
	}

	s.refreshCache(ctx, log, outcome.Incident)
	log.WithFields(logrus.Fields{
		"kind":               kind,
		"verification_count": outcome.Incident.VerificationCount,
		"status_changed":     outcome.StatusChanged,
	}).Info("Verification recorded")

	if outcome.StatusChanged {
		s.publish(ctx, log, webhook.NewEvent(webhook.EventIncidentVerified, outcome.Incident, actor.ID))
	}
	return outcome, nil
}

// ResolveIncident переводит подтвержденный инцидент в resolved
func (s *incidentService) ResolveIncident(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ResolveIncident",
		"incident_id": id,
	})
	log.Info("Attempting to resolve incident")

	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceIncident}); err != nil {
		return nil, err
	}

	incident, err := s.loadIncident(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to resolve a non-existent incident")
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ActionResolve, incidentResource(incident)); err != nil {
		log.WithError(err).Warn("Resolution denied by policy")
		return nil, err
	}
	if !incident.Status.CanTransitionTo(models.StatusResolved) {
		log.WithField("status", incident.Status).Warn("Invalid resolve transition")
		return nil, apperr.InvalidTransition("cannot resolve an incident in status %s", incident.Status)
	}

	updated, err := s.repo.ConditionalUpdateStatus(ctx, id, models.StatusVerified, models.StatusResolved, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrStatusConflict):
			log.Warn("Incident status changed before resolution")
			return nil, apperr.InvalidTransition("incident is no longer in status verified")
		case errors.Is(err, ErrNotFound):
			return nil, apperr.NotFound("incident %s not found", id)
		}
		log.WithError(err).Error("Failed to resolve incident in repository")
		return nil, apperr.Internal(err, "could not resolve incident")
	}

	s.refreshCache(ctx, log, updated)
	log.Info("Incident resolved successfully")
	s.publish(ctx, log, webhook.NewEvent(webhook.EventIncidentResolved, updated, actor.ID))
	return updated, nil
}

// ListVerifications возвращает подтверждения инцидента
func (s *incidentService) ListVerifications(ctx context.Context, actor *models.Actor, id uuid.UUID) ([]*models.Verification, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ListVerifications",
		"incident_id": id,
	})

	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceIncident}); err != nil {
		return nil, err
	}
	if _, err := s.loadIncident(ctx, id); err != nil {
		return nil, err
	}

	verifications, err := s.repo.ListVerifications(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to list verifications")
		return nil, apperr.Internal(err, "could not list verifications")
	}
	return verifications, nil
}

// GetStats возвращает количество инцидентов по статусам
func (s *incidentService) GetStats(ctx context.Context, actor *models.Actor) (*models.IncidentStats, error) {
	if err := s.policy.Authorize(actor, policy.ActionRead, policy.Resource{Kind: policy.ResourceIncident}); err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("method", "GetStats").Error("Failed to get incident stats")
		return nil, apperr.Internal(err, "could not get incident stats")
	}
	return stats, nil
}

func (s *incidentService) loadIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("incident %s not found", id)
		}
		return nil, apperr.Internal(err, "could not load incident")
	}
	return incident, nil
}

// refreshCache записывает в кэш снимок после фиксации изменения.
// Если запись не удалась, запись кэша удаляется.
func (s *incidentService) refreshCache(ctx context.Context, log *logrus.Entry, incident *models.Incident) {
	err := s.cache.SetIncident(ctx, incident)
	if err == nil {
		return
	}
	log.WithError(err).Warn("Failed to refresh incident cache")
	if err := s.cache.InvalidateIncident(ctx, incident.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
}

// publish отправляет событие после фиксации изменения; ошибка только логируется
func (s *incidentService) publish(ctx context.Context, log *logrus.Entry, event webhook.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type).Error("Failed to publish incident event")
	}
}

func validateIncident(incident *models.Incident) error {
	incident.Title = strings.TrimSpace(incident.Title)
	incident.Description = strings.TrimSpace(incident.Description)

	var missing []string
	if incident.Title == "" {
		missing = append(missing, "title")
	}
	if incident.Description == "" {
		missing = append(missing, "description")
	}
	if incident.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !incident.Category.Valid() {
		return apperr.Validation("unknown category %q", incident.Category)
	}

	if loc := incident.Location; loc != nil {
		if (loc.Latitude == nil) != (loc.Longitude == nil) {
			return apperr.Validation("latitude and longitude must be provided together")
		}
		if loc.Latitude != nil && (*loc.Latitude < -90 || *loc.Latitude > 90) {
			return apperr.Validation("latitude %v out of range", *loc.Latitude)
		}
		if loc.Longitude != nil && (*loc.Longitude < -180 || *loc.Longitude > 180) {
			return apperr.Validation("longitude %v out of range", *loc.Longitude)
		}
	}
	return nil
}

func intersectCategories(requested, allowed []models.Category) []models.Category {
	if len(requested) == 0 {
		return allowed
	}
	result := make([]models.Category, 0, len(requested))
	for _, c := range requested {
		for _, a := range allowed {
			if c == a {
				result = append(result, c)
				break
			}
		}
	}
	return result
}
