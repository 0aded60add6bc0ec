// Package memory - хранилище в памяти с той же семантикой, что и postgres.
// Используется режимом STORAGE_DRIVER=memory и тестами.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service"
)

type verificationKey struct {
	incidentID uuid.UUID
	actorID    uuid.UUID
}

// Store хранит все сущности под одним мьютексом
type Store struct {
	mu            sync.Mutex
	now           func() time.Time
	incidents     map[uuid.UUID]*models.Incident
	verifications map[verificationKey]*models.Verification
	users         map[uuid.UUID]*models.User
	organizations map[uuid.UUID]*models.Organization
	contacts      map[uuid.UUID]*models.EmergencyContact
}

func NewStore() *Store {
	return &Store{
		now:           time.Now,
		incidents:     make(map[uuid.UUID]*models.Incident),
		verifications: make(map[verificationKey]*models.Verification),
		users:         make(map[uuid.UUID]*models.User),
		organizations: make(map[uuid.UUID]*models.Organization),
		contacts:      make(map[uuid.UUID]*models.EmergencyContact),
	}
}

func (s *Store) Incidents() service.IncidentRepository         { return &incidentRepository{s} }
func (s *Store) Users() service.UserRepository                 { return &userRepository{s} }
func (s *Store) Organizations() service.OrganizationRepository { return &organizationRepository{s} }
func (s *Store) Contacts() service.ContactRepository           { return &contactRepository{s} }

// paginate применяет страницу; pageSize <= 0 возвращает все
func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	start := (max(page, 1) - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

func copyIncident(in *models.Incident) *models.Incident {
	out := *in
	if in.Location != nil {
		loc := *in.Location
		if in.Location.Latitude != nil {
			lat := *in.Location.Latitude
			loc.Latitude = &lat
		}
		if in.Location.Longitude != nil {
			lon := *in.Location.Longitude
			loc.Longitude = &lon
		}
		out.Location = &loc
	}
	out.MediaURLs = slices.Clone(in.MediaURLs)
	out.VerifiedBy = copyID(in.VerifiedBy)
	out.ResolvedBy = copyID(in.ResolvedBy)
	out.VerifiedAt = copyTime(in.VerifiedAt)
	out.ResolvedAt = copyTime(in.ResolvedAt)
	return &out
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type incidentRepository struct {
	s *Store
}

func (r *incidentRepository) Create(_ context.Context, incident *models.Incident) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[incident.ReporterID]; !ok {
		return fmt.Errorf("reporter %s: %w", incident.ReporterID, service.ErrNotFound)
	}
	now := r.s.now()
	incident.ID = uuid.New()
	incident.VerificationCount = 0
	incident.CreatedAt, incident.UpdatedAt = now, now
	if incident.MediaURLs == nil {
		incident.MediaURLs = []string{}
	}
	r.s.incidents[incident.ID] = copyIncident(incident)
	return nil
}

func (r *incidentRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	incident, ok := r.s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	return copyIncident(incident), nil
}

func (r *incidentRepository) List(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*models.Incident, 0)
	for _, incident := range r.s.incidents {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, incident.Status) {
			continue
		}
		if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, incident.Category) {
			continue
		}
		if filter.ReporterID != nil && incident.ReporterID != *filter.ReporterID {
			continue
		}
		result = append(result, copyIncident(incident))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return paginate(result, filter.Page, filter.PageSize), nil
}

func (r *incidentRepository) Stats(_ context.Context) (*models.IncidentStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &models.IncidentStats{}
	for _, incident := range r.s.incidents {
		switch incident.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusVerified:
			stats.Verified++
		case models.StatusResolved:
			stats.Resolved++
		}
		stats.Total++
	}
	return stats, nil
}

// RecordVerification выполняется целиком под мьютексом, как транзакция в postgres
func (r *incidentRepository) RecordVerification(_ context.Context, v *models.Verification, threshold int) (*models.VerificationOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	incident, ok := r.s.incidents[v.IncidentID]
	if !ok {
		return nil, fmt.Errorf("incident %s: %w", v.IncidentID, service.ErrNotFound)
	}
	key := verificationKey{incidentID: v.IncidentID, actorID: v.ActorID}
	if _, exists := r.s.verifications[key]; exists {
		return nil, service.ErrDuplicateVerification
	}
	if incident.Status == models.StatusResolved {
		return nil, service.ErrStatusConflict
	}

	now := r.s.now()
	v.ID = uuid.New()
	v.CreatedAt = now
	stored := *v
	r.s.verifications[key] = &stored

	incident.VerificationCount++
	incident.UpdatedAt = now

	outcome := &models.VerificationOutcome{Verification: v}
	if incident.Status == models.StatusPending &&
		(v.Kind == models.VerificationDirect || incident.VerificationCount >= threshold) {
		incident.Status = models.StatusVerified
		incident.VerifiedAt = &now
		if v.Kind == models.VerificationDirect {
			incident.VerifiedBy = copyID(&v.ActorID)
		}
		outcome.StatusChanged = true
	}
	outcome.Incident = copyIncident(incident)
	return outcome, nil
}

func (r *incidentRepository) ConditionalUpdateStatus(_ context.Context, id uuid.UUID, expected, next models.Status, actorID uuid.UUID) (*models.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	incident, ok := r.s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	if incident.Status != expected {
		return nil, service.ErrStatusConflict
	}

	now := r.s.now()
	switch next {
	case models.StatusVerified:
		incident.VerifiedBy = copyID(&actorID)
		incident.VerifiedAt = &now
	case models.StatusResolved:
		incident.ResolvedBy = copyID(&actorID)
		incident.ResolvedAt = &now
	default:
		return nil, fmt.Errorf("unsupported target status %s", next)
	}
	incident.Status = next
	incident.UpdatedAt = now
	return copyIncident(incident), nil
}

func (r *incidentRepository) ListVerifications(_ context.Context, incidentID uuid.UUID) ([]*models.Verification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*models.Verification, 0)
	for key, v := range r.s.verifications {
		if key.incidentID == incidentID {
			c := *v
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

type userRepository struct {
	s *Store
}

func copyUser(in *models.User) *models.User {
	out := *in
	out.OrganizationID = copyID(in.OrganizationID)
	return &out
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return service.ErrDuplicateEmail
		}
	}
	now := r.s.now()
	user.ID = uuid.New()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, service.ErrNotFound)
	}
	return copyUser(user), nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, service.ErrNotFound)
}

func (r *userRepository) List(_ context.Context, filter models.UserFilter) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*models.User, 0)
	for _, user := range r.s.users {
		if filter.OrganizationID != nil && (user.OrganizationID == nil || *user.OrganizationID != *filter.OrganizationID) {
			continue
		}
		result = append(result, copyUser(user))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return paginate(result, filter.Page, filter.PageSize), nil
}

func (r *userRepository) UpdateProfile(_ context.Context, id uuid.UUID, update models.ProfileUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found for update: %w", id, service.ErrNotFound)
	}
	user.FullName = update.FullName
	user.Phone = update.Phone
	user.UpdatedAt = r.s.now()
	return copyUser(user), nil
}

func (r *userRepository) UpdateRole(_ context.Context, id uuid.UUID, role models.Role, organizationID *uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found for update: %w", id, service.ErrNotFound)
	}
	if organizationID != nil {
		if _, ok := r.s.organizations[*organizationID]; !ok {
			return nil, fmt.Errorf("organization %s: %w", *organizationID, service.ErrNotFound)
		}
	}
	user.Role = role
	user.OrganizationID = copyID(organizationID)
	user.UpdatedAt = r.s.now()
	return copyUser(user), nil
}

type organizationRepository struct {
	s *Store
}

func copyOrganization(in *models.Organization) *models.Organization {
	out := *in
	out.Types = slices.Clone(in.Types)
	return &out
}

func (r *organizationRepository) Create(_ context.Context, org *models.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	org.ID = uuid.New()
	org.CreatedAt, org.UpdatedAt = now, now
	r.s.organizations[org.ID] = copyOrganization(org)
	return nil
}

func (r *organizationRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	org, ok := r.s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization with id %s: %w", id, service.ErrNotFound)
	}
	return copyOrganization(org), nil
}

func (r *organizationRepository) List(_ context.Context, page, pageSize int) ([]*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*models.Organization, 0, len(r.s.organizations))
	for _, org := range r.s.organizations {
		result = append(result, copyOrganization(org))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return paginate(result, page, pageSize), nil
}

func (r *organizationRepository) Update(_ context.Context, id uuid.UUID, update models.OrganizationUpdate) (*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	org, ok := r.s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization with id %s not found for update: %w", id, service.ErrNotFound)
	}
	if update.Name != nil {
		org.Name = *update.Name
	}
	if update.Types != nil {
		org.Types = slices.Clone(update.Types)
	}
	if update.Active != nil {
		org.Active = *update.Active
	}
	org.UpdatedAt = r.s.now()
	return copyOrganization(org), nil
}

type contactRepository struct {
	s *Store
}

// demotePrimaryLocked снимает признак основного; вызывается под мьютексом
func (r *contactRepository) demotePrimaryLocked(ownerID, keep uuid.UUID) {
	for id, c := range r.s.contacts {
		if c.OwnerID == ownerID && c.IsPrimary && id != keep {
			c.IsPrimary = false
			c.UpdatedAt = r.s.now()
		}
	}
}

func (r *contactRepository) Create(_ context.Context, contact *models.EmergencyContact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	contact.ID = uuid.New()
	contact.CreatedAt, contact.UpdatedAt = now, now
	if contact.IsPrimary {
		r.demotePrimaryLocked(contact.OwnerID, contact.ID)
	}
	stored := *contact
	r.s.contacts[contact.ID] = &stored
	return nil
}

func (r *contactRepository) GetByID(_ context.Context, id uuid.UUID) (*models.EmergencyContact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	contact, ok := r.s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact with id %s: %w", id, service.ErrNotFound)
	}
	c := *contact
	return &c, nil
}

func (r *contactRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.EmergencyContact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*models.EmergencyContact, 0)
	for _, contact := range r.s.contacts {
		if contact.OwnerID == ownerID {
			c := *contact
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsPrimary != result[j].IsPrimary {
			return result[i].IsPrimary
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (r *contactRepository) Update(_ context.Context, contact *models.EmergencyContact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.contacts[contact.ID]
	if !ok {
		return fmt.Errorf("contact with id %s not found for update: %w", contact.ID, service.ErrNotFound)
	}
	if contact.IsPrimary {
		r.demotePrimaryLocked(existing.OwnerID, contact.ID)
	}
	existing.Name = contact.Name
	existing.Phone = contact.Phone
	existing.Relationship = contact.Relationship
	existing.IsPrimary = contact.IsPrimary
	existing.UpdatedAt = r.s.now()
	contact.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *contactRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.contacts[id]; !ok {
		return fmt.Errorf("contact with id %s not found for delete: %w", id, service.ErrNotFound)
	}
	delete(r.s.contacts, id)
	return nil
}
