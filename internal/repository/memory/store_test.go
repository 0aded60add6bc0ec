package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FullName: "Test User", Role: models.RoleCitizen}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

func seedIncident(t *testing.T, s *Store, reporter uuid.UUID) *models.Incident {
	t.Helper()
	incident := &models.Incident{
		Title:       "Car crash",
		Description: "Two cars on the bridge",
		Category:    models.CategoryAccident,
		Status:      models.StatusPending,
		ReporterID:  reporter,
	}
	require.NoError(t, s.Incidents().Create(context.Background(), incident))
	return incident
}

func TestIncidentRepository_CreateRequiresReporter(t *testing.T) {
	s := NewStore()
	err := s.Incidents().Create(context.Background(), &models.Incident{ReporterID: uuid.New()})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestIncidentRepository_ReturnsCopies(t *testing.T) {
	s := NewStore()
	reporter := seedUser(t, s, "a@example.com")
	incident := seedIncident(t, s, reporter.ID)

	got, err := s.Incidents().GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	got.Status = models.StatusResolved

	again, err := s.Incidents().GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestIncidentRepository_ListFilters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	for _, c := range []models.Category{models.CategoryFire, models.CategoryFire, models.CategoryMedical} {
		require.NoError(t, s.Incidents().Create(ctx, &models.Incident{Title: "t", Description: "d", Category: c, Status: models.StatusPending, ReporterID: alice.ID}))
	}
	seedIncident(t, s, bob.ID)

	all, err := s.Incidents().List(ctx, models.IncidentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	fire, err := s.Incidents().List(ctx, models.IncidentFilter{Categories: []models.Category{models.CategoryFire}})
	require.NoError(t, err)
	assert.Len(t, fire, 2)

	mine, err := s.Incidents().List(ctx, models.IncidentFilter{ReporterID: &bob.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.CategoryAccident, mine[0].Category)

	page2, err := s.Incidents().List(ctx, models.IncidentFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	beyond, err := s.Incidents().List(ctx, models.IncidentFilter{Page: 5, PageSize: 3})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestIncidentRepository_RecordVerificationThreshold(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	reporter := seedUser(t, s, "r@example.com")
	incident := seedIncident(t, s, reporter.ID)
	repo := s.Incidents()

	for i := 1; i <= 3; i++ {
		outcome, err := repo.RecordVerification(ctx, &models.Verification{IncidentID: incident.ID, ActorID: uuid.New(), Kind: models.VerificationCommunity}, 3)
		require.NoError(t, err)
		assert.Equal(t, i, outcome.Incident.VerificationCount)
		assert.Equal(t, i == 3, outcome.StatusChanged)
	}

	got, err := repo.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, got.Status)
	assert.NotNil(t, got.VerifiedAt)
	assert.Nil(t, got.VerifiedBy)

	verifications, err := repo.ListVerifications(ctx, incident.ID)
	require.NoError(t, err)
	assert.Len(t, verifications, 3)
}

func TestIncidentRepository_RecordVerificationDirect(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	reporter := seedUser(t, s, "r@example.com")
	incident := seedIncident(t, s, reporter.ID)
	officer := uuid.New()

	outcome, err := s.Incidents().RecordVerification(ctx, &models.Verification{IncidentID: incident.ID, ActorID: officer, Kind: models.VerificationDirect}, 3)
	require.NoError(t, err)
	assert.True(t, outcome.StatusChanged)
	assert.Equal(t, models.StatusVerified, outcome.Incident.Status)
	require.NotNil(t, outcome.Incident.VerifiedBy)
	assert.Equal(t, officer, *outcome.Incident.VerifiedBy)
}

func TestIncidentRepository_RecordVerificationErrors(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	reporter := seedUser(t, s, "r@example.com")
	incident := seedIncident(t, s, reporter.ID)
	repo := s.Incidents()
	verifier := uuid.New()

	_, err := repo.RecordVerification(ctx, &models.Verification{IncidentID: incident.ID, ActorID: verifier, Kind: models.VerificationCommunity}, 3)
	require.NoError(t, err)

	_, err = repo.RecordVerification(ctx, &models.Verification{IncidentID: incident.ID, ActorID: verifier, Kind: models.VerificationCommunity}, 3)
	assert.ErrorIs(t, err, service.ErrDuplicateVerification)

	_, err = repo.RecordVerification(ctx, &models.Verification{IncidentID: uuid.New(), ActorID: verifier, Kind: models.VerificationCommunity}, 3)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = repo.ConditionalUpdateStatus(ctx, incident.ID, models.StatusPending, models.StatusVerified, uuid.New())
	require.NoError(t, err)
	_, err = repo.ConditionalUpdateStatus(ctx, incident.ID, models.StatusVerified, models.StatusResolved, uuid.New())
	require.NoError(t, err)

	_, err = repo.RecordVerification(ctx, &models.Verification{IncidentID: incident.ID, ActorID: uuid.New(), Kind: models.VerificationCommunity}, 3)
	assert.ErrorIs(t, err, service.ErrStatusConflict)

	got, err := repo.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.VerificationCount)
}

func TestIncidentRepository_ConcurrentVerificationsTransitionOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	reporter := seedUser(t, s, "r@example.com")
	incident := seedIncident(t, s, reporter.ID)
	repo := s.Incidents()

	const verifiers = 50
	var (
		wg          sync.WaitGroup
		transitions atomic.Int32
	)
	for i := 0; i < verifiers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := repo.RecordVerification(ctx, &models.Verification{IncidentID: incident.ID, ActorID: uuid.New(), Kind: models.VerificationCommunity}, 3)
			if assert.NoError(t, err) && outcome.StatusChanged {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), transitions.Load())
	got, err := repo.GetByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, verifiers, got.VerificationCount)
	assert.Equal(t, models.StatusVerified, got.Status)
}

func TestIncidentRepository_ConcurrentResolveSingleWinner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	reporter := seedUser(t, s, "r@example.com")
	incident := seedIncident(t, s, reporter.ID)
	repo := s.Incidents()
	_, err := repo.ConditionalUpdateStatus(ctx, incident.ID, models.StatusPending, models.StatusVerified, uuid.New())
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ConditionalUpdateStatus(ctx, incident.ID, models.StatusVerified, models.StatusResolved, uuid.New())
			switch {
			case err == nil:
				winners.Add(1)
			case assert.ErrorIs(t, err, service.ErrStatusConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(19), conflicts.Load())
}

func TestIncidentRepository_Stats(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	reporter := seedUser(t, s, "r@example.com")
	first := seedIncident(t, s, reporter.ID)
	seedIncident(t, s, reporter.ID)
	_, err := s.Incidents().ConditionalUpdateStatus(ctx, first.ID, models.StatusPending, models.StatusVerified, uuid.New())
	require.NoError(t, err)

	stats, err := s.Incidents().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.IncidentStats{Pending: 1, Verified: 1, Total: 2}, stats)
}

func TestUserRepository(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Users()
	user := seedUser(t, s, "sam@example.com")

	err := repo.Create(ctx, &models.User{Email: "sam@example.com"})
	assert.ErrorIs(t, err, service.ErrDuplicateEmail)

	got, err := repo.GetByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.UpdateRole(ctx, user.ID, models.RolePolice, &uuid.UUID{})
	assert.ErrorIs(t, err, service.ErrNotFound)

	org := &models.Organization{Name: "Central Police", Types: []models.OrgType{models.OrgTypePolice}, Active: true}
	require.NoError(t, s.Organizations().Create(ctx, org))
	updated, err := repo.UpdateRole(ctx, user.ID, models.RolePolice, &org.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RolePolice, updated.Role)

	members, err := repo.List(ctx, models.UserFilter{OrganizationID: &org.ID})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, user.ID, members[0].ID)
}

func TestOrganizationRepository_PartialUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	org := &models.Organization{Name: "Fire Station 1", Types: []models.OrgType{models.OrgTypeFire}, Active: true}
	require.NoError(t, s.Organizations().Create(ctx, org))

	inactive := false
	updated, err := s.Organizations().Update(ctx, org.ID, models.OrganizationUpdate{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "Fire Station 1", updated.Name)
	assert.Equal(t, []models.OrgType{models.OrgTypeFire}, updated.Types)

	_, err = s.Organizations().Update(ctx, uuid.New(), models.OrganizationUpdate{})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestContactRepository_SinglePrimary(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Contacts()
	owner := uuid.New()

	first := &models.EmergencyContact{OwnerID: owner, Name: "Mum", Phone: "0788000001", Relationship: "mother", IsPrimary: true}
	second := &models.EmergencyContact{OwnerID: owner, Name: "Dad", Phone: "0788000002", Relationship: "father", IsPrimary: true}
	other := &models.EmergencyContact{OwnerID: uuid.New(), Name: "Friend", Phone: "0788000003", Relationship: "friend", IsPrimary: true}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, other))

	contacts, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, second.ID, contacts[0].ID)
	assert.True(t, contacts[0].IsPrimary)
	assert.False(t, contacts[1].IsPrimary)

	first.IsPrimary = true
	require.NoError(t, repo.Update(ctx, first))
	contacts, err = repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, contacts[0].ID)
	assert.False(t, contacts[1].IsPrimary)

	otherGot, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, otherGot.IsPrimary)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), service.ErrNotFound)
}
