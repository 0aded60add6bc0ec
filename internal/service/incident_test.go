package service

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/config"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/policy"
	"github.com/rindwa/rindwa_api/internal/service/mocks"
	"github.com/rindwa/rindwa_api/internal/webhook"
	webhook_mocks "github.com/rindwa/rindwa_api/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type incidentFixture struct {
	service   *incidentService
	repo      *mocks.MockIncidentRepository
	cache     *mocks.MockIncidentCache
	publisher *webhook_mocks.MockEventPublisher
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return logger
}

func newTestPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New()
	require.NoError(t, err)
	return p
}

// newTestIncidentService - вспомогательная функция для создания инстанса сервиса с моками
func newTestIncidentService(t *testing.T) incidentFixture {
	ctrl := gomock.NewController(t)
	f := incidentFixture{
		repo:      mocks.NewMockIncidentRepository(ctrl),
		cache:     mocks.NewMockIncidentCache(ctrl),
		publisher: webhook_mocks.NewMockEventPublisher(ctrl),
	}
	cfg := &config.Config{VerificationThreshold: 3}
	svc := NewIncidentService(f.repo, f.cache, newTestPolicy(t), f.publisher, quietLogger(), cfg)
	f.service = svc.(*incidentService)
	return f
}

func citizen() *models.Actor {
	return &models.Actor{ID: uuid.New(), Role: models.RoleCitizen}
}

func responder(role models.Role, types ...models.OrgType) *models.Actor {
	orgID := uuid.New()
	return &models.Actor{ID: uuid.New(), Role: role, OrganizationID: &orgID, OrganizationTypes: types}
}

func pendingIncident(category models.Category) *models.Incident {
	return &models.Incident{
		ID:          uuid.New(),
		Title:       "Incident",
		Description: "Something happened",
		Category:    category,
		Status:      models.StatusPending,
		ReporterID:  uuid.New(),
	}
}

func TestIncidentRepository_HasNoDelete(t *testing.T) {
	repoType := reflect.TypeOf((*IncidentRepository)(nil)).Elem()
	_, ok := repoType.MethodByName("Delete")
	assert.False(t, ok)

	serviceType := reflect.TypeOf((*IncidentService)(nil)).Elem()
	for i := 0; i < serviceType.NumMethod(); i++ {
		assert.NotContains(t, serviceType.Method(i).Name, "Delete")
	}
}

func TestCreateIncident_Success(t *testing.T) {
	// Подготовка
	f := newTestIncidentService(t)
	ctx := context.Background()
	actor := citizen()
	incident := &models.Incident{
		Title:       "  Grass fire  ",
		Description: "Near the school",
		Category:    models.CategoryFire,
		Status:      models.StatusResolved,
	}

	// Ожидания
	f.repo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			// Симулируем, что БД присвоила ID
			inc.ID = uuid.New()
			return nil
		}).Times(1)

	var published webhook.Event
	f.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e webhook.Event) error {
			published = e
			return nil
		}).Times(1)

	// Действие
	err := f.service.CreateIncident(ctx, actor, incident)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, "Grass fire", incident.Title)
	assert.Equal(t, models.StatusPending, incident.Status)
	assert.Equal(t, actor.ID, incident.ReporterID)
	assert.Zero(t, incident.VerificationCount)
	assert.Equal(t, webhook.EventIncidentCreated, published.Type)
	assert.Equal(t, incident.ID, published.IncidentID)
}

func TestCreateIncident_Validation(t *testing.T) {
	lat := 120.0
	tests := []struct {
		name     string
		incident *models.Incident
		errMsg   string
	}{
		{"missing title", &models.Incident{Description: "d", Category: models.CategoryFire}, "title"},
		{"missing everything", &models.Incident{}, "title, description, category"},
		{"unknown category", &models.Incident{Title: "t", Description: "d", Category: "flood"}, "unknown category"},
		{"latitude without longitude", &models.Incident{Title: "t", Description: "d", Category: models.CategoryFire, Location: &models.Location{Latitude: &lat}}, "together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestIncidentService(t)
			err := f.service.CreateIncident(context.Background(), citizen(), tt.incident)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestCreateIncident_Anonymous(t *testing.T) {
	f := newTestIncidentService(t)
	err := f.service.CreateIncident(context.Background(), nil, &models.Incident{Title: "t", Description: "d", Category: models.CategoryFire})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestGetIncident_FromCache(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	expected := pendingIncident(models.CategoryMedical)

	f.cache.EXPECT().GetIncident(ctx, expected.ID).Return(expected, nil).Times(1)

	incident, err := f.service.GetIncident(ctx, citizen(), expected.ID)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_FromDB(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	expected := pendingIncident(models.CategoryMedical)

	// 1. Промах кеша
	f.cache.EXPECT().GetIncident(ctx, expected.ID).Return(nil, nil).Times(1)
	// 2. Попадание в БД
	f.repo.EXPECT().GetByID(ctx, expected.ID).Return(expected, nil).Times(1)
	// 3. Запись в кеш
	f.cache.EXPECT().SetIncident(ctx, expected).Return(nil).Times(1)

	incident, err := f.service.GetIncident(ctx, citizen(), expected.ID)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	id := uuid.New()

	f.cache.EXPECT().GetIncident(ctx, id).Return(nil, errors.New("redis down")).Times(1)
	f.repo.EXPECT().GetByID(ctx, id).Return(nil, ErrNotFound).Times(1)

	incident, err := f.service.GetIncident(ctx, citizen(), id)

	assert.Nil(t, incident)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListIncidents_Views(t *testing.T) {
	ctx := context.Background()

	t.Run("organization view restricted to actor categories", func(t *testing.T) {
		f := newTestIncidentService(t)
		actor := responder(models.RolePolice, models.OrgTypePolice)
		f.repo.EXPECT().
			List(ctx, models.IncidentFilter{
				Categories: []models.Category{models.CategoryAccident, models.CategorySecurity},
				Page:       1,
				PageSize:   20,
			}).
			Return([]*models.Incident{}, nil).Times(1)

		_, err := f.service.ListIncidents(ctx, actor, models.IncidentQuery{View: models.ViewOrganization})
		require.NoError(t, err)
	})

	t.Run("organization view with foreign category is empty", func(t *testing.T) {
		f := newTestIncidentService(t)
		actor := responder(models.RolePolice, models.OrgTypePolice)

		incidents, err := f.service.ListIncidents(ctx, actor, models.IncidentQuery{View: models.ViewOrganization, Category: models.CategoryFire})
		require.NoError(t, err)
		assert.Empty(t, incidents)
	})

	t.Run("organization view without scope is forbidden", func(t *testing.T) {
		f := newTestIncidentService(t)
		_, err := f.service.ListIncidents(ctx, citizen(), models.IncidentQuery{View: models.ViewOrganization})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("inactive organization has no scope", func(t *testing.T) {
		f := newTestIncidentService(t)
		_, err := f.service.ListIncidents(ctx, responder(models.RoleFireDept), models.IncidentQuery{View: models.ViewOrganization})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("mine view filters by reporter", func(t *testing.T) {
		f := newTestIncidentService(t)
		actor := citizen()
		f.repo.EXPECT().
			List(ctx, models.IncidentFilter{
				Statuses:   []models.Status{models.StatusPending},
				ReporterID: &actor.ID,
				Page:       2,
				PageSize:   20,
			}).
			Return([]*models.Incident{}, nil).Times(1)

		_, err := f.service.ListIncidents(ctx, actor, models.IncidentQuery{View: models.ViewMine, Status: models.StatusPending, Page: 2, PageSize: 500})
		require.NoError(t, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newTestIncidentService(t)
		_, err := f.service.ListIncidents(ctx, citizen(), models.IncidentQuery{Status: "open"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestVerifyIncident_SelfVerification(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	actor := citizen()
	incident := pendingIncident(models.CategoryFire)
	incident.ReporterID = actor.ID

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)

	_, err := f.service.VerifyIncident(ctx, actor, incident.ID)
	assert.ErrorIs(t, err, apperr.ErrDuplicateAction)
}

func TestVerifyIncident_Resolved(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	incident := pendingIncident(models.CategoryFire)
	incident.Status = models.StatusResolved

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)

	_, err := f.service.VerifyIncident(ctx, citizen(), incident.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestVerifyIncident_OutsideCategory(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	incident := pendingIncident(models.CategorySecurity)

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)

	_, err := f.service.VerifyIncident(ctx, responder(models.RoleFireDept, models.OrgTypeFire), incident.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestVerifyIncident_CommunityBelowThreshold(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	actor := citizen()
	incident := pendingIncident(models.CategoryMedical)
	counted := *incident
	counted.VerificationCount = 1

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
	f.repo.EXPECT().
		RecordVerification(ctx, gomock.Any(), 3).
		DoAndReturn(func(_ context.Context, v *models.Verification, _ int) (*models.VerificationOutcome, error) {
			assert.Equal(t, models.VerificationCommunity, v.Kind)
			assert.Equal(t, actor.ID, v.ActorID)
			return &models.VerificationOutcome{Incident: &counted, Verification: v}, nil
		}).Times(1)
	f.cache.EXPECT().SetIncident(ctx, &counted).Return(nil).Times(1)
	// Переход не произошел, событие не публикуется

	outcome, err := f.service.VerifyIncident(ctx, actor, incident.ID)

	require.NoError(t, err)
	assert.False(t, outcome.StatusChanged)
	assert.Equal(t, 1, outcome.Incident.VerificationCount)
}

func TestVerifyIncident_DirectPublishesOnce(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	actor := responder(models.RolePolice, models.OrgTypePolice)
	incident := pendingIncident(models.CategoryAccident)
	verified := *incident
	verified.Status = models.StatusVerified
	verified.VerifiedBy = &actor.ID

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
	f.repo.EXPECT().
		RecordVerification(ctx, gomock.Any(), 3).
		DoAndReturn(func(_ context.Context, v *models.Verification, _ int) (*models.VerificationOutcome, error) {
			assert.Equal(t, models.VerificationDirect, v.Kind)
			return &models.VerificationOutcome{Incident: &verified, Verification: v, StatusChanged: true}, nil
		}).Times(1)
	f.cache.EXPECT().SetIncident(ctx, &verified).Return(nil).Times(1)
	f.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e webhook.Event) error {
			assert.Equal(t, webhook.EventIncidentVerified, e.Type)
			assert.Equal(t, actor.ID, e.ActorID)
			return nil
		}).Times(1)

	outcome, err := f.service.VerifyIncident(ctx, actor, incident.ID)

	require.NoError(t, err)
	assert.True(t, outcome.StatusChanged)
	assert.Equal(t, models.StatusVerified, outcome.Incident.Status)
}

func TestVerifyIncident_PublishFailureIsNotFatal(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	incident := pendingIncident(models.CategoryFire)
	verified := *incident
	verified.Status = models.StatusVerified

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
	f.repo.EXPECT().RecordVerification(ctx, gomock.Any(), 3).
		Return(&models.VerificationOutcome{Incident: &verified, StatusChanged: true}, nil).Times(1)
	f.cache.EXPECT().SetIncident(ctx, &verified).Return(errors.New("redis down")).Times(1)
	f.cache.EXPECT().InvalidateIncident(ctx, incident.ID).Return(errors.New("redis down")).Times(1)
	f.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("queue unavailable")).Times(1)

	outcome, err := f.service.VerifyIncident(ctx, citizen(), incident.ID)

	require.NoError(t, err)
	assert.True(t, outcome.StatusChanged)
}

func TestVerifyIncident_RepositoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"duplicate", ErrDuplicateVerification, apperr.ErrDuplicateAction},
		{"resolved concurrently", ErrStatusConflict, apperr.ErrInvalidTransition},
		{"vanished", ErrNotFound, apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestIncidentService(t)
			ctx := context.Background()
			incident := pendingIncident(models.CategoryFire)

			f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
			f.repo.EXPECT().RecordVerification(ctx, gomock.Any(), 3).Return(nil, tt.repoErr).Times(1)

			_, err := f.service.VerifyIncident(ctx, citizen(), incident.ID)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyIncident_InternalError(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	incident := pendingIncident(models.CategoryFire)

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
	f.repo.EXPECT().RecordVerification(ctx, gomock.Any(), 3).Return(nil, errors.New("connection reset")).Times(1)

	_, err := f.service.VerifyIncident(ctx, citizen(), incident.ID)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "internal server error", apperr.MessageOf(err))
}

func TestResolveIncident_Success(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	actor := responder(models.RoleFireDept, models.OrgTypeFire)
	incident := pendingIncident(models.CategoryFire)
	incident.Status = models.StatusVerified
	resolved := *incident
	resolved.Status = models.StatusResolved
	resolved.ResolvedBy = &actor.ID

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
	f.repo.EXPECT().
		ConditionalUpdateStatus(ctx, incident.ID, models.StatusVerified, models.StatusResolved, actor.ID).
		Return(&resolved, nil).Times(1)
	f.cache.EXPECT().SetIncident(ctx, &resolved).Return(nil).Times(1)
	f.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e webhook.Event) error {
			assert.Equal(t, webhook.EventIncidentResolved, e.Type)
			return nil
		}).Times(1)

	got, err := f.service.ResolveIncident(ctx, actor, incident.ID)

	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, &actor.ID, got.ResolvedBy)
}

func TestResolveIncident_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		f := newTestIncidentService(t)
		incident := pendingIncident(models.CategoryFire)
		f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)

		_, err := f.service.ResolveIncident(ctx, responder(models.RoleFireDept, models.OrgTypeFire), incident.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("citizen", func(t *testing.T) {
		f := newTestIncidentService(t)
		incident := pendingIncident(models.CategoryFire)
		incident.Status = models.StatusVerified
		f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)

		_, err := f.service.ResolveIncident(ctx, citizen(), incident.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("medical staff on fire", func(t *testing.T) {
		f := newTestIncidentService(t)
		incident := pendingIncident(models.CategoryFire)
		incident.Status = models.StatusVerified
		f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)

		_, err := f.service.ResolveIncident(ctx, responder(models.RoleMedicalStaff, models.OrgTypeMedical), incident.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("lost race", func(t *testing.T) {
		f := newTestIncidentService(t)
		actor := responder(models.RoleFireDept, models.OrgTypeFire)
		incident := pendingIncident(models.CategoryFire)
		incident.Status = models.StatusVerified
		f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
		f.repo.EXPECT().
			ConditionalUpdateStatus(ctx, incident.ID, models.StatusVerified, models.StatusResolved, actor.ID).
			Return(nil, ErrStatusConflict).Times(1)

		_, err := f.service.ResolveIncident(ctx, actor, incident.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("not found", func(t *testing.T) {
		f := newTestIncidentService(t)
		id := uuid.New()
		f.repo.EXPECT().GetByID(ctx, id).Return(nil, ErrNotFound).Times(1)

		_, err := f.service.ResolveIncident(ctx, responder(models.RoleFireDept, models.OrgTypeFire), id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestGetStats(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	expected := &models.IncidentStats{Pending: 2, Verified: 1, Total: 3}

	f.repo.EXPECT().Stats(ctx).Return(expected, nil).Times(1)

	stats, err := f.service.GetStats(ctx, citizen())
	require.NoError(t, err)
	assert.Equal(t, expected, stats)

	_, err = f.service.GetStats(ctx, nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestListVerifications(t *testing.T) {
	f := newTestIncidentService(t)
	ctx := context.Background()
	incident := pendingIncident(models.CategoryFire)
	expected := []*models.Verification{{ID: uuid.New(), IncidentID: incident.ID, Kind: models.VerificationCommunity}}

	f.repo.EXPECT().GetByID(ctx, incident.ID).Return(incident, nil).Times(1)
	f.repo.EXPECT().ListVerifications(ctx, incident.ID).Return(expected, nil).Times(1)

	got, err := f.service.ListVerifications(ctx, citizen(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}
