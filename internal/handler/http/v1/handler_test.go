package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testToken = "test-token"

type handlerFixture struct {
	router    *gin.Engine
	actor     *models.Actor
	auth      *mocks.MockAuthService
	incidents *mocks.MockIncidentService
	users     *mocks.MockUserService
	orgs      *mocks.MockOrganizationService
	contacts  *mocks.MockContactService
}

// newTestHandler создает роутер с мокированными сервисами.
// testToken аутентифицирует гражданина f.actor.
func newTestHandler(t *testing.T) handlerFixture {
	ctrl := gomock.NewController(t)
	f := handlerFixture{
		actor:     &models.Actor{ID: uuid.New(), Role: models.RoleCitizen},
		auth:      mocks.NewMockAuthService(ctrl),
		incidents: mocks.NewMockIncidentService(ctrl),
		users:     mocks.NewMockUserService(ctrl),
		orgs:      mocks.NewMockOrganizationService(ctrl),
		contacts:  mocks.NewMockContactService(ctrl),
	}
	f.auth.EXPECT().Authenticate(gomock.Any(), testToken).Return(f.actor, nil).AnyTimes()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	handler := NewHandler(Services{
		Auth:          f.auth,
		Incidents:     f.incidents,
		Users:         f.users,
		Organizations: f.orgs,
		Contacts:      f.contacts,
	}, logger)

	gin.SetMode(gin.TestMode)
	f.router = gin.New()
	handler.RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testToken}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	f := newTestHandler(t)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		f := newTestHandler(t)
		w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthenticated", decodeError(t, w).Kind)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		f := newTestHandler(t)
		w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents", nil, map[string]string{"Authorization": "Basic abc"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		f := newTestHandler(t)
		f.auth.EXPECT().Authenticate(gomock.Any(), "expired").Return(nil, apperr.Unauthenticated("token has expired")).Times(1)

		w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents", nil, map[string]string{"Authorization": "Bearer expired"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, ErrorResponse{Error: "token has expired", Kind: "unauthenticated"}, decodeError(t, w))
	})
}

func TestCreateIncident_Success(t *testing.T) {
	f := newTestHandler(t)
	incidentID := uuid.New()
	lat, lng := -1.9441, 30.0619
	reqBody := CreateIncidentRequest{
		Title:       "House fire",
		Description: "Smoke from the roof",
		Category:    "fire",
		Location:    &LocationDTO{Address: "KN 3 Rd", Latitude: &lat, Longitude: &lng},
	}

	f.incidents.EXPECT().
		CreateIncident(gomock.Any(), f.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.Actor, inc *models.Incident) error {
			assert.Equal(t, models.CategoryFire, inc.Category)
			require.NotNil(t, inc.Location)
			assert.Equal(t, lat, *inc.Location.Latitude)
			inc.ID = incidentID
			inc.Status = models.StatusPending
			inc.ReporterID = f.actor.ID
			inc.CreatedAt = time.Now()
			return nil
		}).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents", jsonBody(t, reqBody), bearer())

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 0, resp.VerificationCount)
	assert.Equal(t, "KN 3 Rd", resp.Location.Address)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	f := newTestHandler(t)

	f.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents", bytes.NewBufferString(`{"title": "test"`), bearer())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	lat := 123.0
	tests := []struct {
		name    string
		body    CreateIncidentRequest
		message string
	}{
		{"missing title", CreateIncidentRequest{Description: "d", Category: "fire"}, "'Title' failed on the 'required' tag"},
		{"unknown category", CreateIncidentRequest{Title: "t", Description: "d", Category: "flood"}, "'Category' failed on the 'oneof' tag"},
		{"latitude out of range", CreateIncidentRequest{Title: "t", Description: "d", Category: "fire", Location: &LocationDTO{Latitude: &lat}}, "'Latitude' failed on the 'latitude' tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestHandler(t)
			f.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents", jsonBody(t, tt.body), bearer())

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "validation_error", resp.Kind)
			assert.Contains(t, resp.Error, tt.message)
		})
	}
}

func TestListIncidents_PassesQuery(t *testing.T) {
	f := newTestHandler(t)
	expected := models.IncidentQuery{
		Status:   models.StatusVerified,
		Category: models.CategoryMedical,
		View:     models.ViewOrganization,
		Page:     2,
		PageSize: 50,
	}

	f.incidents.EXPECT().
		ListIncidents(gomock.Any(), f.actor, expected).
		Return([]*models.Incident{{ID: uuid.New(), Status: models.StatusVerified}}, nil).Times(1)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents?status=verified&category=medical&view=organization&page=2&page_size=50", nil, bearer())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestListIncidents_Forbidden(t *testing.T) {
	f := newTestHandler(t)
	f.incidents.EXPECT().
		ListIncidents(gomock.Any(), f.actor, gomock.Any()).
		Return(nil, apperr.Forbidden("no category scope")).Times(1)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents?view=organization", nil, bearer())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Kind)
}

func TestGetIncident(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		f := newTestHandler(t)
		w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents/not-a-uuid", nil, bearer())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid incident ID")
	})

	t.Run("not found", func(t *testing.T) {
		f := newTestHandler(t)
		id := uuid.New()
		f.incidents.EXPECT().GetIncident(gomock.Any(), f.actor, id).Return(nil, apperr.NotFound("incident %s not found", id)).Times(1)

		w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil, bearer())

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Kind)
	})

	t.Run("internal error hides details", func(t *testing.T) {
		f := newTestHandler(t)
		id := uuid.New()
		f.incidents.EXPECT().GetIncident(gomock.Any(), f.actor, id).
			Return(nil, apperr.Internal(errors.New("connection refused"), "could not load incident")).Times(1)

		w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil, bearer())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, ErrorResponse{Error: "internal server error", Kind: "internal"}, decodeError(t, w))
	})
}

func TestVerifyIncident(t *testing.T) {
	t.Run("status changed", func(t *testing.T) {
		f := newTestHandler(t)
		id := uuid.New()
		outcome := &models.VerificationOutcome{
			Incident:      &models.Incident{ID: id, Status: models.StatusVerified, VerificationCount: 3},
			Verification:  &models.Verification{ID: uuid.New(), IncidentID: id, ActorID: f.actor.ID, Kind: models.VerificationCommunity},
			StatusChanged: true,
		}
		f.incidents.EXPECT().VerifyIncident(gomock.Any(), f.actor, id).Return(outcome, nil).Times(1)

		w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/verify", nil, bearer())

		assert.Equal(t, http.StatusOK, w.Code)
		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.StatusChanged)
		assert.Equal(t, "verified", resp.Incident.Status)
		assert.Equal(t, "community", resp.Verification.Kind)
	})

	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"duplicate", apperr.DuplicateAction("you have already verified this incident"), http.StatusConflict, "duplicate_action"},
		{"resolved", apperr.InvalidTransition("incident is already resolved"), http.StatusConflict, "invalid_transition"},
		{"outside category", apperr.Forbidden("role police may not verify incident"), http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestHandler(t)
			id := uuid.New()
			f.incidents.EXPECT().VerifyIncident(gomock.Any(), f.actor, id).Return(nil, tt.err).Times(1)

			w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/verify", nil, bearer())

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, ErrorResponse{Error: apperr.MessageOf(tt.err), Kind: tt.kind}, decodeError(t, w))
		})
	}
}

func TestResolveIncident(t *testing.T) {
	f := newTestHandler(t)
	id := uuid.New()
	resolvedBy := f.actor.ID
	f.incidents.EXPECT().ResolveIncident(gomock.Any(), f.actor, id).
		Return(&models.Incident{ID: id, Status: models.StatusResolved, ResolvedBy: &resolvedBy}, nil).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/resolve", nil, bearer())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "resolved", resp.Status)
	require.NotNil(t, resp.ResolvedBy)
	assert.Equal(t, resolvedBy, *resp.ResolvedBy)
}

func TestResolveIncident_Pending(t *testing.T) {
	f := newTestHandler(t)
	id := uuid.New()
	f.incidents.EXPECT().ResolveIncident(gomock.Any(), f.actor, id).
		Return(nil, apperr.InvalidTransition("cannot resolve an incident in status pending")).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/resolve", nil, bearer())

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, w).Kind)
}

func TestIncidents_NoDeleteOrUpdateRoute(t *testing.T) {
	f := newTestHandler(t)
	id := uuid.New().String()

	w := makeRequest(f.router, http.MethodDelete, "/api/v1/incidents/"+id, nil, bearer())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = makeRequest(f.router, http.MethodPut, "/api/v1/incidents/"+id, bytes.NewBufferString(`{}`), bearer())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	f := newTestHandler(t)
	f.incidents.EXPECT().GetStats(gomock.Any(), f.actor).
		Return(&models.IncidentStats{Pending: 2, Verified: 1, Resolved: 4, Total: 7}, nil).Times(1)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents/stats", nil, bearer())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending":2,"verified":1,"resolved":4,"total":7}`, w.Body.String())
}

func TestListVerifications(t *testing.T) {
	f := newTestHandler(t)
	id := uuid.New()
	f.incidents.EXPECT().ListVerifications(gomock.Any(), f.actor, id).
		Return([]*models.Verification{{ID: uuid.New(), IncidentID: id, Kind: models.VerificationDirect}}, nil).Times(1)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/incidents/"+id.String()+"/verifications", nil, bearer())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []VerificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "direct", resp[0].Kind)
}

func TestRegister(t *testing.T) {
	f := newTestHandler(t)
	user := &models.User{ID: uuid.New(), Email: "amina@example.com", Role: models.RoleCitizen}

	f.auth.EXPECT().
		Register(gomock.Any(), models.Registration{Email: "amina@example.com", Password: "correct horse", FullName: "Amina"}).
		Return(&models.Session{Token: "jwt", ExpiresAt: time.Now().Add(time.Hour), User: user}, nil).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/auth/register", jsonBody(t, RegisterRequest{
		Email:    "amina@example.com",
		Password: "correct horse",
		FullName: "Amina",
	}))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, "citizen", resp.User.Role)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_ShortPassword(t *testing.T) {
	f := newTestHandler(t)
	f.auth.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/auth/register", jsonBody(t, RegisterRequest{
		Email:    "amina@example.com",
		Password: "short",
		FullName: "Amina",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newTestHandler(t)
	f.auth.EXPECT().Login(gomock.Any(), "a@example.com", "wrong").
		Return(nil, apperr.Unauthenticated("invalid email or password")).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/auth/login", jsonBody(t, LoginRequest{Email: "a@example.com", Password: "wrong"}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decodeError(t, w).Error)
}

func TestProfile(t *testing.T) {
	f := newTestHandler(t)
	user := &models.User{ID: f.actor.ID, FullName: "Jean", Role: models.RoleCitizen}

	f.users.EXPECT().GetProfile(gomock.Any(), f.actor).Return(user, nil).Times(1)
	f.users.EXPECT().UpdateProfile(gomock.Any(), f.actor, models.ProfileUpdate{FullName: "Jean", Phone: "0788123456"}).Return(user, nil).Times(1)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/users/me", nil, bearer())
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(f.router, http.MethodPut, "/api/v1/users/me", jsonBody(t, UpdateProfileRequest{FullName: "Jean", Phone: "0788123456"}), bearer())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListUsers(t *testing.T) {
	f := newTestHandler(t)
	orgID := uuid.New()
	f.users.EXPECT().
		ListUsers(gomock.Any(), f.actor, models.UserFilter{OrganizationID: &orgID, Page: 1, PageSize: 20}).
		Return([]*models.User{}, nil).Times(1)

	w := makeRequest(f.router, http.MethodGet, "/api/v1/users?organization_id="+orgID.String(), nil, bearer())
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(f.router, http.MethodGet, "/api/v1/users?organization_id=bad", nil, bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeRole(t *testing.T) {
	f := newTestHandler(t)
	target := uuid.New()
	orgID := uuid.New()

	f.users.EXPECT().
		ChangeRole(gomock.Any(), f.actor, target, models.RoleChange{Role: models.RolePolice, OrganizationID: &orgID}).
		Return(&models.User{ID: target, Role: models.RolePolice, OrganizationID: &orgID}, nil).Times(1)

	w := makeRequest(f.router, http.MethodPut, "/api/v1/users/"+target.String()+"/role",
		jsonBody(t, ChangeRoleRequest{Role: "police", OrganizationID: &orgID}), bearer())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "police", resp.Role)
}

func TestChangeRole_Forbidden(t *testing.T) {
	f := newTestHandler(t)
	target := uuid.New()
	f.users.EXPECT().ChangeRole(gomock.Any(), f.actor, target, gomock.Any()).
		Return(nil, apperr.Forbidden("role citizen may not manage user")).Times(1)

	w := makeRequest(f.router, http.MethodPut, "/api/v1/users/"+target.String()+"/role",
		jsonBody(t, ChangeRoleRequest{Role: "super_admin"}), bearer())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrganizations(t *testing.T) {
	f := newTestHandler(t)
	id := uuid.New()
	inactive := false

	f.orgs.EXPECT().
		CreateOrganization(gomock.Any(), f.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.Actor, org *models.Organization) error {
			assert.Equal(t, []models.OrgType{models.OrgTypeFire}, org.Types)
			org.ID = id
			org.Active = true
			return nil
		}).Times(1)
	f.orgs.EXPECT().
		UpdateOrganization(gomock.Any(), f.actor, id, models.OrganizationUpdate{Active: &inactive}).
		Return(&models.Organization{ID: id, Types: []models.OrgType{models.OrgTypeFire}}, nil).Times(1)
	f.orgs.EXPECT().ListOrganizations(gomock.Any(), f.actor, 1, 20).Return([]*models.Organization{}, nil).Times(1)
	f.orgs.EXPECT().GetOrganization(gomock.Any(), f.actor, id).Return(nil, apperr.NotFound("organization not found")).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/organizations",
		jsonBody(t, CreateOrganizationRequest{Name: "Kigali Fire", Types: []string{"fire"}}), bearer())
	assert.Equal(t, http.StatusCreated, w.Code)

	w = makeRequest(f.router, http.MethodPatch, "/api/v1/organizations/"+id.String(), bytes.NewBufferString(`{"active": false}`), bearer())
	assert.Equal(t, http.StatusOK, w.Code)
	var resp OrganizationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Active)

	w = makeRequest(f.router, http.MethodGet, "/api/v1/organizations", nil, bearer())
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(f.router, http.MethodGet, "/api/v1/organizations/"+id.String(), nil, bearer())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrganization_UnknownType(t *testing.T) {
	f := newTestHandler(t)
	f.orgs.EXPECT().CreateOrganization(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/organizations",
		jsonBody(t, CreateOrganizationRequest{Name: "Army", Types: []string{"army"}}), bearer())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContacts(t *testing.T) {
	f := newTestHandler(t)
	id := uuid.New()
	reqBody := ContactRequest{Name: "Mum", Phone: "+250788123456", Relationship: "mother", IsPrimary: true}

	f.contacts.EXPECT().
		CreateContact(gomock.Any(), f.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.Actor, c *models.EmergencyContact) error {
			c.ID = id
			c.OwnerID = f.actor.ID
			return nil
		}).Times(1)
	f.contacts.EXPECT().ListContacts(gomock.Any(), f.actor).
		Return([]*models.EmergencyContact{{ID: id, Name: "Mum", IsPrimary: true}}, nil).Times(1)
	f.contacts.EXPECT().UpdateContact(gomock.Any(), f.actor, id, gomock.Any()).
		Return(nil, apperr.Forbidden("role citizen may not manage contact")).Times(1)
	f.contacts.EXPECT().DeleteContact(gomock.Any(), f.actor, id).Return(nil).Times(1)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/contacts", jsonBody(t, reqBody), bearer())
	assert.Equal(t, http.StatusCreated, w.Code)
	var created ContactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.IsPrimary)

	w = makeRequest(f.router, http.MethodGet, "/api/v1/contacts", nil, bearer())
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(f.router, http.MethodPut, "/api/v1/contacts/"+id.String(), jsonBody(t, reqBody), bearer())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = makeRequest(f.router, http.MethodDelete, "/api/v1/contacts/"+id.String(), nil, bearer())
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateContact_MissingRelationship(t *testing.T) {
	f := newTestHandler(t)
	f.contacts.EXPECT().CreateContact(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(f.router, http.MethodPost, "/api/v1/contacts", jsonBody(t, ContactRequest{Name: "Mum", Phone: "0788123456"}), bearer())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "Relationship")
}
