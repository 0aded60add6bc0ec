package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) *Policy {
	p, err := New()
	require.NoError(t, err)
	return p
}

func staffActor(role models.Role, types ...models.OrgType) *models.Actor {
	orgID := uuid.New()
	return &models.Actor{
		ID:                uuid.New(),
		Role:              role,
		OrganizationID:    &orgID,
		OrganizationTypes: types,
	}
}

func TestCategoryMapping_ExactPairs(t *testing.T) {
	p := newTestPolicy(t)
	expected := map[models.Category]models.OrgType{
		models.CategoryFire:     models.OrgTypeFire,
		models.CategoryMedical:  models.OrgTypeMedical,
		models.CategoryAccident: models.OrgTypePolice,
		models.CategorySecurity: models.OrgTypePolice,
	}

	for _, role := range []models.Role{models.RolePolice, models.RoleFireDept, models.RoleMedicalStaff, models.RoleModerator} {
		for _, category := range models.Categories {
			for _, orgType := range models.OrgTypes {
				actor := staffActor(role, orgType)
				res := Resource{Kind: ResourceIncident, Category: category, OwnerID: uuid.New()}

				for _, action := range []Action{ActionVerify, ActionResolve} {
					err := p.Authorize(actor, action, res)
					if expected[category] == orgType {
						assert.NoError(t, err, "%s/%s/%s/%s", role, category, orgType, action)
					} else {
						assert.ErrorIs(t, err, apperr.ErrForbidden, "%s/%s/%s/%s", role, category, orgType, action)
					}
				}

				assert.NoError(t, p.Authorize(actor, ActionRead, res), "staff read elsewhere")
			}
		}
	}
}

func TestFireDeptCannotResolveSecurity(t *testing.T) {
	p := newTestPolicy(t)
	actor := staffActor(models.RoleFireDept, models.OrgTypeFire)

	err := p.Authorize(actor, ActionResolve, Resource{Kind: ResourceIncident, Category: models.CategorySecurity})

	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestInactiveOrganizationHasNoCategoryScope(t *testing.T) {
	p := newTestPolicy(t)
	actor := staffActor(models.RolePolice)

	err := p.Authorize(actor, ActionResolve, Resource{Kind: ResourceIncident, Category: models.CategoryAccident})

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, p.CategoriesFor(actor))
}

func TestSuperAdminAllowedEverything(t *testing.T) {
	p := newTestPolicy(t)
	admin := &models.Actor{ID: uuid.New(), Role: models.RoleSuperAdmin}

	for _, kind := range []ResourceKind{ResourceIncident, ResourceUser, ResourceOrganization, ResourceContact, ResourceProfile, ResourcePrivilegedRole} {
		for _, action := range []Action{ActionCreate, ActionRead, ActionVerify, ActionResolve, ActionManage} {
			assert.NoError(t, p.Authorize(admin, action, Resource{Kind: kind, Category: models.CategoryMedical, OwnerID: uuid.New()}))
		}
	}
	assert.Equal(t, models.Categories, p.CategoriesFor(admin))
}

func TestCitizenRules(t *testing.T) {
	p := newTestPolicy(t)
	citizen := &models.Actor{ID: uuid.New(), Role: models.RoleCitizen}
	other := uuid.New()

	assert.NoError(t, p.Authorize(citizen, ActionCreate, Resource{Kind: ResourceIncident, Category: models.CategoryFire}))
	assert.NoError(t, p.Authorize(citizen, ActionVerify, Resource{Kind: ResourceIncident, Category: models.CategoryFire, OwnerID: other}))
	assert.ErrorIs(t, p.Authorize(citizen, ActionVerify, Resource{Kind: ResourceIncident, Category: models.CategoryFire, OwnerID: citizen.ID}), apperr.ErrForbidden)
	assert.ErrorIs(t, p.Authorize(citizen, ActionResolve, Resource{Kind: ResourceIncident, Category: models.CategoryFire, OwnerID: other}), apperr.ErrForbidden)

	assert.NoError(t, p.Authorize(citizen, ActionManage, Resource{Kind: ResourceContact, OwnerID: citizen.ID}))
	assert.ErrorIs(t, p.Authorize(citizen, ActionManage, Resource{Kind: ResourceContact, OwnerID: other}), apperr.ErrForbidden)
	assert.ErrorIs(t, p.Authorize(citizen, ActionManage, Resource{Kind: ResourceUser}), apperr.ErrForbidden)
	assert.ErrorIs(t, p.Authorize(citizen, ActionCreate, Resource{Kind: ResourceOrganization}), apperr.ErrForbidden)
	assert.Empty(t, p.CategoriesFor(citizen))
}

func TestModeratorManagesOwnOrganizationOnly(t *testing.T) {
	p := newTestPolicy(t)
	moderator := staffActor(models.RoleModerator, models.OrgTypePolice)
	foreignOrg := uuid.New()

	assert.NoError(t, p.Authorize(moderator, ActionManage, Resource{Kind: ResourceUser, OrganizationID: moderator.OrganizationID}))
	assert.ErrorIs(t, p.Authorize(moderator, ActionManage, Resource{Kind: ResourceUser, OrganizationID: &foreignOrg}), apperr.ErrForbidden)
	assert.ErrorIs(t, p.Authorize(moderator, ActionManage, Resource{Kind: ResourceUser}), apperr.ErrForbidden)
	assert.ErrorIs(t, p.Authorize(moderator, ActionManage, Resource{Kind: ResourcePrivilegedRole}), apperr.ErrForbidden)
	assert.Equal(t, []models.Category{models.CategoryAccident, models.CategorySecurity}, p.CategoriesFor(moderator))
}

func TestResponderCannotManageUsers(t *testing.T) {
	p := newTestPolicy(t)
	police := staffActor(models.RolePolice, models.OrgTypePolice)

	err := p.Authorize(police, ActionManage, Resource{Kind: ResourceUser, OrganizationID: police.OrganizationID})

	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAnonymous(t *testing.T) {
	p := newTestPolicy(t)

	assert.NoError(t, p.Authorize(nil, ActionCreate, Resource{Kind: ResourceAccount}))
	assert.NoError(t, p.Authorize(nil, ActionCreate, Resource{Kind: ResourceSession}))

	for _, kind := range []ResourceKind{ResourceIncident, ResourceUser, ResourceOrganization, ResourceContact, ResourceProfile} {
		for _, action := range []Action{ActionCreate, ActionRead, ActionVerify, ActionResolve, ActionManage} {
			err := p.Authorize(nil, action, Resource{Kind: kind, Category: models.CategoryFire})
			assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err), "%s %s", action, kind)
		}
	}
}
