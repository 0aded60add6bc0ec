// Package policy - единственный источник правил доступа.
//
// Правила записаны таблицей (роль, ресурс, действие, область) и исполняются
// casbin. Область описывает, какое отношение между актором и ресурсом требуется:
// any - без условий, category - категория инцидента относится к типу активной
// организации актора, organization - ресурс принадлежит организации актора,
// own - актор владеет ресурсом, others - актор не является владельцем.
package policy

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/rindwa/rindwa_api/internal/models"
)

//go:embed model.conf
var modelConf string

type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionVerify  Action = "verify"
	ActionResolve Action = "resolve"
	ActionManage  Action = "manage"
)

type ResourceKind string

const (
	ResourceIncident     ResourceKind = "incident"
	ResourceUser         ResourceKind = "user"
	ResourceOrganization ResourceKind = "organization"
	ResourceContact      ResourceKind = "contact"
	ResourceProfile      ResourceKind = "profile"
	ResourceAccount      ResourceKind = "account"
	ResourceSession      ResourceKind = "session"
	// ResourcePrivilegedRole - выдача ролей moderator и super_admin
	ResourcePrivilegedRole ResourceKind = "privileged_role"
)

type Scope string

const (
	ScopeAny          Scope = "any"
	ScopeCategory     Scope = "category"
	ScopeOrganization Scope = "organization"
	ScopeOwn          Scope = "own"
	ScopeOthers       Scope = "others"
)

const roleAnonymous = "anonymous"

// Resource описывает объект проверки. Незаполненные поля не дают соответствующих областей.
type Resource struct {
	Kind           ResourceKind
	Category       models.Category
	OwnerID        uuid.UUID
	OrganizationID *uuid.UUID
}

// Rule - строка таблицы политики
type Rule struct {
	Role     string
	Resource ResourceKind
	Action   Action
	Scope    Scope
}

func responderRules(role models.Role) []Rule {
	r := string(role)
	return []Rule{
		{r, ResourceIncident, ActionCreate, ScopeAny},
		{r, ResourceIncident, ActionRead, ScopeAny},
		{r, ResourceIncident, ActionVerify, ScopeCategory},
		{r, ResourceIncident, ActionResolve, ScopeCategory},
		{r, ResourceOrganization, ActionRead, ScopeAny},
		{r, ResourceProfile, ActionManage, ScopeOwn},
		{r, ResourceContact, ActionManage, ScopeOwn},
	}
}

// Rules возвращает полную таблицу политики
func Rules() []Rule {
	rules := []Rule{
		{string(models.RoleSuperAdmin), "*", "*", ScopeAny},

		{string(models.RoleCitizen), ResourceIncident, ActionCreate, ScopeAny},
		{string(models.RoleCitizen), ResourceIncident, ActionRead, ScopeAny},
		{string(models.RoleCitizen), ResourceIncident, ActionVerify, ScopeOthers},
		{string(models.RoleCitizen), ResourceOrganization, ActionRead, ScopeAny},
		{string(models.RoleCitizen), ResourceProfile, ActionManage, ScopeOwn},
		{string(models.RoleCitizen), ResourceContact, ActionManage, ScopeOwn},

		{string(models.RoleModerator), ResourceUser, ActionRead, ScopeOrganization},
		{string(models.RoleModerator), ResourceUser, ActionManage, ScopeOrganization},

		{roleAnonymous, ResourceAccount, ActionCreate, ScopeAny},
		{roleAnonymous, ResourceSession, ActionCreate, ScopeAny},
	}
	for _, role := range []models.Role{models.RoleModerator, models.RolePolice, models.RoleFireDept, models.RoleMedicalStaff} {
		rules = append(rules, responderRules(role)...)
	}
	return rules
}

type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

// New собирает enforcer из встроенной модели и таблицы Rules
func New() (*Policy, error) {
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy enforcer: %w", err)
	}

	rules := Rules()
	lines := make([][]string, 0, len(rules))
	for _, r := range rules {
		lines = append(lines, []string{r.Role, string(r.Resource), string(r.Action), string(r.Scope)})
	}
	if _, err := e.AddPolicies(lines); err != nil {
		return nil, fmt.Errorf("failed to load policy rules: %w", err)
	}
	return &Policy{enforcer: e}, nil
}

// Authorize проверяет, может ли actor выполнить action над res.
// nil actor означает неаутентифицированный запрос.
func (p *Policy) Authorize(actor *models.Actor, action Action, res Resource) error {
	role := roleAnonymous
	if actor != nil {
		role = string(actor.Role)
	}

	for _, scope := range scopesFor(actor, res) {
		ok, err := p.enforcer.Enforce(role, string(res.Kind), string(action), string(scope))
		if err != nil {
			return apperr.Internal(err, "policy evaluation failed")
		}
		if ok {
			return nil
		}
	}

	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	return apperr.Forbidden("role %s may not %s %s", role, action, res.Kind)
}

// CategoriesFor возвращает категории, которые актор может разрешать (resolve).
// Используется для серверной фильтрации представления организации.
func (p *Policy) CategoriesFor(actor *models.Actor) []models.Category {
	result := make([]models.Category, 0, len(models.Categories))
	if actor == nil {
		return result
	}
	for _, c := range models.Categories {
		if p.Authorize(actor, ActionResolve, Resource{Kind: ResourceIncident, Category: c}) == nil {
			result = append(result, c)
		}
	}
	return result
}

// scopesFor перечисляет области, которым удовлетворяет пара (actor, res).
// ScopeAny присутствует всегда.
func scopesFor(actor *models.Actor, res Resource) []Scope {
	scopes := []Scope{ScopeAny}
	if actor == nil {
		return scopes
	}

	if res.Category != "" {
		if required, ok := models.CategoryOrgType(res.Category); ok {
			for _, t := range actor.OrganizationTypes {
				if t == required {
					scopes = append(scopes, ScopeCategory)
					break
				}
			}
		}
	}

	if res.OwnerID != uuid.Nil {
		if res.OwnerID == actor.ID {
			scopes = append(scopes, ScopeOwn)
		} else {
			scopes = append(scopes, ScopeOthers)
		}
	}

	if res.OrganizationID != nil && actor.OrganizationID != nil && *res.OrganizationID == *actor.OrganizationID {
		scopes = append(scopes, ScopeOrganization)
	}
	return scopes
}
