package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgType - тип службы организации
type OrgType string

const (
	OrgTypePolice  OrgType = "police"
	OrgTypeFire    OrgType = "fire"
	OrgTypeMedical OrgType = "medical"
	OrgTypeOther   OrgType = "other"
)

// OrgTypes перечисляет все типы организаций
var OrgTypes = []OrgType{OrgTypePolice, OrgTypeFire, OrgTypeMedical, OrgTypeOther}

func (t OrgType) Valid() bool {
	switch t {
	case OrgTypePolice, OrgTypeFire, OrgTypeMedical, OrgTypeOther:
		return true
	}
	return false
}

// categoryOrgType - константа политики: какая служба отвечает за категорию.
var categoryOrgType = map[Category]OrgType{
	CategoryFire:     OrgTypeFire,
	CategoryMedical:  OrgTypeMedical,
	CategoryAccident: OrgTypePolice,
	CategorySecurity: OrgTypePolice,
}

// CategoryOrgType возвращает тип организации, ответственной за категорию
func CategoryOrgType(c Category) (OrgType, bool) {
	t, ok := categoryOrgType[c]
	return t, ok
}

// CategoriesForOrgTypes возвращает категории, за которые отвечают указанные типы,
// в порядке Categories.
func CategoriesForOrgTypes(types []OrgType) []Category {
	result := make([]Category, 0, len(Categories))
	for _, c := range Categories {
		t := categoryOrgType[c]
		for _, have := range types {
			if have == t {
				result = append(result, c)
				break
			}
		}
	}
	return result
}

type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Types     []OrgType `json:"types"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrganizationUpdate - частичное изменение организации; nil поля не меняются
type OrganizationUpdate struct {
	Name   *string
	Types  []OrgType
	Active *bool
}
