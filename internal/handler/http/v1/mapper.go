package v1

import "github.com/rindwa/rindwa_api/internal/models"

// DTOToIncidentModel преобразует DTO создания в доменную модель
func DTOToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	incident := &models.Incident{
		Title:       dto.Title,
		Description: dto.Description,
		Category:    models.Category(dto.Category),
		MediaURLs:   dto.MediaURLs,
	}
	if dto.Location != nil {
		incident.Location = &models.Location{
			Address:   dto.Location.Address,
			Latitude:  dto.Location.Latitude,
			Longitude: dto.Location.Longitude,
		}
	}
	return incident
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	resp := &IncidentResponse{
		ID:                model.ID,
		Title:             model.Title,
		Description:       model.Description,
		Category:          string(model.Category),
		Status:            string(model.Status),
		ReporterID:        model.ReporterID,
		MediaURLs:         model.MediaURLs,
		VerificationCount: model.VerificationCount,
		VerifiedBy:        model.VerifiedBy,
		VerifiedAt:        model.VerifiedAt,
		ResolvedBy:        model.ResolvedBy,
		ResolvedAt:        model.ResolvedAt,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
	if !model.Location.IsZero() {
		resp.Location = &LocationDTO{
			Address:   model.Location.Address,
			Latitude:  model.Location.Latitude,
			Longitude: model.Location.Longitude,
		}
	}
	return resp
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelToVerificationResponse(model *models.Verification) *VerificationResponse {
	return &VerificationResponse{
		ID:         model.ID,
		IncidentID: model.IncidentID,
		ActorID:    model.ActorID,
		Kind:       string(model.Kind),
		CreatedAt:  model.CreatedAt,
	}
}

func ModelsToVerificationResponses(models []*models.Verification) []*VerificationResponse {
	responses := make([]*VerificationResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToVerificationResponse(model)
	}
	return responses
}

func OutcomeToVerifyResponse(outcome *models.VerificationOutcome) *VerifyResponse {
	resp := &VerifyResponse{
		Incident:      ModelToIncidentResponse(outcome.Incident),
		StatusChanged: outcome.StatusChanged,
	}
	if outcome.Verification != nil {
		resp.Verification = ModelToVerificationResponse(outcome.Verification)
	}
	return resp
}

func ModelToUserResponse(model *models.User) *UserResponse {
	return &UserResponse{
		ID:             model.ID,
		Email:          model.Email,
		FullName:       model.FullName,
		Phone:          model.Phone,
		Role:           string(model.Role),
		OrganizationID: model.OrganizationID,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func ModelsToUserResponses(models []*models.User) []*UserResponse {
	responses := make([]*UserResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToUserResponse(model)
	}
	return responses
}

func ModelToSessionResponse(model *models.Session) *SessionResponse {
	return &SessionResponse{
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		User:      ModelToUserResponse(model.User),
	}
}

func orgTypes(types []string) []models.OrgType {
	if types == nil {
		return nil
	}
	result := make([]models.OrgType, len(types))
	for i, t := range types {
		result[i] = models.OrgType(t)
	}
	return result
}

func ModelToOrganizationResponse(model *models.Organization) *OrganizationResponse {
	types := make([]string, len(model.Types))
	for i, t := range model.Types {
		types[i] = string(t)
	}
	return &OrganizationResponse{
		ID:        model.ID,
		Name:      model.Name,
		Types:     types,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func ModelsToOrganizationResponses(models []*models.Organization) []*OrganizationResponse {
	responses := make([]*OrganizationResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToOrganizationResponse(model)
	}
	return responses
}

func DTOToContactModel(dto ContactRequest) *models.EmergencyContact {
	return &models.EmergencyContact{
		Name:         dto.Name,
		Phone:        dto.Phone,
		Relationship: dto.Relationship,
		IsPrimary:    dto.IsPrimary,
	}
}

func ModelToContactResponse(model *models.EmergencyContact) *ContactResponse {
	return &ContactResponse{
		ID:           model.ID,
		Name:         model.Name,
		Phone:        model.Phone,
		Relationship: model.Relationship,
		IsPrimary:    model.IsPrimary,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func ModelsToContactResponses(models []*models.EmergencyContact) []*ContactResponse {
	responses := make([]*ContactResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToContactResponse(model)
	}
	return responses
}
