package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationKind различает подтверждение сообщества и прямое подтверждение сотрудником
type VerificationKind string

const (
	VerificationCommunity VerificationKind = "community"
	VerificationDirect    VerificationKind = "direct"
)

// Verification - запись о том, что актор подтвердил инцидент.
// На пару (IncidentID, ActorID) существует не более одной записи.
type Verification struct {
	ID         uuid.UUID        `json:"id"`
	IncidentID uuid.UUID        `json:"incident_id"`
	ActorID    uuid.UUID        `json:"actor_id"`
	Kind       VerificationKind `json:"kind"`
	CreatedAt  time.Time        `json:"created_at"`
}

// VerificationOutcome - результат атомарной записи подтверждения
type VerificationOutcome struct {
	Incident      *Incident
	Verification  *Verification
	StatusChanged bool
}
