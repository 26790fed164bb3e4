package handler

import (
	"time"

	"fundgate/internal/flags"
)

type addFlagRequest struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	FlagCode   string `json:"flagCode"`
	Reason     string `json:"reason"`
	IncidentID string `json:"incidentId,omitempty"`
}

type resolveFlagRequest struct {
	Notes string `json:"notes"`
}

type flagResponse struct {
	ID              string     `json:"id"`
	EntityType      string     `json:"entityType"`
	EntityID        string     `json:"entityId"`
	FlagCode        string     `json:"flagCode"`
	Description     string     `json:"description"`
	Active          bool       `json:"active"`
	Reason          string     `json:"reason"`
	IncidentID      string     `json:"incidentId,omitempty"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	ResolvedBy      string     `json:"resolvedBy,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
}

type decisionResponse struct {
	CanProceed bool     `json:"canProceed"`
	Blockers   []string `json:"blockers"`
}

func toFlagResponse(flag flags.EntityFlag) flagResponse {
	return flagResponse{
		ID:              flag.ID.String(),
		EntityType:      string(flag.EntityType),
		EntityID:        flag.EntityID,
		FlagCode:        string(flag.Code),
		Description:     flag.Code.Description(),
		Active:          flag.Active,
		Reason:          flag.Reason,
		IncidentID:      flag.IncidentID,
		CreatedBy:       flag.CreatedBy,
		CreatedAt:       flag.CreatedAt,
		ResolvedBy:      flag.ResolvedBy,
		ResolvedAt:      flag.ResolvedAt,
		ResolutionNotes: flag.ResolutionNotes,
	}
}

func toDecisionResponse(d *flags.Decision) decisionResponse {
	blockers := d.Blockers
	if blockers == nil {
		blockers = []string{}
	}
	return decisionResponse{CanProceed: d.CanProceed, Blockers: blockers}
}
