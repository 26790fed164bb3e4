package handler

import (
	"time"

	"fundgate/internal/audit"
)

type entryResponse struct {
	ID         string         `json:"id"`
	EventType  string         `json:"eventType"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	ActorID    string         `json:"actorId"`
	ActorType  string         `json:"actorType"`
	Category   string         `json:"category"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type exportResponse struct {
	EntityType  string          `json:"entityType"`
	EntityID    string          `json:"entityId"`
	ExportedAt  time.Time       `json:"exportedAt"`
	TotalEvents int             `json:"totalEvents"`
	Events      []entryResponse `json:"events"`
}

func toEntryResponses(entries []audit.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:         e.ID.String(),
			EventType:  e.EventType,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			ActorType:  string(e.ActorType),
			Category:   string(e.Category),
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
