package service

import "context"

// KYCProvider is the identity-verification collaborator. It pre-fills the
// userVerified checklist item when a fund is created; reviewers can still
// override it.
type KYCProvider interface {
	IsUserVerified(ctx context.Context, userID string) (bool, error)
}

// DeliveryEvidenceProvider is the prize-delivery collaborator. It seeds the
// prizeDelivered and evidenceConfirmed items for prize-sourced funds.
type DeliveryEvidenceProvider interface {
	PrizeDelivered(ctx context.Context, prizeID string) (*bool, error)
	EvidenceConfirmed(ctx context.Context, prizeID string) (bool, error)
}
