package handler

import (
	"time"

	"fundgate/internal/fund"
)

type fundResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	CauseID        string     `json:"causeId,omitempty"`
	PrizeID        string     `json:"prizeId,omitempty"`
	SourceType     string     `json:"sourceType"`
	SourceID       string     `json:"sourceId"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PreviousStatus string     `json:"previousStatus,omitempty"`
	BlockedReason  string     `json:"blockedReason,omitempty"`
	TransactionRef string     `json:"transactionRef,omitempty"`
	ApprovedBy     string     `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	ReleasedBy     string     `json:"releasedBy,omitempty"`
	ReleasedAt     *time.Time `json:"releasedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type checklistResponse struct {
	UserVerified      bool      `json:"userVerified"`
	CauseValidated    bool      `json:"causeValidated"`
	PrizeDelivered    *bool     `json:"prizeDelivered"`
	EvidenceConfirmed bool      `json:"evidenceConfirmed"`
	FraudCheckPassed  bool      `json:"fraudCheckPassed"`
	AllPassed         bool      `json:"allPassed"`
	Notes             string    `json:"notes,omitempty"`
	UpdatedBy         string    `json:"updatedBy,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type requestReleaseResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Requirements []string `json:"requirements,omitempty"`
}

type requirementsResponse struct {
	CurrentStatus string            `json:"currentStatus"`
	Checklist     checklistResponse `json:"checklist"`
	CanRelease    bool              `json:"canRelease"`
	Missing       []string          `json:"missing"`
}

func toFundResponse(record fund.Record) fundResponse {
	return fundResponse{
		ID:             record.ID.String(),
		UserID:         record.UserID,
		CauseID:        record.CauseID,
		PrizeID:        record.PrizeID,
		SourceType:     string(record.SourceType),
		SourceID:       record.SourceID,
		Amount:         record.Amount,
		Currency:       record.Currency,
		Status:         string(record.Status),
		PreviousStatus: string(record.PreviousStatus),
		BlockedReason:  record.BlockedReason,
		TransactionRef: record.TransactionRef,
		ApprovedBy:     record.ApprovedBy,
		ApprovedAt:     record.ApprovedAt,
		ReleasedBy:     record.ReleasedBy,
		ReleasedAt:     record.ReleasedAt,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func toChecklistResponse(checklist fund.Checklist) checklistResponse {
	return checklistResponse{
		UserVerified:      checklist.UserVerified,
		CauseValidated:    checklist.CauseValidated,
		PrizeDelivered:    checklist.PrizeDelivered,
		EvidenceConfirmed: checklist.EvidenceConfirmed,
		FraudCheckPassed:  checklist.FraudCheckPassed,
		AllPassed:         checklist.AllPassed(),
		Notes:             checklist.Notes,
		UpdatedBy:         checklist.UpdatedBy,
		UpdatedAt:         checklist.UpdatedAt,
	}
}
