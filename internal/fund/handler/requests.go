package handler

type createFundRequest struct {
	UserID     string `json:"userId"`
	CauseID    string `json:"causeId,omitempty"`
	PrizeID    string `json:"prizeId,omitempty"`
	SourceType string `json:"sourceType"`
	SourceID   string `json:"sourceId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

type verifyChecklistRequest struct {
	UserVerified      bool   `json:"userVerified"`
	CauseValidated    bool   `json:"causeValidated"`
	PrizeDelivered    *bool  `json:"prizeDelivered"`
	EvidenceConfirmed bool   `json:"evidenceConfirmed"`
	FraudCheckPassed  bool   `json:"fraudCheckPassed"`
	Notes             string `json:"notes,omitempty"`
}

type releaseRequest struct {
	TransactionRef string `json:"transactionRef,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type reasonedRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}
