package fund

// Reviewer-facing gap labels (the platform's admin UI language is Spanish).
const (
	gapUserNotVerified      = "Usuario no verificado"
	gapCauseNotValidated    = "Causa no validada"
	gapPrizeNotDelivered    = "Premio no entregado"
	gapEvidenceNotConfirmed = "Evidencia no confirmada"
	gapFraudCheckPending    = "Control antifraude pendiente"
)

// Missing lists the unmet checklist items as reviewer-facing texts. Only an
// explicit false PrizeDelivered blocks; nil is satisfied.
func (c Checklist) Missing() []string {
	var missing []string
	if !c.UserVerified {
		missing = append(missing, gapUserNotVerified)
	}
	if !c.CauseValidated {
		missing = append(missing, gapCauseNotValidated)
	}
	if c.PrizeDelivered != nil && !*c.PrizeDelivered {
		missing = append(missing, gapPrizeNotDelivered)
	}
	if !c.EvidenceConfirmed {
		missing = append(missing, gapEvidenceNotConfirmed)
	}
	if !c.FraudCheckPassed {
		missing = append(missing, gapFraudCheckPending)
	}
	return missing
}

// AllPassed derives the gate verdict from the items; it is never stored
// independently of them.
func (c Checklist) AllPassed() bool {
	return len(c.Missing()) == 0
}
