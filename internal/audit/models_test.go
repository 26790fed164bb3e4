package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	cases := []struct {
		eventType string
		want      Category
	}{
		{"MONEY_RELEASED", CategoryFinancial},
		{"MONEY_GENERATED", CategoryFinancial},
		{"DONATION_RECEIVED", CategoryFinancial},
		{"KYC_DOCUMENT_APPROVED", CategoryLegal},
		{"CONSENT_GRANTED", CategoryLegal},
		{"WINNER_SELECTED", CategoryLegal},
		{"RAFFLE_PARTICIPATION_RECORDED", CategoryLegal},
		{"PRIZE_EVIDENCE_CONFIRMED", CategoryLegal},
		{"USER_LOGIN_FAILED", CategorySecurity},
		{"PASSWORD_CHANGED", CategorySecurity},
		{"ACCOUNT_SUSPENDED", CategorySecurity},
		{"USER_LOGOUT", CategorySecurity},
		{"FLAG_ADDED", CategoryOperational},
		{"RAFFLE_CREATED", CategoryOperational},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferCategory(tc.eventType), tc.eventType)
	}
}

func TestInferCategoryFinancialPrefixWins(t *testing.T) {
	// MONEY_ prefix takes precedence even when a legal marker appears later.
	assert.Equal(t, CategoryFinancial, InferCategory("MONEY_KYC_HOLD_LIFTED"))
}

func TestRetentionPolicy(t *testing.T) {
	year := 365 * 24 * time.Hour
	assert.Equal(t, 10*year, CategoryFinancial.RetentionPolicy())
	assert.Equal(t, 10*year, CategoryLegal.RetentionPolicy())
	assert.Equal(t, 2*year, CategorySecurity.RetentionPolicy())
	assert.Equal(t, 1*year, CategoryOperational.RetentionPolicy())
}
