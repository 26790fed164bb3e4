package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundgate/internal/audit"
	"fundgate/internal/flags"
	"fundgate/internal/fund"
	"fundgate/internal/fund/service"
	jwttoken "fundgate/internal/jwt_token"
)

type testEnv struct {
	server     *httptest.Server
	authorizer *service.Authorizer
	userToken  string
	adminToken string
	userID     uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	auditSvc := audit.NewService(audit.NewMemoryStore(), nil)
	registry := flags.NewRegistry(flags.NewMemoryStore(), auditSvc)
	authorizer := service.NewAuthorizer(fund.NewMemoryStore(), registry, auditSvc, service.NewMemoryTxRunner(), logger, nil)

	jwtSvc := jwttoken.NewJWTService("test-signing-key", "fundgate", "fundgate")
	userID := uuid.New()
	userToken, err := jwtSvc.GenerateAccessToken(userID, "user", time.Hour)
	require.NoError(t, err)
	adminToken, err := jwtSvc.GenerateAccessToken(uuid.New(), "admin", time.Hour)
	require.NoError(t, err)

	router := chi.NewRouter()
	New(authorizer, logger, nil, jwttoken.NewMiddlewareAdapter(jwtSvc)).Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{
		server:     server,
		authorizer: authorizer,
		userToken:  userToken,
		adminToken: adminToken,
		userID:     userID,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func (e *testEnv) createFund(t *testing.T) uuid.UUID {
	t.Helper()
	record, err := e.authorizer.CreateFund(context.Background(), service.CreateParams{
		UserID:     e.userID.String(),
		CauseID:    "cause-1",
		SourceType: fund.SourceDonation,
		SourceID:   "donation-1",
		Amount:     100,
		Currency:   "EUR",
	})
	require.NoError(t, err)
	return record.ID
}

func TestRequestReleaseEndpoint(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, body := env.do(t, http.MethodPost, "/funds/"+fundID.String()+"/request-release", env.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["requirements"], "fresh checklist gaps returned for UX")
}

func TestRequestReleaseRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, _ := env.do(t, http.MethodPost, "/funds/"+fundID.String()+"/request-release", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, _ := env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/approve", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApproveGatingSurfacesRequirements(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, _ := env.do(t, http.MethodPost, "/funds/"+fundID.String()+"/request-release", env.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	notDelivered := false
	resp, _ = env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/checklist/verify", env.adminToken, map[string]any{
		"userVerified":      true,
		"causeValidated":    true,
		"prizeDelivered":    notDelivered,
		"evidenceConfirmed": true,
		"fraudCheckPassed":  true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/approve", env.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "checklist_incomplete", body["error"])
	assert.Contains(t, body["requirements"], "Premio no entregado")
}

func TestFullAdminFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, _ := env.do(t, http.MethodPost, "/funds/"+fundID.String()+"/request-release", env.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/checklist/verify", env.adminToken, map[string]any{
		"userVerified":      true,
		"causeValidated":    true,
		"prizeDelivered":    nil,
		"evidenceConfirmed": true,
		"fraudCheckPassed":  true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/approve", env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", body["status"])

	resp, body = env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/release", env.adminToken, map[string]any{
		"transactionRef": "TX-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RELEASED", body["status"])
	assert.Equal(t, "TX-1", body["transactionRef"])

	resp, body = env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/release", env.adminToken, map[string]any{
		"transactionRef": "TX-2",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_released", body["error"])
}

func TestReleaseRequirementsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, body := env.do(t, http.MethodGet, "/funds/"+fundID.String()+"/release-requirements", env.userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HELD", body["currentStatus"])
	assert.Equal(t, false, body["canRelease"])
	assert.NotEmpty(t, body["missing"])
}

func TestBlockReasonValidation(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.createFund(t)

	resp, _ := env.do(t, http.MethodPost, "/admin/funds/"+fundID.String()+"/block", env.adminToken, map[string]any{
		"reason": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetFundHidesOthersFunds(t *testing.T) {
	env := newTestEnv(t)
	record, err := env.authorizer.CreateFund(context.Background(), service.CreateParams{
		UserID:     "someone-else",
		SourceType: fund.SourceDonation,
		SourceID:   "donation-9",
		Amount:     250,
		Currency:   "EUR",
	})
	require.NoError(t, err)

	resp, _ := env.do(t, http.MethodGet, "/funds/"+record.ID.String(), env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/funds/"+record.ID.String(), env.adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownFundReturns404(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/funds/"+uuid.NewString(), env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
