package main

import (
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
	audithandler "fundgate/internal/audit/handler"
	"fundgate/internal/flags"
	flagshandler "fundgate/internal/flags/handler"
	"fundgate/internal/fund"
	fundhandler "fundgate/internal/fund/handler"
	"fundgate/internal/fund/service"
	jwttoken "fundgate/internal/jwt_token"
)

// All three feature handlers register on one parent router in main; this
// must not conflict and every feature's routes must stay reachable.
func TestFeatureHandlersShareOneRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	auditSvc := audit.NewService(audit.NewMemoryStore(), nil)
	registry := flags.NewRegistry(flags.NewMemoryStore(), auditSvc)
	authorizer := service.NewAuthorizer(fund.NewMemoryStore(), registry, auditSvc, service.NewMemoryTxRunner(), logger, nil)

	jwtSvc := jwttoken.NewJWTService("test-signing-key", "fundgate", "fundgate")
	validator := jwttoken.NewMiddlewareAdapter(jwtSvc)

	router := chi.NewRouter()
	require.NotPanics(t, func() {
		fundhandler.New(authorizer, logger, nil, validator).Register(router)
		flagshandler.New(registry, logger, nil, validator).Register(router)
		audithandler.New(auditSvc, logger, nil, validator).Register(router)
	})

	server := httptest.NewServer(router)
	defer server.Close()

	adminToken, err := jwtSvc.GenerateAccessToken(uuid.New(), "admin", time.Hour)
	require.NoError(t, err)

	// One route per feature, all through the shared router.
	for _, path := range []string{
		"/funds",
		"/admin/flags/USER/user-1",
		"/admin/audit-logs",
	} {
		resp := get(t, server.URL+path, adminToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}

	// Missing token hits each feature's auth middleware, not a routing hole.
	resp := get(t, server.URL+"/admin/audit-logs", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}
