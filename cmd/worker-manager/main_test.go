package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticketpin-workers/internal/common/config"
	"ticketpin-workers/internal/common/database"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/pipeline"
)

type fakeChecker struct {
	err error
}

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

// ==========================
// Retry Tests
// ==========================

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "op")

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		return errors.New("broker down")
	}, 2, time.Millisecond, zap.NewNop(), "Zeebe client initialization")

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "Zeebe client initialization failed after 2 attempts")
}

// ==========================
// Health Server Tests
// ==========================

func TestHealthServer(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		checker    fakeChecker
		wantStatus int
		wantBody   string
	}{
		{name: "liveness", path: "/health", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "ready", path: "/ready", wantStatus: http.StatusOK, wantBody: "ready"},
		{
			name:       "broker unreachable",
			path:       "/ready",
			checker:    fakeChecker{err: errors.New("camunda health check failed")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newHealthServer(0, tt.checker, &dependencies{})
			rec := httptest.NewRecorder()
			server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestHealthServer_ExposesMetrics(t *testing.T) {
	server := newHealthServer(9090, fakeChecker{}, nil)
	assert.Equal(t, ":9090", server.Addr)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ==========================
// Wiring Tests
// ==========================

func TestBuildCredentials_Static(t *testing.T) {
	cfg := &config.Config{}
	cfg.Secrets.Backend = config.SecretsBackendStatic
	cfg.Pipeline.Image.APIKey = "sk-test"
	cfg.Pipeline.Pinning.APIKey = "pinata-jwt"

	creds, err := buildCredentials(cfg, nil).Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.Credentials{ImageAPIKey: "sk-test", PinningAPIKey: "pinata-jwt"}, creds)
}

func TestBuildCredentials_StaticMissingKeyIsConfigurationError(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pipeline.Image.APIKey = "sk-test"

	creds, err := buildCredentials(cfg, nil).Credentials(context.Background())
	require.NoError(t, err)
	assert.Empty(t, creds.PinningAPIKey)

	err = pipeline.CheckCredentials(creds)
	pErr, ok := pipeline.AsError(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindConfiguration, pErr.Kind)
}

func TestBuildRecorder(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectExec("CREATE TABLE IF NOT EXISTS ticket_fulfillments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deps := &dependencies{postgres: &database.PostgresClient{DB: db}}
	recorder, err := buildRecorder(context.Background(), &config.Config{}, deps, logger.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, 1, recorder.Len())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.Contains(t, deps.checks(), "postgres")
}

func TestBuildRecorder_NoSinks(t *testing.T) {
	recorder, err := buildRecorder(context.Background(), &config.Config{}, &dependencies{}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, recorder.Len())
}
