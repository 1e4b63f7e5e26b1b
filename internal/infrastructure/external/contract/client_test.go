package contract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_RequestContract(t *testing.T) {
	var got port.ContractRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contracts", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"}, zap.NewNop())
	err := client.RequestContract(context.Background(), port.ContractRequest{
		ApplicationID: 42,
		ProviderID:    "prov-1",
		PayerID:       "aetna",
		EffectiveDate: "2026-09-01",
		RequestedBy:   "ops",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ApplicationID)
	assert.Equal(t, "2026-09-01", got.EffectiveDate)
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "application-42", headers.Get("Idempotency-Key"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
}

func TestClient_RequestContract_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payer contract template missing", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
	err := client.RequestContract(context.Background(), port.ContractRequest{ApplicationID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "payer contract template missing")
}

func TestClient_RequestContract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zap.NewNop())
	err := client.RequestContract(context.Background(), port.ContractRequest{ApplicationID: 1})
	assert.Error(t, err)
}

func TestLogClient(t *testing.T) {
	assert.NoError(t, NewLogClient(zap.NewNop()).RequestContract(context.Background(), port.ContractRequest{ApplicationID: 1}))
}
