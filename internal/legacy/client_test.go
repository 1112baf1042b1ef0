package legacy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCashtagActivitySendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/cashtags/tag-1/activity", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"a1","type":"deposit","amount":"25.00","created_at":"2024-01-02T03:04:05Z"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	got, err := c.CashtagActivity(context.Background(), "tag-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "deposit", got[0].Type)
	assert.Equal(t, "25.00", got[0].Amount)
}

func TestRedeemRequestsPassesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "queued", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"r1","status":"queued","total_amount":"100"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "", time.Second).RedeemRequests(context.Background(), "queued")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "string error", status: http.StatusOK, body: `{"success":false,"error":"cashtag not found"}`, message: "cashtag not found"},
		{name: "object error", status: http.StatusBadRequest, body: `{"success":false,"error":{"message":"bad status"}}`, message: "bad status"},
		{name: "non json failure", status: http.StatusBadGateway, body: `upstream down`, message: "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "t", time.Second).CashtagActivity(context.Background(), "x")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestNilClientIsNotConfigured(t *testing.T) {
	c := NewClient("  ", "t", time.Second)
	assert.False(t, c.Enabled())
	_, err := c.RedeemRequests(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
