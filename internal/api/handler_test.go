package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/cashdesk/internal/api"
	"github.com/ayo6706/cashdesk/internal/api/handler"
	"github.com/ayo6706/cashdesk/internal/config"
	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/legacy"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/realtime"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "cashdesk-test"
	testJWTAudience = "cashdesk-backoffice-test"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
		LockLeaseTTL:       15 * time.Minute,
	}
}

type stubUsers map[uuid.UUID]*models.User

func (s stubUsers) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func setupRouter(svc api.Services, db handler.Pinger) http.Handler {
	return api.NewRouter(testConfig(), zap.NewNop(), db, nil, nil, svc).Routes()
}

func generateToken(userID, role, department string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"role":       role,
		"department": department,
		"iss":        testJWTIssuer,
		"aud":        testJWTAudience,
		"sub":        userID,
		"iat":        now.Unix(),
		"nbf":        now.Add(-30 * time.Second).Unix(),
		"exp":        now.Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))
	return signed
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRFC7807ProblemDetails(t *testing.T) {
	router := setupRouter(api.Services{}, stubPinger{})

	w := do(t, router, http.MethodGet, "/v1/redeems", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/redeems", body["instance"])
	assert.NotEmpty(t, body["request_id"])
}

func TestDepartmentAndValidationGuards(t *testing.T) {
	router := setupRouter(api.Services{}, stubPinger{})
	agent := uuid.NewString()
	id := uuid.NewString()

	finance := generateToken(agent, domain.RoleAgent, domain.DepartmentFinance)
	support := generateToken(agent, domain.RoleAgent, domain.DepartmentSupport)
	verification := generateToken(agent, domain.RoleAgent, domain.DepartmentVerification)
	admin := generateToken(agent, domain.RoleAdmin, domain.DepartmentAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"support cannot process payments", http.MethodPost, "/v1/redeems/" + id + "/payments", support, map[string]any{"amount": "10"}, http.StatusForbidden},
		{"verification cannot manage tags", http.MethodGet, "/v1/company-tags", verification, nil, http.StatusForbidden},
		{"finance cannot verify", http.MethodPost, "/v1/verification/" + id + "/approve", finance, map[string]any{}, http.StatusForbidden},
		{"verification cannot assign recharges", http.MethodPost, "/v1/recharges/" + id + "/assign-tag", verification, map[string]any{}, http.StatusForbidden},
		{"agents cannot force release", http.MethodDelete, "/v1/admin/locks/redeems/" + id, finance, nil, http.StatusForbidden},
		{"admin passes department checks", http.MethodPost, "/v1/redeems/not-a-uuid/payments", admin, map[string]any{"amount": "10"}, http.StatusBadRequest},
		{"hold amount must be positive", http.MethodPost, "/v1/redeems/" + id + "/payments", finance, map[string]any{"amount": "0"}, http.StatusBadRequest},
		{"hold amount precision", http.MethodPost, "/v1/redeems/" + id + "/payments", finance, map[string]any{"amount": "1.0000001"}, http.StatusBadRequest},
		{"confirm needs the typed word", http.MethodPost, "/v1/payments/" + id + "/confirm", finance, map[string]any{"confirmation": "yes"}, http.StatusBadRequest},
		{"settlement needs a tag", http.MethodPost, "/v1/payments/" + id + "/settlement", finance, map[string]any{"identifier": "$p"}, http.StatusBadRequest},
		{"support assigns with a valid redeem id only", http.MethodPost, "/v1/recharges/" + id + "/assign-redeem", support, map[string]any{"redeem_id": "nope"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/v1/transfers/" + id + "/approve", support, "not-an-object", http.StatusBadRequest},
		{"bad paging", http.MethodGet, "/v1/redeems?limit=-3", support, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRejectsTokensFromOtherIssuers(t *testing.T) {
	router := setupRouter(api.Services{}, stubPinger{})
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    domain.RoleAdmin,
		"iss":     "someone-else",
		"aud":     testJWTAudience,
		"exp":     now.Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	w := do(t, router, http.MethodGet, "/v1/redeems", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthMetricsAndDocs(t *testing.T) {
	cases := []struct {
		name   string
		db     handler.Pinger
		path   string
		status int
	}{
		{name: "live", db: stubPinger{}, path: "/healthz", status: http.StatusOK},
		{name: "ready", db: stubPinger{}, path: "/readyz", status: http.StatusOK},
		{name: "not ready", db: stubPinger{err: errors.New("down")}, path: "/readyz", status: http.StatusServiceUnavailable},
		{name: "metrics", db: stubPinger{}, path: "/metrics", status: http.StatusOK},
		{name: "openapi", db: stubPinger{}, path: "/openapi.yaml", status: http.StatusOK},
		{name: "swagger", db: stubPinger{}, path: "/docs/index.html", status: http.StatusOK},
		{name: "unknown route", db: stubPinger{}, path: "/v2/nothing", status: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(api.Services{}, tc.db)
			w := do(t, router, http.MethodGet, tc.path, "", nil)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestLoginTokenCarriesDepartment(t *testing.T) {
	support := &models.User{ID: uuid.New(), Username: "sam", Department: domain.DepartmentSupport, Role: domain.RoleAgent}
	router := setupRouter(api.Services{Users: stubUsers{support.ID: support}}, stubPinger{})

	w := do(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{"user_id": support.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// support may not open the payment flow but may assign recharges
	w = do(t, router, http.MethodPost, "/v1/redeems/"+uuid.NewString()+"/payments", resp.Token, map[string]any{"amount": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, router, http.MethodPost, "/v1/recharges/"+uuid.NewString()+"/assign-tag", resp.Token, map[string]any{"company_tag_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{"user_id": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRealtimeSubscription(t *testing.T) {
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(setupRouter(api.Services{Hub: hub}, stubPinger{}))
	defer srv.Close()
	token := generateToken(uuid.NewString(), domain.RoleAgent, domain.DepartmentSupport)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?tables=redeem_requests", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?tables=users&access_token="+token, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?tables=redeem_requests&access_token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(realtime.Event{Type: realtime.EventUpdate, Table: "redeem_requests", ID: "r-1"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev realtime.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "r-1", ev.ID)
}

func TestLegacyRedeemRequests(t *testing.T) {
	token := generateToken(uuid.NewString(), domain.RoleAgent, domain.DepartmentSupport)

	w := do(t, setupRouter(api.Services{}, stubPinger{}), http.MethodGet, "/v1/legacy/redeem-requests", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/redeem-requests", r.URL.Path)
		if r.URL.Query().Get("status") == "broken" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"unknown status"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"r-1","player_id":"p-1","total_amount":"25.00","status":"pending"}]}`))
	}))
	defer upstream.Close()

	router := setupRouter(api.Services{Legacy: legacy.NewClient(upstream.URL, "tok", time.Second)}, stubPinger{})
	w = do(t, router, http.MethodGet, "/v1/legacy/redeem-requests?status=pending", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"r-1"`)

	w = do(t, router, http.MethodGet, "/v1/legacy/redeem-requests?status=broken", token, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "unknown status")
}
