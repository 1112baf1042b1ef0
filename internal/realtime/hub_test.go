package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tables, err := ParseTables(r.URL.Query().Get("tables"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = hub.ServeWS(w, r, "agent-1", tables)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubFiltersByTable(t *testing.T) {
	hub, srv := startHub(t)
	redeems := dial(t, srv, "tables=redeem_requests")
	everything := dial(t, srv, "")
	waitForClients(t, hub, 2)

	hub.Publish(Event{Type: EventUpdate, Table: "company_tags", ID: "tag-1"})
	hub.Publish(Event{Type: EventUpdate, Table: "redeem_requests", ID: "r-1"})

	first := readEvent(t, everything)
	assert.Equal(t, "company_tags", first.Table)
	second := readEvent(t, everything)
	assert.Equal(t, "redeem_requests", second.Table)

	got := readEvent(t, redeems)
	assert.Equal(t, "r-1", got.ID, "tag event must be filtered out")
}

func TestHubResyncReachesEveryClient(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv, "tables=transfer_requests")
	b := dial(t, srv, "tables=company_tags")
	waitForClients(t, hub, 2)

	hub.Resync()
	assert.Equal(t, EventResync, readEvent(t, a).Type)
	assert.Equal(t, EventResync, readEvent(t, b).Type)
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}
