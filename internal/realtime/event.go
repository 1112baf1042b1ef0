// Package realtime relays row-change notifications from Postgres to websocket clients.
// Events only tell clients what to re-fetch; they are never an input to a financial decision.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Channel is the Postgres NOTIFY channel written by the row-change triggers.
	Channel = "row_changes"

	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	// EventResync tells clients that events may have been missed and a full re-fetch is needed.
	EventResync = "resync"
)

// Tables that publish row changes.
var Tables = []string{"redeem_requests", "recharge_requests", "company_tags", "transfer_requests"}

type Event struct {
	Type  string          `json:"type"`
	Table string          `json:"table,omitempty"`
	ID    string          `json:"id,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// ParseEvent decodes a trigger payload.
func ParseEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode row change: %w", err)
	}
	ev.Type = strings.ToUpper(ev.Type)
	switch ev.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Event{}, fmt.Errorf("unknown row change type %q", ev.Type)
	}
	if ev.Table == "" {
		return Event{}, fmt.Errorf("row change without table")
	}
	if string(ev.New) == "null" {
		ev.New = nil
	}
	if string(ev.Old) == "null" {
		ev.Old = nil
	}
	return ev, nil
}

func resyncEvent() Event {
	return Event{Type: EventResync}
}

// ParseTables validates a comma separated subscription list. Empty means every table.
func ParseTables(raw string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !knownTable(t) {
			return nil, fmt.Errorf("unknown table %q", t)
		}
		out[t] = struct{}{}
	}
	return out, nil
}

func knownTable(t string) bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}
