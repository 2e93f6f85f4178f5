// Package e2e provides end-to-end tests for the complete datagate call flow.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/datagate/adapters/sqlite"
	"github.com/artpar/datagate/domain/calllog"
)

// TestE2E_CallLogPersistence tests that recorded call events survive app
// restarts when the sqlite recorder is configured.
func TestE2E_CallLogPersistence(t *testing.T) {
	dir := t.TempDir()
	dbPath := dir + "/datagate.db"

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/9000") {
			http.Error(w, `{"error": "no such item"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "bolt"})
	}))
	defer remote.Close()

	configFor := func() string {
		return fmt.Sprintf(`
transport:
  base_url: "%s"
  timeout: 5s

recorder:
  mode: sqlite
  dsn: "%s"
  batch_size: 100
  flush_interval: 10s

resources:
  - domain: inventory
    name: item
    operations:
      findById:
        method: GET
        path: /items/{{id}}
        input: [id]
        output: json

logging:
  level: error
  format: json
`, remote.URL, dbPath)
	}

	// Phase 1: Run the app, make calls, shut down. Shutdown flushes the
	// recorder synchronously.
	t.Run("Phase1_RecordCalls", func(t *testing.T) {
		app, cleanup := newApp(t, configFor())
		defer cleanup()

		h, ok := app.Resource("inventory", "item")
		if !ok {
			t.Fatal("inventory:item not registered")
		}
		ctx := context.Background()

		for _, id := range []int{1, 2} {
			if _, err := h.FindByID(ctx, id); err != nil {
				t.Fatalf("findById %d: %v", id, err)
			}
		}
		items, err := h.FindByID(ctx, 9000)
		if err != nil {
			t.Fatalf("findById missing: %v", err)
		}
		if len(items) != 0 {
			t.Fatalf("missing item returned %d items, want 0", len(items))
		}

		t.Log("✓ Calls recorded")
	})

	// Phase 2: Open the same database directly (simulates restart) and
	// verify the events persisted.
	t.Run("Phase2_VerifyEventsPersist", func(t *testing.T) {
		db, err := sqlite.Open(dbPath)
		if err != nil {
			t.Fatalf("reopen db: %v", err)
		}
		defer db.Close()

		store := sqlite.NewCallStore(db)
		ctx := context.Background()

		events, err := store.GetRecent(ctx, "inventory:item", 10)
		if err != nil {
			t.Fatalf("get recent: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("events = %d, want 3", len(events))
		}

		noContent := 0
		for _, ev := range events {
			if ev.Status == calllog.StatusNoContent {
				noContent++
			}
			if ev.Attempts != 1 {
				t.Errorf("event %s attempts = %d, want 1", ev.ID, ev.Attempts)
			}
			if ev.Operation != "findById" {
				t.Errorf("event %s operation = %s, want findById", ev.ID, ev.Operation)
			}
		}
		if noContent != 1 {
			t.Errorf("no_content events = %d, want 1", noContent)
		}

		t.Log("✓ Events persisted across restart")
	})

	// Phase 3: Bootstrap a second app on the same database, add one more
	// call, and check the aggregated summary covers both runs.
	t.Run("Phase3_SummaryAcrossRuns", func(t *testing.T) {
		app, cleanup := newApp(t, configFor())

		h, _ := app.Resource("inventory", "item")
		if _, err := h.FindByID(context.Background(), 3); err != nil {
			t.Fatalf("findById: %v", err)
		}
		cleanup()

		db, err := sqlite.Open(dbPath)
		if err != nil {
			t.Fatalf("reopen db: %v", err)
		}
		defer db.Close()

		store := sqlite.NewCallStore(db)
		start := time.Now().UTC().Add(-time.Hour)
		end := time.Now().UTC().Add(time.Hour)

		summary, err := store.GetSummary(context.Background(), "inventory:item", start, end)
		if err != nil {
			t.Fatalf("get summary: %v", err)
		}
		if summary.CallCount != 4 {
			t.Errorf("call count = %d, want 4", summary.CallCount)
		}
		if summary.NoContentCount != 1 {
			t.Errorf("no_content count = %d, want 1", summary.NoContentCount)
		}
		if summary.TotalAttempts != 4 {
			t.Errorf("total attempts = %d, want 4", summary.TotalAttempts)
		}

		t.Log("✓ Summary aggregates events from both runs")
	})
}

// TestE2E_RetryAttemptsRecorded tests that the audit trail carries the
// real attempt count for a retried call.
func TestE2E_RetryAttemptsRecorded(t *testing.T) {
	dir := t.TempDir()
	dbPath := dir + "/datagate.db"

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer remote.Close()

	app, cleanup := newApp(t, fmt.Sprintf(`
transport:
  base_url: "%s"
  timeout: 5s

recorder:
  mode: sqlite
  dsn: "%s"

resources:
  - domain: inventory
    name: item
    operations:
      get:
        method: GET
        path: /items
        output: json
        error_max_retries: 2
        error_response: '{"status": "degraded"}'

logging:
  level: error
  format: json
`, remote.URL, dbPath))

	h, _ := app.Resource("inventory", "item")
	if _, err := h.Get(context.Background(), nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	cleanup()

	db, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()

	store := sqlite.NewCallStore(db)
	events, err := store.GetRecent(context.Background(), "inventory:item", 10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}

	ev := events[0]
	if ev.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", ev.Attempts)
	}
	if ev.Status != calllog.StatusError {
		t.Errorf("status = %s, want error", ev.Status)
	}
	if ev.HTTPCode != http.StatusInternalServerError {
		t.Errorf("http code = %d, want 500", ev.HTTPCode)
	}
	if !ev.Retried() {
		t.Error("event not marked as retried")
	}
}
