package cli

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/pool-route/internal/db"
	"github.com/evcraddock/pool-route/internal/schedule"
	"github.com/evcraddock/pool-route/internal/store"
	"github.com/evcraddock/pool-route/internal/visit"
	"github.com/evcraddock/pool-route/internal/web"
)

// run executes a command and fails the test on error.
func run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCommand(args...)
	if err != nil {
		t.Fatalf("pool %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
}

// exerciseVisit adds a client due today and runs a full visit through the
// CLI. extra is appended to every command to select the backend.
func exerciseVisit(t *testing.T, extra ...string) {
	t.Helper()
	with := func(args ...string) []string { return append(args, extra...) }

	today := strconv.Itoa(schedule.WeekdayCode(time.Now().UTC()))
	var c struct{ ID int64 }
	decodeJSON(t, run(t, with("clients", "add", "Ana Souza", "--address", "Rua A, 10", "--phone", "555-0101", "--day", today, "--format", "json")...), &c)

	var p struct{ ID int64 }
	decodeJSON(t, run(t, with("products", "add", "Chlorine", "kg", "--format", "json")...), &p)

	var due []schedule.Due
	decodeJSON(t, run(t, with("today", "--format", "json")...), &due)
	if len(due) != 1 || due[0].Client.ID != c.ID || due[0].Status != visit.Pending {
		t.Fatalf("due before start = %+v", due)
	}

	clientArg := strconv.FormatInt(c.ID, 10)
	var v visit.Visit
	decodeJSON(t, run(t, with("visit", "start", clientArg, "--format", "json")...), &v)
	if v.Status != visit.InProgress {
		t.Errorf("status = %q, want in_progress", v.Status)
	}

	out := run(t, with("visit", "start", clientArg)...)
	if !strings.Contains(out, "Resuming visit") {
		t.Errorf("second start output = %q, want resume", out)
	}

	visitArg := strconv.FormatInt(v.ID, 10)
	run(t, with("visit", "measure", visitArg, "--ph", "7,2")...)
	decodeJSON(t, run(t, with("visit", "measure", visitArg, "--chlorine", "1.5", "--format", "json")...), &v)
	if v.PH == nil || *v.PH != 7.2 || v.Chlorine == nil || *v.Chlorine != 1.5 {
		t.Errorf("readings = %+v", v.Readings)
	}

	var applied []visit.AppliedProduct
	decodeJSON(t, run(t, with("visit", "apply", visitArg, strconv.FormatInt(p.ID, 10), "2", "--format", "json")...), &applied)
	if len(applied) != 1 || applied[0].Product == nil || applied[0].Product.Name != "Chlorine" {
		t.Errorf("applied = %+v", applied)
	}

	out = run(t, with("visit", "need", visitArg, strconv.FormatInt(p.ID, 10), "1,5")...)
	if !strings.Contains(out, "Awaiting approval") || !strings.Contains(out, "Chlorine  1.5 kg") {
		t.Errorf("need output = %q", out)
	}

	if _, err := executeCommand(with("visit", "apply", visitArg, strconv.FormatInt(p.ID, 10), "0")...); err == nil {
		t.Error("expected error for zero quantity")
	}

	decodeJSON(t, run(t, with("visit", "finish", visitArg, "--format", "json")...), &v)
	if v.Status != visit.Completed || v.EndTime == nil {
		t.Errorf("finished visit = %+v", v)
	}

	if _, err := executeCommand(with("visit", "finish", visitArg)...); err == nil {
		t.Error("expected error finishing a completed visit")
	}

	decodeJSON(t, run(t, with("today", "--format", "json")...), &due)
	if len(due) != 1 || due[0].Status != visit.Completed {
		t.Errorf("due after finish = %+v", due)
	}

	out = run(t, with("visit", "show", clientArg)...)
	for _, want := range []string{"Ana Souza", "Completed", "pH:", "7.2", "Chlorine  2 kg"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out = run(t, with("visit", "history", clientArg)...)
	if !strings.Contains(out, v.VisitDate) {
		t.Errorf("history output missing %s:\n%s", v.VisitDate, out)
	}
}

func TestVisitWorkflowSQLite(t *testing.T) {
	dbPath := isolate(t)
	exerciseVisit(t, "--db", dbPath)
}

func TestVisitWorkflowREST(t *testing.T) {
	isolate(t)

	t.Setenv(envServerURL, startServer(t, "secret"))
	t.Setenv(envAPIKey, "secret")
	exerciseVisit(t)
}

// startServer runs the REST server over a temporary SQLite database and
// returns its URL.
func startServer(t *testing.T, apiKey string) string {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	srv := httptest.NewServer(web.NewServer(store.NewSQLStore(database, store.SQLite), web.Config{APIKey: apiKey}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClientsCommands(t *testing.T) {
	dbPath := isolate(t)

	run(t, "clients", "add", "Carla", "--address", "Rua C", "--phone", "555-3", "--day", "friday", "--db", dbPath)
	run(t, "clients", "add", "Bruno", "--address", "Rua B", "--phone", "555-2", "--day", "2", "--db", dbPath)

	out := run(t, "clients", "list", "--db", dbPath)
	if strings.Index(out, "Bruno") > strings.Index(out, "Carla") {
		t.Errorf("clients not ordered by name:\n%s", out)
	}
	if !strings.Contains(out, "Total: 2 clients") {
		t.Errorf("list output = %q", out)
	}

	out = run(t, "clients", "list", "--day", "Friday", "--db", dbPath)
	if strings.Contains(out, "Bruno") || !strings.Contains(out, "Carla") {
		t.Errorf("day filter output = %q", out)
	}

	out = run(t, "clients", "update", "1", "--phone", "555-9999", "--db", dbPath)
	if !strings.Contains(out, "555-9999") || !strings.Contains(out, "Friday") {
		t.Errorf("update output = %q", out)
	}

	if _, err := executeCommand("clients", "update", "1", "--db", dbPath); err == nil {
		t.Error("expected error for update with no changes")
	}
	if _, err := executeCommand("clients", "show", "99", "--db", dbPath); err == nil {
		t.Error("expected error for unknown client")
	}
	if _, err := executeCommand("clients", "add", "Dora", "--address", "x", "--phone", "1", "--day", "8", "--db", dbPath); err == nil {
		t.Error("expected error for day 8")
	}
}

func TestProductsCommands(t *testing.T) {
	dbPath := isolate(t)

	run(t, "products", "add", "pH reducer", "kg", "--db", dbPath)
	run(t, "products", "add", "Algaecide", "L", "--default", "--db", dbPath)

	out := run(t, "products", "list", "--db", dbPath)
	if strings.Index(out, "Algaecide") > strings.Index(out, "pH reducer") {
		t.Errorf("products not ordered by name:\n%s", out)
	}
	if !strings.Contains(out, "yes") {
		t.Errorf("default marker missing:\n%s", out)
	}
}

func TestTodayEmpty(t *testing.T) {
	dbPath := isolate(t)

	out := run(t, "today", "--db", dbPath)
	if !strings.Contains(out, "No clients scheduled today.") {
		t.Errorf("output = %q", out)
	}
}
