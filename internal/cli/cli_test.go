package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ldap2kanboard/internal/server"
	"ldap2kanboard/internal/storage/sqlite"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs([]string{"ROLE_MANAGER=alice", "URL=https://x?a=b"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pairs) != 2 || pairs[0] != [2]string{"ROLE_MANAGER", "alice"} || pairs[1][1] != "https://x?a=b" {
		t.Fatalf("unexpected pairs: %v", pairs)
	}

	for _, bad := range []string{"novalue", "=value"} {
		if _, err := parsePairs([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestProjectOptions(t *testing.T) {
	co := &createOptions{
		dueDate:      "2024-03-11",
		roles:        []string{"ROLE_MANAGER=alice"},
		placeholders: []string{"NAME=Jane", "NAME_FULL=Jane Doe"},
	}
	opts, err := co.projectOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.DueDate.Format("2006-01-02") != "2024-03-11" {
		t.Fatalf("due date = %v", opts.DueDate)
	}
	if user, ok := opts.Roles.Resolve("ROLE_MANAGER"); !ok || user != "alice" {
		t.Fatalf("role alias = %q, %v", user, ok)
	}
	if got := opts.Placeholders.Apply("Hi NAME"); got != "Hi Jane" {
		t.Fatalf("placeholders applied = %q", got)
	}

	co.dueDate = "11.03.2024"
	if _, err := co.projectOptions(); err == nil || !strings.Contains(err.Error(), "--due-date") {
		t.Fatalf("expected due date error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "ldap2kanboard 1.2.3\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "onboarding.yaml", `title: Onboarding NAME
owner: ROLE_MANAGER
tasks:
  - title: Laptop
    owner: it
    subtasks:
      - title: Order
  - title: Keys
    due_date: soon
`)

	out, err := runCmd(t, "validate", path)
	if err == nil {
		t.Fatalf("expected error for non-integer due_date")
	}
	if !strings.Contains(out, "title:    Onboarding NAME") || !strings.Contains(out, "subtasks: 1") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestCreateProjectAgainstSimulator(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "board.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	err = store.ApplySeed(context.Background(), &sqlite.Seed{Users: []sqlite.SeedUser{{Username: "alice"}, {Username: "bob"}}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	ts := httptest.NewServer(server.New(store, logger, gin.Accounts{"jsonrpc": "token"}).Engine())
	t.Cleanup(ts.Close)

	t.Setenv("LDAP2KANBOARD_KANBOARD_URL", ts.URL+"/jsonrpc.php")
	t.Setenv("LDAP2KANBOARD_KANBOARD_PASSWORD", "token")
	t.Setenv("LDAP2KANBOARD_LOGGING_LEVEL", "ERROR")

	path := writeFile(t, "project.json", `{"title": "Board", "owner": "ROLE_MANAGER",
  "tasks": [{"title": "First", "owner": "bob", "due_date": 3}]}`)

	out, err := runCmd(t, "create-project", path,
		"--identifier", "TEST1",
		"--due-date", "2024-01-01",
		"--role", "ROLE_MANAGER=alice",
		"--seed", "7",
	)
	if err != nil {
		t.Fatalf("create-project: %v", err)
	}
	if !strings.Contains(out, `"Board"`) || !strings.Contains(out, "1 created, 0 skipped") ||
		!strings.Contains(out, "latest due date: 2024-01-04") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := runCmd(t, "create-project", path, "--identifier", "TEST1", "--role", "ROLE_MANAGER=alice"); err == nil {
		t.Fatalf("expected duplicate identifier error")
	}
}
