package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ldap2kanboard/internal/storage/sqlite"
)

func newTestServer(t *testing.T, accounts gin.Accounts) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "kbsim.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ts := httptest.NewServer(New(store, logger, accounts).Engine())
	t.Cleanup(ts.Close)
	return ts, store
}

type testResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func post(t *testing.T, ts *httptest.Server, body string) testResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/jsonrpc.php", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out testResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func call(t *testing.T, ts *httptest.Server, method string, params any) testResponse {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return post(t, ts, string(payload))
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, gin.Accounts{"jsonrpc": "secret"})

	resp, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	ts, _ := newTestServer(t, gin.Accounts{"jsonrpc": "secret"})
	body := `{"jsonrpc":"2.0","id":1,"method":"getAllUsers"}`

	resp, err := http.Post(ts.URL+"/jsonrpc.php", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/jsonrpc.php", strings.NewReader(body))
	req.SetBasicAuth("jsonrpc", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestProtocolErrors(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc":`, codeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"getAllUsers"}`, codeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"removeEverything"}`, codeMethodNotFound},
		{"bad params", `{"jsonrpc":"2.0","id":1,"method":"getColumns","params":{"project_id":"abc"}}`, codeInvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := post(t, ts, tc.body)
			if out.Error == nil {
				t.Fatalf("expected error, got result %s", out.Result)
			}
			if out.Error.Code != tc.code {
				t.Fatalf("code = %d, want %d", out.Error.Code, tc.code)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/jsonrpc.php", "application/json", strings.NewReader(
		`[{"jsonrpc":"2.0","id":1,"method":"getAllUsers"},{"jsonrpc":"2.0","id":2,"method":"nope"}]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out []testResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("responses = %d, want 2", len(out))
	}
	if out[0].Error != nil || string(out[0].Result) != "[]" {
		t.Fatalf("first response = %+v", out[0])
	}
	if out[1].Error == nil || out[1].Error.Code != codeMethodNotFound {
		t.Fatalf("second response = %+v", out[1])
	}
}

func TestUserMethods(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	out := call(t, ts, "createLdapUser", map[string]any{"username": "jdoe"})
	if string(out.Result) != "1" {
		t.Fatalf("createLdapUser = %s", out.Result)
	}
	if out := call(t, ts, "createLdapUser", map[string]any{"username": "jdoe"}); string(out.Result) != "false" {
		t.Fatalf("duplicate createLdapUser = %s, want false", out.Result)
	}
	if out := call(t, ts, "createUser", map[string]any{"username": "nopass"}); string(out.Result) != "false" {
		t.Fatalf("createUser without password = %s, want false", out.Result)
	}

	out = call(t, ts, "getUserByName", map[string]any{"username": "jdoe"})
	var user map[string]string
	if err := json.Unmarshal(out.Result, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user["id"] != "1" || user["is_active"] != "1" {
		t.Fatalf("user = %v", user)
	}

	if out := call(t, ts, "disableUser", map[string]any{"user_id": "1"}); string(out.Result) != "true" {
		t.Fatalf("disableUser = %s", out.Result)
	}
	if out := call(t, ts, "disableUser", map[string]any{"user_id": 42}); string(out.Result) != "false" {
		t.Fatalf("disableUser unknown = %s, want false", out.Result)
	}
	if out := call(t, ts, "getUserByName", map[string]any{"username": "ghost"}); string(out.Result) != "null" {
		t.Fatalf("getUserByName unknown = %s, want null", out.Result)
	}

	group := call(t, ts, "createGroup", map[string]any{"name": "staff"})
	if out := call(t, ts, "addGroupMember", map[string]any{"group_id": group.Result, "user_id": 1}); string(out.Result) != "true" {
		t.Fatalf("addGroupMember = %s", out.Result)
	}
	out = call(t, ts, "getGroupMembers", map[string]any{"group_id": group.Result})
	var members []map[string]string
	if err := json.Unmarshal(out.Result, &members); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(members) != 1 || members[0]["username"] != "jdoe" {
		t.Fatalf("members = %v", members)
	}
}

func TestProjectMethods(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	call(t, ts, "createLdapUser", map[string]any{"username": "owner"})

	if out := call(t, ts, "getAssignableUsers", map[string]any{"project_id": 1}); string(out.Result) != "[]" {
		t.Fatalf("assignable users of missing project = %s, want []", out.Result)
	}

	out := call(t, ts, "createProject", map[string]any{"name": "Onboarding", "identifier": "new1", "owner_id": 1})
	if string(out.Result) != "1" {
		t.Fatalf("createProject = %s", out.Result)
	}
	if out := call(t, ts, "createProject", map[string]any{"name": "Again", "identifier": "NEW1"}); string(out.Result) != "false" {
		t.Fatalf("duplicate identifier = %s, want false", out.Result)
	}

	out = call(t, ts, "getProjectByIdentifier", map[string]any{"identifier": "NEW1"})
	var project map[string]string
	if err := json.Unmarshal(out.Result, &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if project["id"] != "1" || project["identifier"] != "NEW1" {
		t.Fatalf("project = %v", project)
	}
	if out := call(t, ts, "getProjectByIdentifier", map[string]any{"identifier": "NONE"}); string(out.Result) != "null" {
		t.Fatalf("unknown identifier = %s, want null", out.Result)
	}

	out = call(t, ts, "getColumns", map[string]any{"project_id": 1})
	var columns []map[string]string
	if err := json.Unmarshal(out.Result, &columns); err != nil {
		t.Fatalf("decode columns: %v", err)
	}
	if len(columns) != len(sqlite.DefaultColumns) || columns[0]["position"] != "1" {
		t.Fatalf("columns = %v", columns)
	}

	out = call(t, ts, "getAssignableUsers", map[string]any{"project_id": 1})
	var assignable map[string]string
	if err := json.Unmarshal(out.Result, &assignable); err != nil {
		t.Fatalf("decode assignable: %v", err)
	}
	if assignable["1"] != "owner" {
		t.Fatalf("assignable = %v", assignable)
	}

	if out := call(t, ts, "addProjectUser", map[string]any{"project_id": 1, "user_id": 1, "role": "project-admin"}); string(out.Result) != "false" {
		t.Fatalf("unknown role = %s, want false", out.Result)
	}
}

func TestTaskMethods(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	call(t, ts, "createLdapUser", map[string]any{"username": "owner"})
	call(t, ts, "createLdapUser", map[string]any{"username": "outsider"})
	call(t, ts, "createProject", map[string]any{"name": "Board", "owner_id": 1})

	out := call(t, ts, "createTask", map[string]any{
		"project_id": 1,
		"title":      "Order laptop",
		"owner_id":   1,
		"date_due":   "2024-03-09",
		"tags":       []string{"it"},
	})
	if string(out.Result) != "1" {
		t.Fatalf("createTask = %s", out.Result)
	}
	if out := call(t, ts, "createTask", map[string]any{"project_id": 1, "title": "Nope", "owner_id": 2}); string(out.Result) != "false" {
		t.Fatalf("unassignable owner = %s, want false", out.Result)
	}
	if out := call(t, ts, "createTask", map[string]any{"project_id": 1, "title": "Nope", "date_due": "tomorrow"}); string(out.Result) != "false" {
		t.Fatalf("bad due date = %s, want false", out.Result)
	}

	out = call(t, ts, "getAllTasks", map[string]any{"project_id": 1, "status_id": 1})
	var tasks []map[string]string
	if err := json.Unmarshal(out.Result, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %v", tasks)
	}
	if tasks[0]["date_due"] != "1709942400" || tasks[0]["owner_id"] != "1" {
		t.Fatalf("task = %v", tasks[0])
	}

	if out := call(t, ts, "createSubtask", map[string]any{"task_id": 1, "title": "Pick model"}); string(out.Result) != "1" {
		t.Fatalf("createSubtask = %s", out.Result)
	}
	if out := call(t, ts, "createExternalTaskLink", map[string]any{"task_id": 1, "url": "https://wiki.example.com/laptops", "dependency": "related"}); string(out.Result) != "1" {
		t.Fatalf("createExternalTaskLink = %s", out.Result)
	}

	out = call(t, ts, "getAllExternalTaskLinks", map[string]any{"task_id": 1})
	var links []map[string]string
	if err := json.Unmarshal(out.Result, &links); err != nil {
		t.Fatalf("decode links: %v", err)
	}
	if len(links) != 1 || links[0]["title"] != "https://wiki.example.com/laptops" || links[0]["link_type"] != "weblink" {
		t.Fatalf("links = %v", links)
	}
	if out := call(t, ts, "getTask", map[string]any{"task_id": 99}); string(out.Result) != "null" {
		t.Fatalf("getTask unknown = %s, want null", out.Result)
	}
}

func TestInspectAPI(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	call(t, ts, "createProject", map[string]any{"name": "Board"})

	resp, err := http.Get(ts.URL + "/api/projects/1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	missing, err := http.Get(ts.URL + "/api/projects/7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", missing.StatusCode)
	}
}
