package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/launchpress/contentsync/internal/auth"
	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/engine"
	"github.com/launchpress/contentsync/internal/localrepo"
	"github.com/launchpress/contentsync/internal/store"
	"github.com/launchpress/contentsync/internal/syncx"
)

// stubAdapter serves a fixed set of remote items.
type stubAdapter struct {
	items map[domain.ItemType][]domain.Item
}

func (a *stubAdapter) ListItems(_ context.Context, typ domain.ItemType, page, pageSize int) ([]domain.Item, error) {
	all := a.items[typ]
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (a *stubAdapter) GetItem(_ context.Context, typ domain.ItemType, id string) (domain.Item, error) {
	for _, it := range a.items[typ] {
		if itemID, _ := syncx.ItemID(it); itemID == id {
			return it, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (a *stubAdapter) CreateItem(_ context.Context, typ domain.ItemType, item domain.Item) (domain.Item, error) {
	a.items[typ] = append(a.items[typ], item)
	return item, nil
}

func (a *stubAdapter) UpdateItem(_ context.Context, _ domain.ItemType, _ string, item domain.Item) (domain.Item, error) {
	return item, nil
}

type testServer struct {
	handler  http.Handler
	adapter  *stubAdapter
	local    *localrepo.Memory
	mappings *store.MemoryMappingStore
	confls   *store.MemoryConflictStore
	audit    *store.MemoryAuditLog
	orch     *engine.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		adapter:  &stubAdapter{items: make(map[domain.ItemType][]domain.Item)},
		local:    localrepo.NewMemory(),
		mappings: store.NewMemoryMappingStore(),
		confls:   store.NewMemoryConflictStore(),
		audit:    store.NewMemoryAuditLog(),
	}
	ts.orch = engine.New(engine.Config{
		EnabledTypes: []domain.ItemType{domain.TypePosts, domain.TypeUsers},
	}, ts.adapter, ts.local, ts.mappings, ts.confls, ts.audit)
	t.Cleanup(ts.orch.StopAutoSync)

	srv := &Server{Engine: ts.orch, Resolver: ts.orch.Resolver(), Audit: ts.audit}
	ts.handler = srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})
	return ts
}

// request performs an authenticated request against the test router.
func (ts *testServer) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Debug-Sub", "dashboard")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthzUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestEngineEndpointsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/status", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestGetStatuses(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/v1/sync/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint: %d %s", rec.Code, rec.Body.String())
	}

	statuses := decodeBody[map[domain.ItemType]domain.Status](t, rec)
	if st, ok := statuses[domain.TypePosts]; !ok || st.State != domain.StateIdle {
		t.Errorf("unexpected statuses %+v", statuses)
	}
}

func TestRunTypeSync(t *testing.T) {
	ts := newTestServer(t)
	ts.adapter.items[domain.TypePosts] = []domain.Item{
		{"id": 1.0, "title": "a"},
		{"id": 2.0, "title": "b"},
	}

	rec := ts.request(t, http.MethodPost, "/v1/sync/posts/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("type sync: %d %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[domain.TypeResult](t, rec)
	if !res.Success || res.Synced != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunTypeSyncUnknownType(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/v1/sync/bogus/run", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown type, got %d", rec.Code)
	}
	// Media is a real domain but not enabled on this engine.
	rec = ts.request(t, http.MethodPost, "/v1/sync/media/run", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled type, got %d", rec.Code)
	}
}

func TestRunFullSync(t *testing.T) {
	ts := newTestServer(t)
	ts.adapter.items[domain.TypePosts] = []domain.Item{{"id": 1.0, "title": "a"}}

	rec := ts.request(t, http.MethodPost, "/v1/sync/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("full sync: %d %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[domain.FullSyncResult](t, rec)
	if !res.Success || len(res.Results) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestForceItemSync(t *testing.T) {
	ts := newTestServer(t)
	ts.adapter.items[domain.TypePosts] = []domain.Item{{"id": 9.0, "title": "forced"}}

	rec := ts.request(t, http.MethodPost, "/v1/sync/items/posts/9", `{"direction":"remote_to_local"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("force sync: %d %s", rec.Code, rec.Body.String())
	}
	if _, err := ts.mappings.Find(context.Background(), domain.TypePosts, "9"); err != nil {
		t.Errorf("forced item has no mapping: %v", err)
	}
}

func TestForceItemSyncErrors(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"missing item", "/v1/sync/items/posts/404", `{"direction":"remote_to_local"}`, http.StatusNotFound},
		{"unknown type", "/v1/sync/items/bogus/1", `{"direction":"remote_to_local"}`, http.StatusNotFound},
		{"bad direction", "/v1/sync/items/posts/1", `{"direction":"sideways"}`, http.StatusBadRequest},
		{"bad json", "/v1/sync/items/posts/1", `{"direction":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.request(t, http.MethodPost, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Errorf("%s: got %d, want %d (%s)", tc.path, rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

// seedConflict produces one open conflict through a real divergent sync.
func seedConflict(t *testing.T, ts *testServer) *domain.Conflict {
	t.Helper()
	ctx := context.Background()

	remoteItem := domain.Item{"id": 1.0, "title": "remote edit"}
	ts.adapter.items[domain.TypePosts] = []domain.Item{remoteItem}
	if err := ts.local.PutItem(ctx, domain.TypePosts, "L1", domain.Item{"id": 1.0, "title": "local edit"}); err != nil {
		t.Fatalf("PutItem: %v", err)
	}
	err := ts.mappings.Upsert(ctx, &domain.Mapping{
		LocalID:    "L1",
		RemoteID:   "1",
		Type:       domain.TypePosts,
		LastSynced: time.Now().UTC().Add(-time.Hour),
		Checksum:   "stale",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rec := ts.request(t, http.MethodPost, "/v1/sync/posts/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("seed sync: %d %s", rec.Code, rec.Body.String())
	}

	unresolved := false
	open, err := ts.confls.List(ctx, &unresolved)
	if err != nil || len(open) != 1 {
		t.Fatalf("expected 1 open conflict, got %d (err %v)", len(open), err)
	}
	return open[0]
}

func TestListConflicts(t *testing.T) {
	ts := newTestServer(t)
	seedConflict(t, ts)

	rec := ts.request(t, http.MethodGet, "/v1/sync/conflicts?resolved=false", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list conflicts: %d %s", rec.Code, rec.Body.String())
	}
	conflicts := decodeBody[[]*domain.Conflict](t, rec)
	if len(conflicts) != 1 || conflicts[0].Type != domain.TypePosts {
		t.Errorf("unexpected conflicts %+v", conflicts)
	}

	rec = ts.request(t, http.MethodGet, "/v1/sync/conflicts?resolved=notabool", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter accepted: %d", rec.Code)
	}
}

func TestResolveConflict(t *testing.T) {
	ts := newTestServer(t)
	c := seedConflict(t, ts)

	rec := ts.request(t, http.MethodPost, "/v1/sync/conflicts/"+c.ID+"/resolve", `{"resolution":"remote"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}

	local, err := ts.local.GetItem(context.Background(), domain.TypePosts, "L1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if local["title"] != "remote edit" {
		t.Errorf("local copy not overwritten: %v", local["title"])
	}

	// Resolving twice conflicts.
	rec = ts.request(t, http.MethodPost, "/v1/sync/conflicts/"+c.ID+"/resolve", `{"resolution":"local"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on double resolve, got %d", rec.Code)
	}
}

func TestResolveConflictErrors(t *testing.T) {
	ts := newTestServer(t)
	c := seedConflict(t, ts)

	rec := ts.request(t, http.MethodPost, "/v1/sync/conflicts/missing/resolve", `{"resolution":"remote"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown conflict: got %d, want 404", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, "/v1/sync/conflicts/"+c.ID+"/resolve", `{"resolution":"coin-flip"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad resolution: got %d, want 400", rec.Code)
	}
}

func TestGetLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.adapter.items[domain.TypePosts] = []domain.Item{{"id": 1.0, "title": "a"}}
	ts.request(t, http.MethodPost, "/v1/sync/posts/run", "")

	rec := ts.request(t, http.MethodGet, "/v1/sync/logs?type=posts&limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logs: %d %s", rec.Code, rec.Body.String())
	}
	entries := decodeBody[[]*domain.LogEntry](t, rec)
	if len(entries) == 0 || entries[0].Action != "sync" {
		t.Errorf("unexpected log entries %+v", entries)
	}

	rec = ts.request(t, http.MethodGet, "/v1/sync/logs?type=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type filter accepted: %d", rec.Code)
	}
}

func TestExportConfigEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/v1/sync/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("config: %d %s", rec.Code, rec.Body.String())
	}
	cfg := decodeBody[engine.ExportedConfig](t, rec)
	if len(cfg.EnabledTypes) != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Policies[domain.TypePosts] != domain.PolicyBidirectional {
		t.Error("posts policy missing from export")
	}
}

func TestAutoSyncEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/v1/sync/auto/start", `{"intervalMinutes":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("auto start: %d %s", rec.Code, rec.Body.String())
	}
	if !ts.orch.AutoSyncRunning() {
		t.Fatal("auto sync not running after start")
	}

	rec = ts.request(t, http.MethodPost, "/v1/sync/auto/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("auto stop: %d %s", rec.Code, rec.Body.String())
	}
	if ts.orch.AutoSyncRunning() {
		t.Fatal("auto sync still running after stop")
	}
}

func TestCorrelationIDEcho(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("correlation id not echoed: %q", got)
	}

	// One is generated when the client does not send one.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("no correlation id generated")
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		q    string
		want int
	}{
		{"", 100},
		{"abc", 100},
		{"-5", 100},
		{"0", 100},
		{"50", 50},
		{"99999", store.MaxLogEntries},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.q, 100, store.MaxLogEntries); got != tc.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tc.q, got, tc.want)
		}
	}
}
