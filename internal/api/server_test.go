package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leangraph/internal/config"
	"leangraph/internal/decl"
	"leangraph/internal/index"
	"leangraph/internal/pipeline"
	"leangraph/internal/record"
	"leangraph/internal/store"
)

const testStream = `Name: nat
  File: library/init/nat.lean
  Line: 12
  Kind: inductive
  Is inductive: true

Name: nat.add
  File: library/init/nat.lean
  Line: 54
  Kind: definition
  Type uses others: ["nat"]

Name: nat.add_comm
  File: library/init/nat.lean
  Line: 61
  Kind: theorem
  Type uses others: ["nat", "nat.add"]
`

func testConfig() config.Config {
	return config.Config{
		DataDir:            "unused",
		WorkerCount:        1,
		MaxQueueSize:       2,
		JobTTL:             time.Hour,
		ComponentCacheSize: 8,
		MaxUploadBytes:     1 << 20,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, store.NewMemory(), log)
	return NewServer(orch, log, cfg), orch
}

// publishStream parses a record stream and publishes the resulting
// snapshot, standing in for a finished crawl.
func publishStream(t *testing.T, orch *pipeline.Orchestrator, stream string) {
	t.Helper()
	recs, err := record.ReadAll(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("fixture stream: %v", err)
	}
	ds := make([]*decl.Declaration, len(recs))
	for i, rec := range recs {
		if ds[i], err = decl.Build(rec); err != nil {
			t.Fatalf("fixture declaration: %v", err)
		}
	}
	ix, err := index.FromDeclarations("core", ds)
	if err != nil {
		t.Fatalf("fixture index: %v", err)
	}
	snap, err := pipeline.BuildSnapshot(ix)
	if err != nil {
		t.Fatalf("fixture snapshot: %v", err)
	}
	orch.Holder().Publish(snap)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestNoCorpusLoaded(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/decls", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any crawl, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIToken = "secret"
	srv, orch := newTestServer(t, cfg)
	publishStream(t, orch, testStream)

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/prune", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(""); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without header, got %d", code)
	}
	if code := do("Bearer wrong"); code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", code)
	}
	if code := do("Bearer secret"); code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", code)
	}
}

func TestAuthDisabledWhenNoToken(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	req := httptest.NewRequest(http.MethodPost, "/v1/prune", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with auth disabled, got %d", rec.Code)
	}
}

func TestListDecls(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	get := func(url string) map[string]any {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", url, rec.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("GET %s: bad JSON: %v", url, err)
		}
		return body
	}

	if body := get("/v1/decls"); body["count"].(float64) != 3 {
		t.Errorf("expected 3 declarations, got %v", body["count"])
	}
	if body := get("/v1/decls?prefix=nat.add"); body["count"].(float64) != 2 {
		t.Errorf("expected 2 declarations under nat.add, got %v", body["count"])
	}
	if body := get("/v1/decls?kind=theorem"); body["count"].(float64) != 1 {
		t.Errorf("expected 1 theorem, got %v", body["count"])
	}
	if body := get("/v1/decls?limit=1"); body["count"].(float64) != 1 {
		t.Errorf("expected limit to cap at 1, got %v", body["count"])
	}
}

func TestGetDecl(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/decls/nat.add", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var d struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if d.Name != "nat.add" || d.Kind != "definition" {
		t.Errorf("unexpected declaration %+v", d)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/decls/nat.mul", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown name, got %d", rec.Code)
	}
}

func TestPruneRemovesAndRepublishes(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	body := `{"names": ["nat"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/prune", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Before int `json:"before"`
		After  int `json:"after"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Before != 3 || resp.After != 2 {
		t.Errorf("expected before=3 after=2, got %+v", resp)
	}

	// The published snapshot must reflect the prune.
	snap := orch.Holder().Load()
	if snap.Index.Has("nat") {
		t.Error("expected nat to be pruned from the published snapshot")
	}
	if snap.Graph.Len() != 2 {
		t.Errorf("expected 2 graph nodes after prune, got %d", snap.Graph.Len())
	}
}

func TestTopoOrder(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/graph/topo", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	want := []string{"nat", "nat.add", "nat.add_comm"}
	if len(resp.Order) != 3 || resp.Order[0] != want[0] || resp.Order[1] != want[1] || resp.Order[2] != want[2] {
		t.Errorf("expected order %v, got %v", want, resp.Order)
	}
}

func TestComponent(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/graph/component/nat.add_comm", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Nodes []string `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(resp.Nodes) != 3 {
		t.Errorf("expected full 3-node component, got %v", resp.Nodes)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/graph/component/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown component root, got %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/graph/export?format=dot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "digraph dependencies") {
		t.Errorf("expected DOT output, got: %.80s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/graph/export?format=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())
	publishStream(t, orch, testStream)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Corpus struct {
			Declarations int `json:"declarations"`
		} `json:"corpus"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Corpus.Declarations != 3 {
		t.Errorf("expected 3 declarations in stats, got %d", resp.Corpus.Declarations)
	}
}

func TestSubmitCrawl_UploadAndQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	srv, orch := newTestServer(t, cfg)

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "core.records")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(testStream))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/v1/crawls", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	// Workers are not running, so the first job stays queued.
	first := upload()
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", first.Code, first.Body.String())
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.JobID == "" {
		t.Error("expected a job id")
	}
	if job := orch.GetJob(resp.JobID); job == nil {
		t.Error("expected the job to be registered")
	}

	second := upload()
	if second.Code != http.StatusConflict {
		t.Errorf("expected 409 when the queue is full, got %d", second.Code)
	}
}

func TestCrawlStatus(t *testing.T) {
	srv, orch := newTestServer(t, testConfig())

	job := pipeline.NewUploadJob("core", []byte(testStream))
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crawls/"+job.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if snap.Status != "queued" {
		t.Errorf("expected queued status, got %q", snap.Status)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crawls/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}
