package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/local/imageplanner/internal/imagery"
	"github.com/local/imageplanner/internal/pipeline"
	"github.com/local/imageplanner/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	status  map[string]store.Status
	results map[string]imagery.ProcessResult
}

func newMemStore() *memStore {
	return &memStore{status: map[string]store.Status{}, results: map[string]imagery.ProcessResult{}}
}

func (m *memStore) SetStatus(_ context.Context, jobID string, st store.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[jobID] = st
	return nil
}

func (m *memStore) GetStatus(_ context.Context, jobID string) (store.Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[jobID]
	return st, ok, nil
}

func (m *memStore) SaveResult(_ context.Context, jobID string, res imagery.ProcessResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[jobID] = res
	return nil
}

func (m *memStore) GetResult(_ context.Context, jobID string) (imagery.ProcessResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[jobID]
	return res, ok, nil
}

type fakeEngine struct {
	mu          sync.Mutex
	lastOpts    pipeline.Options
	lastContent imagery.Content
	result      imagery.ProcessResult
}

func (f *fakeEngine) Process(_ context.Context, content imagery.Content, _ []imagery.Section, opts pipeline.Options) imagery.ProcessResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	f.lastContent = content
	return f.result
}

func (f *fakeEngine) content() imagery.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastContent
}

func (f *fakeEngine) options() pipeline.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}

type failArchive struct{ called bool }

func (a *failArchive) Save(context.Context, string, imagery.ProcessResult) (string, error) {
	a.called = true
	return "", errors.New("bucket gone")
}

func waitForStatus(t *testing.T, st *memStore, jobID, want string) store.Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cur, ok, _ := st.GetStatus(context.Background(), jobID)
		if ok && cur.Status == want {
			return cur
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %q", jobID, want)
	return store.Status{}
}

func postJob(t *testing.T, ts *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/process_document", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var pr processResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pr.JobID == "" {
		t.Fatal("empty job_id")
	}
	return pr.JobID
}

func TestProcessDocumentLifecycle(t *testing.T) {
	st := newMemStore()
	eng := &fakeEngine{result: imagery.ProcessResult{
		ExtractedImages: []imagery.Image{{URL: "https://example.com/a.png"}},
		Placement: imagery.PlacementResult{
			Placements: []imagery.Placement{{ImageID: "https://example.com/a.png", SectionID: "s1"}},
			Score:      72,
		},
	}}
	srv := New(Dependencies{Engine: eng, Status: st})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	jobID := postJob(t, ts, `{"content":{"html":"<img src=x>"},"sections":[{"id":"s1","type":"usage"}]}`)
	final := waitForStatus(t, st, jobID, "success")
	if final.Progress != 100 {
		t.Errorf("progress = %d, want 100", final.Progress)
	}
	if got := final.Metadata["placement_score"]; got != 72.0 {
		t.Errorf("placement_score metadata = %v, want 72", got)
	}

	resp, err := http.Get(ts.URL + "/progress/" + jobID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	var prog map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&prog)
	resp.Body.Close()
	if prog["success"] != true || prog["status"] != "success" {
		t.Errorf("progress payload = %v", prog)
	}

	resp, err = http.Get(ts.URL + "/result/" + jobID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result status = %d, want 200", resp.StatusCode)
	}
	var res imagery.ProcessResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Placement.Score != 72 || len(res.Placement.Placements) != 1 {
		t.Errorf("unexpected result: %+v", res.Placement)
	}
}

func TestProcessDocumentOptionsMerge(t *testing.T) {
	st := newMemStore()
	eng := &fakeEngine{}
	srv := New(Dependencies{Engine: eng, Status: st})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	body := `{"content":{"html":"<p></p>"},"sections":[{"id":"s1"}],` +
		`"document_type":"user_manual",` +
		`"options":{"placement":{"maxImagesPerSection":1},"optimization":{"quality":60}}}`
	jobID := postJob(t, ts, body)
	waitForStatus(t, st, jobID, "success")

	opts := eng.options()
	if opts.Placement.MaxImagesPerSection != 1 {
		t.Errorf("MaxImagesPerSection = %d, want override 1", opts.Placement.MaxImagesPerSection)
	}
	if opts.Optimization.Quality != 60 {
		t.Errorf("Quality = %d, want override 60", opts.Optimization.Quality)
	}
	// Preset values not named in the override survive.
	preset := pipeline.OptionsFor("user_manual")
	if opts.Extraction.MaxImages != preset.Extraction.MaxImages {
		t.Errorf("MaxImages = %d, want preset %d", opts.Extraction.MaxImages, preset.Extraction.MaxImages)
	}
	if opts.Screenshot.IntervalSeconds != preset.Screenshot.IntervalSeconds {
		t.Errorf("IntervalSeconds = %v, want preset %v", opts.Screenshot.IntervalSeconds, preset.Screenshot.IntervalSeconds)
	}
}

func TestProcessDocumentRejectsBadInput(t *testing.T) {
	srv := New(Dependencies{Engine: &fakeEngine{}, Status: newMemStore()})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"no content no sections", `{"document_type":"user_manual"}`, http.StatusBadRequest},
		{"bad options", `{"sections":[{"id":"s1"}],"options":{"placement":"nope"}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/process_document", "application/json", bytes.NewReader([]byte(tc.body)))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}

	resp, err := http.Get(ts.URL + "/process_document")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestArchiveFailureDoesNotFailJob(t *testing.T) {
	st := newMemStore()
	arch := &failArchive{}
	srv := New(Dependencies{Engine: &fakeEngine{}, Status: st, Archive: arch})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	jobID := postJob(t, ts, `{"sections":[{"id":"s1"}]}`)
	waitForStatus(t, st, jobID, "success")
	if !arch.called {
		t.Error("archive was never attempted")
	}
}

func TestResultStates(t *testing.T) {
	st := newMemStore()
	srv := New(Dependencies{Engine: &fakeEngine{}, Status: st})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/result/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", resp.StatusCode)
	}

	// A queued job with no saved result reports 202.
	_ = st.SetStatus(context.Background(), "pending", store.Status{Status: "queued"})
	resp, err = http.Get(ts.URL + "/result/pending")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("pending job status = %d, want 202", resp.StatusCode)
	}
}

type fakeEnricher struct{}

func (fakeEnricher) Enrich(_ context.Context, v *imagery.Video) error {
	v.Duration = 120
	v.KeyMoments = []imagery.VideoMoment{{Timestamp: 30, Importance: imagery.ImportanceHigh}}
	return nil
}

func TestVideoEnrichmentBeforeProcessing(t *testing.T) {
	st := newMemStore()
	eng := &fakeEngine{}
	srv := New(Dependencies{Engine: eng, Status: st, Videos: fakeEnricher{}})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	jobID := postJob(t, ts, `{"content":{"video":{"id":"dQw4w9WgXcQ"}},"sections":[{"id":"s1"}]}`)
	waitForStatus(t, st, jobID, "success")

	got := eng.content()
	if got.Video == nil {
		t.Fatal("video missing from processed content")
	}
	if got.Video.Duration != 120 || len(got.Video.KeyMoments) != 1 {
		t.Errorf("video not enriched: %+v", got.Video)
	}
}
