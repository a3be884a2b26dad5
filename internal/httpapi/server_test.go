package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/smartmatch/internal/ai"
	"github.com/spigell/smartmatch/internal/events"
	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
	"github.com/spigell/smartmatch/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MatchEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingArchive struct {
	keys  []string
	sizes []int
}

func (a *recordingArchive) Put(_ context.Context, candidateID int64, filename, _ string, data []byte) (string, error) {
	key := "resumes/test/" + filename
	a.keys = append(a.keys, key)
	a.sizes = append(a.sizes, len(data))
	return key, nil
}

type stubReviewer struct {
	review *ai.Review
	err    error
}

func (r stubReviewer) Review(context.Context, *profile.Candidate, *profile.Job, matching.Result) (*ai.Review, error) {
	return r.review, r.err
}

type testAPI struct {
	router *gin.Engine
	store  *storage.SQLStore
	logs   *observer.ObservedLogs
}

func newTestAPI(t *testing.T, deps Deps, opts Options) *testAPI {
	t.Helper()

	store, err := storage.Open(context.Background(), storage.Options{
		Driver: storage.DriverSQLite,
		URL:    "sqlite:///" + filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	core, logs := observer.New(zap.DebugLevel)
	deps.Store = store
	deps.Logger = zap.New(core)

	return &testAPI{router: NewRouter(deps, opts), store: store, logs: logs}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(t *testing.T, path, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	api := newTestAPI(t, Deps{}, Options{})

	rec := api.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))

	entries := api.logs.FilterMessage("request").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, "req-42", entries[len(entries)-1].ContextMap()["request_id"])
}

func TestCandidateEndpoints(t *testing.T) {
	api := newTestAPI(t, Deps{}, Options{})

	rec := api.do(t, http.MethodPost, "/api/candidates", map[string]any{
		"id":                 99,
		"name":               "Dana",
		"email":              "dana@example.com",
		"city":               "Almaty",
		"years_experience":   4,
		"salary_expectation": 600000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[profile.Candidate](t, rec)
	assert.NotEqual(t, int64(99), created.ID)
	assert.Equal(t, "Dana", created.Name)
	require.NotNil(t, created.SalaryExpectation)
	assert.Equal(t, int64(600000), *created.SalaryExpectation)

	rec = api.do(t, http.MethodGet, "/api/candidates/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[profile.Candidate](t, rec))

	rec = api.do(t, http.MethodGet, "/api/candidates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]profile.Candidate](t, rec), 1)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		detail string
	}{
		{name: "missing", method: http.MethodGet, path: "/api/candidates/12345", status: http.StatusNotFound, detail: `"Candidate not found"`},
		{name: "bad id", method: http.MethodGet, path: "/api/candidates/abc", status: http.StatusUnprocessableEntity, detail: `"id must be an integer"`},
		{name: "bad json", method: http.MethodPost, path: "/api/candidates", body: "{", status: http.StatusBadRequest, detail: `"invalid JSON body"`},
		{
			name: "validation", method: http.MethodPost, path: "/api/candidates",
			body:   map[string]any{"email": "nope", "years_experience": -1},
			status: http.StatusUnprocessableEntity,
			detail: `[
				{"loc":["body","email"],"msg":"value is not a valid email address"},
				{"loc":["body","name"],"msg":"field required"},
				{"loc":["body","years_experience"],"msg":"must be greater than or equal to 0"}
			]`,
		},
		{
			name: "wrong type", method: http.MethodPost, path: "/api/candidates",
			body:   map[string]any{"name": "Dana", "years_experience": "many"},
			status: http.StatusUnprocessableEntity,
			detail: `"years_experience: expected float64"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"detail":`+tt.detail+`}`, rec.Body.String())
		})
	}
}

func TestMatchFlow(t *testing.T) {
	publisher := &recordingPublisher{}
	api := newTestAPI(t, Deps{
		Events:   publisher,
		Reviewer: stubReviewer{review: &ai.Review{Summary: "Relocation needed", Tips: []string{"Ask about Almaty"}}},
	}, Options{})

	rec := api.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"company": "Acme", "city": "Almaty", "min_experience": 3, "title": "Go Developer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	job := decode[profile.Job](t, rec)

	rec = api.do(t, http.MethodPost, "/api/candidates", map[string]any{
		"name": "Dana", "city": "Astana", "years_experience": 5, "title": "Senior Go Developer",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cand := decode[profile.Candidate](t, rec)

	rec = api.do(t, http.MethodPost, "/api/match/"+itoa(job.ID)+"/"+itoa(cand.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[MatchOut](t, rec)

	assert.Equal(t, 85.0, out.Score)
	assert.Equal(t, []string{"City mismatch: job=Almaty, candidate=Astana"}, out.Reasons.Gaps)
	assert.Equal(t, []string{"Meets experience", "Title match"}, out.Reasons.Strengths)
	assert.Equal(t, "Dana", out.Candidate.Name)
	assert.Equal(t, "Acme", out.Job.Company)
	assert.NotEmpty(t, out.Insights.OfferSuggestions)
	require.NotNil(t, out.AIReview)
	assert.Equal(t, "Relocation needed", out.AIReview.Summary)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, out.MatchID, publisher.events[0].MatchID)
	assert.Equal(t, 85.0, publisher.events[0].Score)

	rec = api.do(t, http.MethodGet, "/api/jobs/"+itoa(job.ID)+"/matches", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode[[]storage.Match](t, rec)
	require.Len(t, matches, 1)
	assert.Equal(t, cand.ID, matches[0].CandidateID)
	assert.Equal(t, out.Reasons, matches[0].Reasons)

	rec = api.do(t, http.MethodGet, "/api/jobs/"+itoa(job.ID)+"/ranking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := decode[[]matching.Ranked](t, rec)
	require.Len(t, ranked, 1)
	assert.Equal(t, 85.0, ranked[0].Score)

	rec = api.do(t, http.MethodGet, "/api/jobs/"+itoa(job.ID)+"/ranking?min_score=90", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/jobs/"+itoa(job.ID)+"/ranking?limit=-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/match/"+itoa(job.ID)+"/777", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Job or Candidate not found"}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/jobs/777/matches", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Job not found"}`, rec.Body.String())
}

func TestMatchSurvivesReviewerAndPublisherFailures(t *testing.T) {
	api := newTestAPI(t, Deps{
		Events:   &recordingPublisher{err: errors.New("broker down")},
		Reviewer: stubReviewer{err: errors.New("quota")},
	}, Options{})

	job := &profile.Job{Company: "Acme"}
	require.NoError(t, api.store.CreateJob(context.Background(), job))
	cand := &profile.Candidate{Name: "Dana"}
	require.NoError(t, api.store.CreateCandidate(context.Background(), cand))

	rec := api.do(t, http.MethodPost, "/api/match/"+itoa(job.ID)+"/"+itoa(cand.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "ai_review")

	assert.Equal(t, 1, api.logs.FilterMessage("match event not published").Len())
	assert.Equal(t, 1, api.logs.FilterMessage("ai review failed").Len())
}

func TestMatchRateLimit(t *testing.T) {
	api := newTestAPI(t, Deps{}, Options{MatchRate: 0.001, MatchBurst: 1})

	job := &profile.Job{Company: "Acme"}
	require.NoError(t, api.store.CreateJob(context.Background(), job))
	cand := &profile.Candidate{Name: "Dana"}
	require.NoError(t, api.store.CreateCandidate(context.Background(), cand))

	path := "/api/match/" + itoa(job.ID) + "/" + itoa(cand.ID)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, path, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, api.do(t, http.MethodPost, path, nil).Code)
}

func TestRulesEndpoint(t *testing.T) {
	api := newTestAPI(t, Deps{}, Options{})

	rec := api.do(t, http.MethodGet, "/api/match/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decode[[]matching.RuleInfo](t, rec)
	require.Len(t, rules, 7)
	assert.Equal(t, matching.RuleInfo{Name: "location", MaxPenalty: 15}, rules[0])
}

func TestImportEndpoints(t *testing.T) {
	api := newTestAPI(t, Deps{}, Options{})

	csv := "name,email,city\nDana,dana@example.com,Almaty\ndana,DANA@example.com,Astana\nTimur,,Almaty\n"
	rec := api.upload(t, "/api/imports/candidates/csv", "people.csv", "text/csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get(headerSkipped))
	created := decode[[]profile.Candidate](t, rec)
	require.Len(t, created, 2)
	assert.Equal(t, "csv", created[0].Source)

	rec = api.do(t, http.MethodPost, "/api/imports/candidates/hh", []map[string]any{
		{"name": "Aigerim", "city": "Almaty", "years_experience": "2"},
		{"name": "Dana", "email": "dana@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get(headerSkipped))
	created = decode[[]profile.Candidate](t, rec)
	require.Len(t, created, 1)
	assert.Equal(t, "hh_stub", created[0].Source)
	assert.Equal(t, 2.0, created[0].YearsExperience)

	tests := []struct {
		name   string
		rec    func() *httptest.ResponseRecorder
		status int
	}{
		{
			name:   "unknown source",
			rec:    func() *httptest.ResponseRecorder { return api.do(t, http.MethodPost, "/api/imports/candidates/indeed", "[]") },
			status: http.StatusNotFound,
		},
		{
			name:   "object instead of array",
			rec:    func() *httptest.ResponseRecorder { return api.do(t, http.MethodPost, "/api/imports/candidates/linkedin", "{}") },
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "item without name",
			rec: func() *httptest.ResponseRecorder {
				return api.do(t, http.MethodPost, "/api/imports/candidates/telegram", `[{"city":"Almaty"}]`)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "broken csv",
			rec: func() *httptest.ResponseRecorder {
				return api.upload(t, "/api/imports/candidates/csv", "x.csv", "text/csv", []byte("name,years_experience\nDana,lots\n"))
			},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestResumeUpload(t *testing.T) {
	archive := &recordingArchive{}
	api := newTestAPI(t, Deps{Archive: archive}, Options{MaxUploadBytes: 64})

	cand := &profile.Candidate{Name: "Dana"}
	require.NoError(t, api.store.CreateCandidate(context.Background(), cand))
	path := "/api/candidates/" + itoa(cand.ID) + "/resume"

	rec := api.upload(t, path, "cv.txt", "text/plain; charset=utf-8", []byte("  Built payment APIs in Go.\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[map[string]any](t, rec)
	assert.Equal(t, "Built payment APIs in Go.", out["resume_text"])
	assert.Equal(t, "resumes/test/cv.txt", out["resume_object_key"])
	assert.Equal(t, []int{28}, archive.sizes)

	stored, err := api.store.GetCandidate(context.Background(), cand.ID)
	require.NoError(t, err)
	assert.Equal(t, "Built payment APIs in Go.", stored.ResumeText)

	tests := []struct {
		name   string
		path   string
		file   string
		mime   string
		data   []byte
		status int
	}{
		{name: "unsupported", path: path, file: "cv.png", mime: "image/png", data: []byte{0x89, 'P', 'N', 'G'}, status: http.StatusUnsupportedMediaType},
		{name: "too large", path: path, file: "cv.txt", mime: "text/plain", data: bytes.Repeat([]byte("a"), 65), status: http.StatusRequestEntityTooLarge},
		{name: "body over the limit", path: path, file: "cv.txt", mime: "text/plain", data: bytes.Repeat([]byte("a"), 2<<20), status: http.StatusRequestEntityTooLarge},
		{name: "missing candidate", path: "/api/candidates/404/resume", file: "cv.txt", mime: "text/plain", data: []byte("x"), status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.upload(t, tt.path, tt.file, tt.mime, tt.data)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, []int{28}, archive.sizes, "rejected uploads are not archived")
}

func TestSearchEndpoints(t *testing.T) {
	api := newTestAPI(t, Deps{}, Options{})
	ctx := context.Background()

	for _, c := range []*profile.Candidate{
		{Name: "Dana", City: "Almaty", Title: "Go Developer"},
		{Name: "Timur", City: "Astana", Title: "Go Developer"},
	} {
		require.NoError(t, api.store.CreateCandidate(ctx, c))
	}
	require.NoError(t, api.store.CreateJob(ctx, &profile.Job{Company: "Kaspi", City: "Almaty", Title: "Backend"}))

	rec := api.do(t, http.MethodGet, "/api/search/candidates?q=go&city=almaty", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]profile.Candidate](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "Dana", found[0].Name)

	rec = api.do(t, http.MethodGet, "/api/search/jobs?q=backend&city=Almaty", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]profile.Job](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/search/jobs?q=nothing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
