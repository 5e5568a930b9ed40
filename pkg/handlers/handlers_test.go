package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/orientation-scheduler/pkg/auth"
	"github.com/arnavshah/orientation-scheduler/pkg/catalog"
	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
	"github.com/arnavshah/orientation-scheduler/pkg/logger"
	"github.com/arnavshah/orientation-scheduler/pkg/metrics"
)

type testServer struct {
	h      *Handler
	router *gin.Engine
	key    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	rec, err := metrics.NewRecorderWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := auth.NewService(config.AuthConfig{
		JWTSecret:     "jwt",
		MasterSecret:  "master",
		AdminUsername: "admin",
		AdminPassword: "secret",
		BcryptCost:    4,
	}, nil)

	h := &Handler{
		Store:    database.NewStore(db),
		Auth:     svc,
		Catalog:  catalog.Default(),
		Recorder: rec,
		Log:      logger.NopLogger{},
		MaxHours: 50,
	}
	return &testServer{h: h, router: NewRouter(h), key: svc.GenerateHMACKey("tester")}
}

func (s *testServer) do(method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(http.MethodGet, path, nil, nil)
}

func (s *testServer) postJSON(path string, body any, token string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	h := http.Header{"Content-Type": {"application/json"}}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return s.do(http.MethodPost, path, bytes.NewReader(data), h)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func scheduleBody(persist bool) map[string]any {
	return map[string]any{
		"leaders": []map[string]any{
			{"first_name": "Alice", "last_name": "Smith", "email": "alice@school.edu", "availability": "Aug 25: all-day"},
			{"name": "Bob Jones", "email": "bob@school.edu", "availability": map[string]string{"Aug 25": "morning"}},
			{"name": "Cara Diaz", "email": "cara@school.edu", "availability": map[string]string{"Aug 25": "afternoon"}},
		},
		"events": []map[string]any{
			{"name": "Campus Tour", "date": "Aug 25", "start_time": "9:00am", "end_time": "11:00am", "leaders_needed": 2},
			{"name": "Lunch Social", "date": "Aug 25", "start_time": "12:00pm", "end_time": "1:00pm", "leaders_needed": 1},
			{"name": "Trivia Night", "date": "Aug 25", "start_time": "7:00pm", "end_time": "9:00pm", "leaders_needed": 2},
		},
		"persist": persist,
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body["endpoints"], "lookup")

	w = s.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["data_loaded"])
	assert.EqualValues(t, 45, body["data_counts"].(map[string]any)["orientation_events"])
}

func TestQueriesBeforeAnyRun(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/summary", "/api/leaders", "/api/events", "/api/leader-assignments", "/api/lookup/alice"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusServiceUnavailable, s.get(path).Code)
		})
	}
}

func TestScheduleJSON_Auth(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/schedule", scheduleBody(false), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.postJSON("/api/schedule", scheduleBody(false), "tester.forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScheduleJSON_PersistAndQuery(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/schedule", scheduleBody(true), s.key)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["run_id"])
	assert.EqualValues(t, 2, body["rounds"])
	assignments := body["leader_assignments"].(map[string]any)
	assert.Len(t, assignments["alice@school.edu"], 2)

	w = s.get("/api/leader-assignments?leader_email=ALICE")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total_assignments"])

	w = s.get("/api/event-staffing?fully_staffed=false")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total_events"])

	w = s.get("/api/event-staffing?min_duration=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.get("/api/leaders")
	require.Equal(t, http.StatusOK, w.Code)
	leaders := decode(t, w)["leaders"].([]any)
	require.Len(t, leaders, 3)
	assert.Equal(t, "Alice Smith", leaders[0].(map[string]any)["full_name"])

	w = s.get("/api/lookup/Diaz")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "cara@school.edu", body["leader_email"])
	assert.EqualValues(t, 1, body["total_events"])

	w = s.get("/api/lookup/nobody")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No leader found with name containing 'nobody'", decode(t, w)["error"])

	w = s.get("/api/event/campus%20tour/leaders")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Campus Tour", body["event_name"])
	assert.EqualValues(t, 2, body["total_leaders"])
	first := body["leaders"].([]any)[0].(map[string]any)
	assert.Equal(t, "Alice", first["first_name"])
	assert.Equal(t, "Smith", first["last_name"])

	w = s.get("/api/event/karaoke/leaders")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.get("/api/leader/bob@school.edu")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["statistics"].(map[string]any)
	assert.EqualValues(t, 2, stats["total_hours"])
	assert.EqualValues(t, 2, stats["average_hours_per_event"])

	w = s.get("/api/leader/bob")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.get("/api/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["summary"], 7)

	w = s.do(http.MethodGet, "/api/usage", nil, http.Header{"Authorization": {"Bearer " + s.key}})
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode(t, w)["totals"].(map[string]any)
	assert.EqualValues(t, 1, totals["requests"])
	assert.EqualValues(t, 3, totals["events"])

	w = s.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `scheduler_runs_total{outcome="success",source="api"} 1`)
}

func TestScheduleJSON_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "no leaders", body: map[string]any{"leaders": []any{}}},
		{name: "duplicate email", body: map[string]any{"leaders": []map[string]any{
			{"name": "A", "email": "a@school.edu"},
			{"name": "B", "email": "a@school.edu"},
		}}},
		{name: "bad time", body: map[string]any{
			"leaders": []map[string]any{{"name": "A", "email": "a@school.edu"}},
			"events":  []map[string]any{{"name": "X", "date": "Aug 25", "start_time": "noonish", "end_time": "1pm", "leaders_needed": 1}},
		}},
		{name: "bad availability", body: map[string]any{"leaders": []map[string]any{{"name": "A", "email": "a@school.edu", "availability": 7}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.postJSON("/api/schedule", tt.body, s.key)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestScheduleJSON_DefaultsToCatalog(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"leaders": []map[string]any{
		{"name": "A", "email": "a@school.edu", "availability": "Aug 25: all-day | Aug 26: all-day"},
	}}
	w := s.postJSON("/api/schedule", body, s.key)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["event_staffing"], 45)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.h.Store.CreateKey(context.Background(), &database.APIKey{Key: s.key, Name: "tester", RateLimit: 1}))

	w := s.postJSON("/api/schedule", scheduleBody(false), s.key)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.postJSON("/api/schedule", scheduleBody(false), s.key)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func (s *testServer) adminToken(t *testing.T) http.Header {
	t.Helper()
	w := s.postJSON("/admin/login", map[string]string{"username": "admin", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return http.Header{"Authorization": {"Bearer " + decode(t, w)["access_token"].(string)}}
}

// keyPath returns the admin path of the only registered key.
func (s *testServer) keyPath(t *testing.T, hdr http.Header) string {
	t.Helper()
	w := s.do(http.MethodGet, "/admin/keys", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	keys := decode(t, w)["keys"].([]any)
	require.Len(t, keys, 1)
	return "/admin/keys/" + strconv.Itoa(int(keys[0].(map[string]any)["id"].(float64)))
}

func TestRateLimit_AdminUpdate(t *testing.T) {
	s := newTestServer(t)
	hdr := s.adminToken(t)

	require.Equal(t, http.StatusOK, s.postJSON("/api/schedule", scheduleBody(false), s.key).Code)

	w := s.do(http.MethodPut, s.keyPath(t, hdr)+"?rate_limit=1", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.postJSON("/api/schedule", scheduleBody(false), s.key)
	assert.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())

	tests := []struct {
		name string
		call func() *httptest.ResponseRecorder
	}{
		{name: "validate", call: func() *httptest.ResponseRecorder {
			return s.postJSON("/api/validate", scheduleBody(false), s.key)
		}},
		{name: "usage", call: func() *httptest.ResponseRecorder {
			return s.do(http.MethodGet, "/api/usage", nil, http.Header{"Authorization": {"Bearer " + s.key}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.call()
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestRevokedKey(t *testing.T) {
	s := newTestServer(t)
	hdr := s.adminToken(t)

	require.Equal(t, http.StatusOK, s.postJSON("/api/schedule", scheduleBody(false), s.key).Code)
	path := s.keyPath(t, hdr)
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, nil, hdr).Code)

	w := s.postJSON("/api/schedule", scheduleBody(false), s.key)
	assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
	w = s.postJSON("/api/validate", scheduleBody(false), s.key)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/admin/keys", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["keys"])

	w = s.do(http.MethodGet, "/admin/usage/"+strings.TrimPrefix(path, "/admin/keys/"), nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["usage"], 1)
}

func TestValidateInput(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/validate", scheduleBody(false), s.key)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["valid"])
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 5, stats["total_demand"])
	assert.EqualValues(t, 5, stats["total_supply"])
	assert.Equal(t, false, stats["shortage"])

	w = s.postJSON("/api/validate", map[string]any{"leaders": []any{}}, s.key)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["valid"])
}

func TestScheduleCSV(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("leaders_file", "leaders.csv")
	require.NoError(t, err)
	io.WriteString(fw, "First Name,Last Name,Email,Availability\n"+
		"Alice,Smith,alice@school.edu,Aug 25: all-day\n"+
		"Bob,Jones,bob@school.edu,Aug 25: morning\n")
	fw, err = mw.CreateFormFile("events_file", "events.csv")
	require.NoError(t, err)
	io.WriteString(fw, "Event,Date,Start Time,End Time,Leaders Needed\n"+
		"Campus Tour,Aug 25,9:00am,11:00am,2\n")
	require.NoError(t, mw.WriteField("persist", "true"))
	require.NoError(t, mw.Close())

	w := s.do(http.MethodPost, "/api/schedule/csv", &buf, http.Header{
		"Content-Type":  {mw.FormDataContentType()},
		"Authorization": {"Bearer " + s.key},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["run_id"])
	files := body["files"].(map[string]any)
	assert.Contains(t, files, "event_staffing.csv")
	assert.NotContains(t, files, "time_conflicts.csv")
	lines := strings.Split(strings.TrimSpace(body["csv"].(string)), "\n")
	assert.Len(t, lines, 3)

	w = s.do(http.MethodPost, "/api/schedule/csv", strings.NewReader(""), http.Header{"Authorization": {"Bearer " + s.key}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Orientation Scheduler Admin")

	w = s.postJSON("/admin/login", map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.postJSON("/admin/login", map[string]string{"username": "admin", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["access_token"].(string)

	assert.Equal(t, http.StatusUnauthorized, s.postJSON("/admin/keys", map[string]string{"name": "x"}, "").Code)

	w = s.postJSON("/admin/keys", map[string]any{"name": "ops"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	created := decode(t, w)
	id := int(created["id"].(float64))
	assert.EqualValues(t, database.DefaultRateLimit, created["rate_limit"])

	hdr := http.Header{"Authorization": {"Bearer " + token}}
	w = s.do(http.MethodGet, "/admin/keys", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	keys := decode(t, w)["keys"].([]any)
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "key")

	path := "/admin/keys/" + strconv.Itoa(id)
	w = s.do(http.MethodPut, path+"?rate_limit=5", nil, hdr)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/admin/usage/"+strconv.Itoa(id), nil, hdr)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, path, nil, hdr)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, path, nil, hdr)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodDelete, "/admin/keys/abc", nil, hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
