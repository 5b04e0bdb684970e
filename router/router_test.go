package router

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timetable-lookup/config"
	"timetable-lookup/handlers"
	"timetable-lookup/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var janeTimetable = []byte(`<?xml version="1.0" encoding="UTF-8"?><plist version="1.0"><dict><key>Settings</key></dict></plist>`)

type testServer struct {
	engine *gin.Engine
	logs   *observer.ObservedLogs
	dir    string
}

func newTestServer(t *testing.T, rateLimit int, trustedProxies ...string) *testServer {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1001+Jane+Doe.timetable"), janeTimetable, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		TimetablesPath:     dir,
		SessionMaxAge:      time.Minute,
		Environment:        "test",
		CORSAllowedOrigins: []string{"*"},
		TrustedProxies:     trustedProxies,
	}

	core, logs := observer.New(zapcore.InfoLevel)
	timetables := services.NewTimetableService(services.NewFileStore(dir), zap.New(core))
	flashes := services.NewFlashStore(services.NewCacheService(time.Minute, time.Minute), cfg.SessionMaxAge)
	sessions := services.NewSessionManager("session-secret", "cookie-secret", cfg.SessionMaxAge)
	limiter := services.NewMemoryLimiter(rateLimit, time.Hour)
	t.Cleanup(func() { limiter.Close() })

	engine, err := Setup(cfg,
		handlers.NewTimetableHandler(timetables, flashes, zap.NewNop()),
		handlers.NewHealthHandler(timetables),
		sessions, limiter, zap.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return &testServer{engine: engine, logs: logs, dir: dir}
}

func (s *testServer) do(method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func identity(student, first, last string) url.Values {
	return url.Values{"student": {student}, "first": {first}, "last": {last}}
}

func lookups(logs *observer.ObservedLogs, outcome string) int {
	n := 0
	for _, e := range logs.FilterMessage("timetable lookup").All() {
		if e.ContextMap()["outcome"] == outcome {
			n++
		}
	}
	return n
}

func TestSubmitDownloadsTimetable(t *testing.T) {
	s := newTestServer(t, 50)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/", identity("1001", "Jane", "Doe"), nil)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !bytes.Equal(w.Body.Bytes(), janeTimetable) {
			t.Errorf("body = %q, want fixture bytes", w.Body.Bytes())
		}
		if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="1001+Jane+Doe.timetable"` {
			t.Errorf("Content-Disposition = %q", got)
		}
		if got := w.Header().Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("Content-Type = %q", got)
		}
	}

	if n := lookups(s.logs, "success"); n != 2 {
		t.Errorf("logged %d successful lookups, want 2", n)
	}
}

func TestSubmitMissingTimetableFlashesOnce(t *testing.T) {
	s := newTestServer(t, 50)

	w := s.do(http.MethodPost, "/", identity("9999", "No", "One"), nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Error("failed lookup must not send a download")
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie carrying the flash")
	}

	page := s.do(http.MethodGet, "/", nil, cookies)
	if page.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", page.Code)
	}
	if n := strings.Count(page.Body.String(), "Could not find timetable"); n != 1 {
		t.Errorf("flash rendered %d times, want 1", n)
	}

	again := s.do(http.MethodGet, "/", nil, cookies)
	if strings.Contains(again.Body.String(), "Could not find timetable") {
		t.Error("flash reappeared on a second render")
	}

	if n := lookups(s.logs, "failure"); n != 1 {
		t.Errorf("logged %d failed lookups, want 1", n)
	}
}

func TestRepeatedFailuresDoNotAccumulate(t *testing.T) {
	s := newTestServer(t, 50)

	first := s.do(http.MethodPost, "/", identity("9999", "No", "One"), nil)
	cookies := first.Result().Cookies()
	s.do(http.MethodPost, "/", identity("9999", "No", "One"), cookies)

	page := s.do(http.MethodGet, "/", nil, cookies)
	if n := strings.Count(page.Body.String(), "Could not find timetable"); n != 1 {
		t.Errorf("flash rendered %d times, want 1", n)
	}
	if n := lookups(s.logs, "failure"); n != 2 {
		t.Errorf("logged %d failed lookups, want 2", n)
	}
}

func TestSubmitPassesPathSegmentsThrough(t *testing.T) {
	s := newTestServer(t, 50)

	// The student field walks out of the base directory and back in.
	w := s.do(http.MethodPost, "/", identity("../"+filepath.Base(s.dir)+"/1001", "Jane", "Doe"), nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), janeTimetable) {
		t.Errorf("status = %d, want the fixture served", w.Code)
	}
	want := `attachment; filename="../` + filepath.Base(s.dir) + `/1001+Jane+Doe.timetable"`
	if got := w.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}
}

func TestSubmitRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, 2)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(identity("1001", "Jane", "Doe").Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		req.RemoteAddr = "203.0.113.7:40000"
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	want := []int{200, 200, 429, 429, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestTrustedProxyForwardedFor(t *testing.T) {
	s := newTestServer(t, 1, "203.0.113.7")

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(identity("1001", "Jane", "Doe").Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		req.RemoteAddr = "203.0.113.7:40000"
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("client %d behind trusted proxy: status = %d, want 200", i, w.Code)
		}
	}
}

func TestPagesAlwaysRender(t *testing.T) {
	s := newTestServer(t, 1)

	// Exhaust the submission limit first; pages are not rate limited.
	s.do(http.MethodPost, "/", identity("9999", "No", "One"), nil)
	s.do(http.MethodPost, "/", identity("9999", "No", "One"), nil)

	for _, path := range []string{"/", "/tutorial", "/", "/tutorial"} {
		w := s.do(http.MethodGet, path, nil, nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
		if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
			t.Errorf("GET %s Content-Type = %q", path, w.Header().Get("Content-Type"))
		}
	}
}

func TestSubmitRateLimited(t *testing.T) {
	s := newTestServer(t, 50)

	for i := 1; i <= 50; i++ {
		w := s.do(http.MethodPost, "/", identity("1001", "Jane", "Doe"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
		if i == 50 && w.Header().Get("X-RateLimit-Remaining") != "0" {
			t.Errorf("X-RateLimit-Remaining = %q on the 50th request", w.Header().Get("X-RateLimit-Remaining"))
		}
	}

	w := s.do(http.MethodPost, "/", identity("1001", "Jane", "Doe"), nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("51st request status = %d, want 429", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "50" {
		t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
	}
	if n := lookups(s.logs, "success"); n != 50 {
		t.Errorf("lookup reached %d times, want 50", n)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 50)

	if w := s.do(http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}

	if err := os.RemoveAll(s.dir); err != nil {
		t.Fatal(err)
	}
	w := s.do(http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), `"storage":"unavailable"`) {
		t.Errorf("health with missing storage: %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, 50)

	if w := s.do(http.MethodGet, "/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
