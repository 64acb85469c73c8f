package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miladpirayegar-hash/scholar/internal/config"
	"github.com/miladpirayegar-hash/scholar/internal/domain"
	"github.com/miladpirayegar-hash/scholar/internal/pipeline"
	"github.com/miladpirayegar-hash/scholar/internal/services"
	"github.com/miladpirayegar-hash/scholar/internal/storage"
)

func setupTestServer(t *testing.T) (*gin.Engine, *storage.SessionStore) {
	t.Helper()

	cfg := config.Config{
		Port:                  "8080",
		OpenAIBaseURL:         "http://localhost:0",
		OpenAIModelTranscribe: "whisper-1",
		OpenAIModelInsights:   "gpt-4o-mini",
		BaseURL:               "http://localhost:8080",
		ShareSecret:           "secret",
		ShareTTL:              time.Minute,
		MaxUploadBytes:        1 * 1024 * 1024,
		DataDir:               t.TempDir(),
		OutlineMaxChars:       12000,
	}

	files, err := storage.NewFileManager(cfg.DataDir, cfg.MaxUploadBytes)
	if err != nil {
		t.Fatalf("file manager: %v", err)
	}

	store := storage.NewSessionStore()
	openaiSvc := services.NewOpenAIService(cfg)
	insightsSvc := services.NewInsightsGenerator(openaiSvc)
	outlineSvc := services.NewOutlineExtractor(openaiSvc, cfg.OutlineMaxChars)
	sheetSvc := services.NewSheetService()
	shareSvc := services.NewShareService(cfg)
	pipe := pipeline.New(store, files, openaiSvc, insightsSvc)

	engine := gin.New()
	engine.Use(gin.Recovery())
	api := NewAPI(cfg, files, store, pipe, outlineSvc, sheetSvc, shareSvc)
	registerRoutes(engine, api)

	return engine, store
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if ok, exists := body["ok"].(bool); !exists || !ok {
		t.Fatalf("expected ok=true, body=%v", body)
	}
}

func TestCreateSessionMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == nil {
		t.Fatalf("expected error message in response")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/unknown", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, store := setupTestServer(t)

	store.Create("/a.mp3", "first")
	newest := store.Create("/b.mp3", "second")

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var sessions []domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != newest.ID {
		t.Fatalf("expected newest session first")
	}
}

func TestReprocessUnknownSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/unknown/reprocess", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReprocessRecordsFailureOnPoll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, store := setupTestServer(t)

	// The audio file does not exist, so the run fails before any provider
	// call. The request still returns immediately with 202.
	sess := store.Create("/does/not/exist.mp3", "broken")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/reprocess", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.Get(sess.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status == domain.StatusFailed {
			if got.Progress != 0 || got.Error == "" {
				t.Fatalf("failed session should have progress 0 and an error: %+v", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never reached failed, status %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOutlineMissingText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/outline", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateSheetRequiresReadySession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, store := setupTestServer(t)

	sess := store.Create("/a.mp3", "lecture")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/sheet", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestShareRequiresSheet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, store := setupTestServer(t)

	sess := store.Create("/a.mp3", "lecture")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/share", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServeSheetSignatureChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, store := setupTestServer(t)

	sess := store.Create("/a.mp3", "lecture")

	invalidReq := httptest.NewRequest(http.MethodGet, "/sheets/"+sess.ID+"?exp=9999999999&sig=invalid", nil)
	invalidRec := httptest.NewRecorder()

	engine.ServeHTTP(invalidRec, invalidReq)

	if invalidRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid signature, got %d", invalidRec.Code)
	}

	expiredReq := httptest.NewRequest(http.MethodGet, "/sheets/"+sess.ID+"?exp=1&sig=whatever", nil)
	expiredRec := httptest.NewRecorder()

	engine.ServeHTTP(expiredRec, expiredReq)

	if expiredRec.Code != http.StatusGone {
		t.Fatalf("expected 410 for expired link, got %d", expiredRec.Code)
	}

	missingReq := httptest.NewRequest(http.MethodGet, "/sheets/"+sess.ID, nil)
	missingRec := httptest.NewRecorder()

	engine.ServeHTTP(missingRec, missingReq)

	if missingRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", missingRec.Code)
	}
}
