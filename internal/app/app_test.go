package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiz_bank_backend/internal/ai"
	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bankText = "1+1=?|单选|1;2;3|B|基础加法\n" +
	"地球是圆的|判断||对|\n" +
	"选出偶数|多选|2;3;4|CA|\n"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: gin.TestMode},
		Database:  config.DatabaseConfig{Driver: database.DriverSQLite, Path: filepath.Join(dir, "quiz.db"), LogLevel: "silent"},
		Storage:   config.StorageConfig{Type: "local", LocalPath: filepath.Join(dir, "uploads")},
		JWT:       config.JWTConfig{Secret: strings.Repeat("s", 32), ExpireTime: time.Hour},
		AI:        config.AIConfig{Cache: config.AICacheConfig{Type: "memory", TTLMinutes: 10, MaxEntries: 100}},
		Import:    config.ImportConfig{MaxFileSizeMB: 1, MaxRequestMB: 5, AllowedExts: []string{".xlsx", ".docx", ".txt"}},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}
	cfg.ForceMigrate = true
	if mutate != nil {
		mutate(cfg)
	}

	a, err := NewCore(cfg)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	t.Cleanup(a.Close)
	a.setupRouter()
	return a
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return serve(t, h, req)
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", req.Method, req.URL.Path, w.Body.String(), err)
		}
	}
	return w, env
}

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, nil)

	w, env := doJSON(t, a.Router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Status        string `json:"status"`
		SchemaVersion int    `json:"schemaVersion"`
	}
	decode(t, env.Data, &data)
	if data.Status != "ok" || data.SchemaVersion != database.LatestSchemaVersion() {
		t.Fatalf("health = %+v", data)
	}
}

func TestImportAndPracticeFlow(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.Router

	w, env := serve(t, h, uploadRequest(t, map[string]string{"math.txt": bankText}))
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d: %s", w.Code, w.Body.String())
	}
	var imported service.ImportResult
	decode(t, env.Data, &imported)
	if imported.Total != 3 {
		t.Fatalf("imported = %+v", imported)
	}

	w, env = serve(t, h, uploadRequest(t, map[string]string{"math.txt": bankText}))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate import status = %d", w.Code)
	}
	decode(t, env.Data, &imported)
	if len(imported.Duplicates) != 1 || imported.Duplicates[0] != "math.txt" {
		t.Fatalf("duplicates = %v", imported.Duplicates)
	}

	w, env = doJSON(t, h, http.MethodPost, "/api/sessions", gin.H{"source": "math.txt"})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var view service.SessionView
	decode(t, env.Data, &view)
	if view.Progress.SessionKey != "practice:math.txt" || len(view.Progress.QuestionOrder) != 3 {
		t.Fatalf("session = %+v", view.Progress)
	}
	key := view.Progress.SessionKey
	first := view.Progress.QuestionOrder[0]

	w, env = doJSON(t, h, http.MethodPost, "/api/sessions/"+key+"/answers", gin.H{"questionId": first, "selected": []int{1}})
	if w.Code != http.StatusOK {
		t.Fatalf("answer status = %d: %s", w.Code, w.Body.String())
	}
	var answer service.AnswerResult
	decode(t, env.Data, &answer)
	if answer.Correct == nil || !*answer.Correct || answer.Answer != "B" {
		t.Fatalf("answer = %+v", answer)
	}

	w, _ = doJSON(t, h, http.MethodPost, "/api/sessions/"+key+"/answers", gin.H{"questionId": first, "selected": []int{7}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out of range answer status = %d", w.Code)
	}

	w, env = doJSON(t, h, http.MethodPost, "/api/sessions/"+key+"/submit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}
	var submitted service.SubmitResult
	decode(t, env.Data, &submitted)
	if submitted.Score != 1 || submitted.Total != 3 || submitted.Unanswered != 2 {
		t.Fatalf("submit = %+v", submitted.ScoreResult)
	}

	w, _ = doJSON(t, h, http.MethodPost, "/api/sessions/"+key+"/answers", gin.H{"questionId": first, "selected": []int{0}})
	if w.Code != http.StatusConflict {
		t.Fatalf("answer after submit status = %d", w.Code)
	}

	w, env = doJSON(t, h, http.MethodGet, "/api/history/practice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var page struct {
		Total int64 `json:"total"`
	}
	decode(t, env.Data, &page)
	if page.Total != 1 {
		t.Fatalf("history total = %d", page.Total)
	}

	w, _ = doJSON(t, h, http.MethodGet, "/api/history/weekly", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown history kind status = %d", w.Code)
	}
}

func TestImportMixedBatch(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.Router

	w, env := serve(t, h, uploadRequest(t, map[string]string{
		"math.txt":  bankText,
		"notes.pdf": "%PDF-1.4\n",
	}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var result service.ImportResult
	decode(t, env.Data, &result)
	if result.Total != 3 || len(result.Files) != 1 || result.Files[0].FileName != "math.txt" {
		t.Fatalf("imported = %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].FileName != "notes.pdf" {
		t.Fatalf("failures = %+v", result.Failures)
	}

	w, env = doJSON(t, h, http.MethodGet, "/api/sources", nil)
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), "math.txt") {
		t.Fatalf("sources = %d %s", w.Code, env.Data)
	}
}

func TestQuestionNotFoundAndFolders(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.Router

	w, _ := doJSON(t, h, http.MethodGet, "/api/questions/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing question status = %d", w.Code)
	}
	w, _ = doJSON(t, h, http.MethodGet, "/api/questions/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}

	w, env := doJSON(t, h, http.MethodPost, "/api/folders", gin.H{"name": "政治"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create folder status = %d", w.Code)
	}
	var folder model.Folder
	decode(t, env.Data, &folder)

	w, _ = doJSON(t, h, http.MethodPost, "/api/folders", gin.H{"name": "政治"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate folder status = %d", w.Code)
	}
	w, _ = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/folders/%d/files", folder.ID), gin.H{"fileName": "nothing.txt"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("assign unknown file status = %d", w.Code)
	}
}

func TestAuthToken(t *testing.T) {
	hash, err := service.HashDeviceKey("device-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Auth = config.AuthConfig{Enabled: true, DeviceKeyHash: hash}
	})
	h := a.Router

	if w, _ := doJSON(t, h, http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health should stay public, status = %d", w.Code)
	}
	if w, _ := doJSON(t, h, http.MethodGet, "/api/questions", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}
	if w, _ := doJSON(t, h, http.MethodPost, "/api/auth/token", gin.H{"deviceKey": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d", w.Code)
	}

	w, env := doJSON(t, h, http.MethodPost, "/api/auth/token", gin.H{"deviceKey": "device-secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("token status = %d", w.Code)
	}
	var tok struct {
		Token string `json:"token"`
	}
	decode(t, env.Data, &tok)

	if w, _ := doJSON(t, h, http.MethodGet, "/api/questions", nil, "Authorization", "Bearer "+tok.Token); w.Code != http.StatusOK {
		t.Fatalf("with token status = %d", w.Code)
	}
	if w, _ := doJSON(t, h, http.MethodGet, "/api/questions?token="+tok.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("query token status = %d", w.Code)
	}
}

type stubCompleter struct{}

func (stubCompleter) Name() string { return "stub" }

func (stubCompleter) Complete(_ context.Context, messages []ai.Message) (string, error) {
	return "答案是 B，因为 1+1=2", nil
}

func TestExplanationEndpoint(t *testing.T) {
	a := newTestApp(t, nil)
	a.Services.Explanation.Registry = ai.NewStaticRegistry(stubCompleter{})
	h := a.Router

	if w, _ := serve(t, h, uploadRequest(t, map[string]string{"math.txt": bankText})); w.Code != http.StatusCreated {
		t.Fatalf("import status = %d", w.Code)
	}
	questions, _, err := a.Services.Question.List(context.Background(), model.QuestionFilter{FileName: "math.txt"}, 1, 10)
	if err != nil || len(questions) == 0 {
		t.Fatalf("list questions: %v", err)
	}
	path := fmt.Sprintf("/api/questions/%d/explanation?provider=stub", questions[0].ID)

	w, env := doJSON(t, h, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("explain status = %d: %s", w.Code, w.Body.String())
	}
	var res service.ExplanationResult
	decode(t, env.Data, &res)
	if res.Source != service.SourceNetwork || !strings.Contains(res.Content, "1+1=2") {
		t.Fatalf("explanation = %+v", res)
	}

	_, env = doJSON(t, h, http.MethodGet, path, nil)
	decode(t, env.Data, &res)
	if res.Source != service.SourceMemory {
		t.Fatalf("second explanation source = %s", res.Source)
	}

	w, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/questions/%d/explanation?provider=nope", questions[0].ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider status = %d", w.Code)
	}
}

func TestPreferencesEndpoint(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.Router

	w, env := doJSON(t, h, http.MethodPatch, "/api/preferences", gin.H{"exam_question_count": 10, "dark_theme": true})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", w.Code, w.Body.String())
	}
	var prefs service.Preferences
	decode(t, env.Data, &prefs)
	if prefs.ExamQuestionCount != 10 || !prefs.DarkTheme {
		t.Fatalf("prefs = %+v", prefs)
	}

	for _, body := range []gin.H{{"volume": 1}, {"exam_font_size": "large"}} {
		if w, _ := doJSON(t, h, http.MethodPatch, "/api/preferences", body); w.Code != http.StatusBadRequest {
			t.Fatalf("patch %v status = %d", body, w.Code)
		}
	}
}

type wsFrame struct {
	Type string                   `json:"type"`
	Data service.ProgressSnapshot `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f wsFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestProgressWatch(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	snapshot := gin.H{"mode": "practice", "fileName": "math.txt", "questionOrder": []uint{1, 2, 3}, "currentIndex": 0, "states": gin.H{}}
	if w, _ := doJSON(t, a.Router, http.MethodPut, "/api/progress/p1", snapshot); w.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", w.Code, w.Body.String())
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/progress/p1/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	f := readFrame(t, conn)
	if f.Type != "PROGRESS" || f.Data.Progress == nil || f.Data.Progress.SessionKey != "p1" {
		t.Fatalf("initial frame = %+v", f)
	}

	// 相同内容不会推送；修改位置后推送新值
	doJSON(t, a.Router, http.MethodPut, "/api/progress/p1", snapshot)
	if w, _ := doJSON(t, a.Router, http.MethodPut, "/api/progress/p1/position", gin.H{"index": 2}); w.Code != http.StatusOK {
		t.Fatalf("move status = %d", w.Code)
	}
	f = readFrame(t, conn)
	if f.Data.Progress == nil || f.Data.Progress.CurrentIndex != 2 {
		t.Fatalf("moved frame = %+v", f.Data.Progress)
	}

	// 客户端上行 MOVE
	if err := conn.WriteJSON(gin.H{"type": "MOVE", "data": gin.H{"index": 1}}); err != nil {
		t.Fatalf("write move: %v", err)
	}
	f = readFrame(t, conn)
	if f.Data.Progress == nil || f.Data.Progress.CurrentIndex != 1 {
		t.Fatalf("client move frame = %+v", f.Data.Progress)
	}

	if w, _ := doJSON(t, a.Router, http.MethodDelete, "/api/progress/p1", nil); w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	f = readFrame(t, conn)
	if f.Data.Progress != nil {
		t.Fatalf("cleared frame should carry no progress, got %+v", f.Data.Progress)
	}
}
