package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/auth"
	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/storage/local"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/transcription/transcriptiontest"
)

type testAPI struct {
	engine *gin.Engine
	tokens *jwt.Service[*auth.Claims]
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := local.NewStorage(local.Config{
		BasePath:    t.TempDir(),
		PublicURL:   "http://scribe.test",
		GrantSecret: "grant-secret-0123456789",
	})
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := storage.NewGateway(store, storage.Config{Provider: storage.ProviderLocal}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	gw := transcription.NewGateway(transcriptiontest.NewProvider(nil), blobs, transcription.Config{}, logger.Nop())
	svc := recording.NewService(session.NewMemoryRegistry(), blobs, gw, recording.Config{MaxWholeFileBytes: 1024}, logger.Nop())

	tokens, err := jwt.NewService(jwt.Config{Secret: "access-secret-0123456789"}, func() *auth.Claims { return &auth.Claims{} })
	if err != nil {
		t.Fatal(err)
	}

	e := gin.New()
	e.Use(middleware.BodySizeLimit("4KB"))
	NewBlobHandler(store, logger.Nop()).Register(e)
	authed := e.Group("/", middleware.Auth(middleware.AuthConfig{Validator: tokens.Validator()}))
	NewHandler(svc, 1024, logger.Nop()).Register(authed)
	return &testAPI{engine: e, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := a.tokens.Generate(&auth.Claims{UserID: user})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (a *testAPI) do(t *testing.T, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, user))
	}
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rr.Code, status, rr.Body.String())
	}
	body := decode[errorBody](t, rr)
	if body.Error.Code != code {
		t.Fatalf("code = %s, want %s", body.Error.Code, code)
	}
	return body
}

// putBlob uploads data to a grant URL the way a browser would.
func (a *testAPI) putBlob(t *testing.T, grantURL, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	u, err := url.Parse(grantURL)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPut, u.RequestURI(), bytes.NewReader(data))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)
	return rr
}

func TestRoutes_RequireBearerToken(t *testing.T) {
	a := newTestAPI(t)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/upload-session"},
		{http.MethodGet, "/fetch-session-by-patient/p1"},
		{http.MethodGet, "/all-session"},
		{http.MethodGet, "/sessions/s1"},
		{http.MethodPost, "/get-presigned-url"},
		{http.MethodPost, "/notify-chunk-uploaded"},
		{http.MethodPost, "/transcribe"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			expectError(t, a.do(t, r.method, r.path, "", nil), http.StatusUnauthorized, "UNAUTHORIZED")
		})
	}
}

func TestChunkedSessionFlow(t *testing.T) {
	a := newTestAPI(t)

	rr := a.do(t, http.MethodPost, "/upload-session", "alice", map[string]any{"patientId": "patient-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rr.Code, rr.Body.String())
	}
	id := decode[map[string]string](t, rr)["id"]
	if id == "" {
		t.Fatal("no session id")
	}

	var locators []string
	for n := 1; n <= 2; n++ {
		rr = a.do(t, http.MethodPost, "/get-presigned-url", "alice", map[string]any{
			"sessionId": id, "chunkNumber": n, "mimeType": "audio/webm",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("target %d: %d %s", n, rr.Code, rr.Body.String())
		}
		target := decode[recording.UploadTarget](t, rr)
		if !strings.HasPrefix(target.URL, "http://scribe.test/blobs/"+target.Locator+"?grant=") {
			t.Fatalf("url = %s", target.URL)
		}
		if rr := a.putBlob(t, target.URL, "audio/webm", []byte("audio")); rr.Code != http.StatusNoContent {
			t.Fatalf("upload %d: %d %s", n, rr.Code, rr.Body.String())
		}

		rr = a.do(t, http.MethodPost, "/notify-chunk-uploaded", "alice", map[string]any{
			"sessionId": id, "locator": target.Locator, "isLast": n == 2,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("notify %d: %d %s", n, rr.Code, rr.Body.String())
		}
		ack := decode[struct{ Ack recording.Ack }](t, rr).Ack
		if ack.Chunks != n || ack.Completed != (n == 2) {
			t.Fatalf("ack %d = %+v", n, ack)
		}
		locators = append(locators, target.Locator)
	}

	rr = a.do(t, http.MethodGet, "/sessions/"+id, "alice", nil)
	sess := decode[struct{ Session session.Session }](t, rr).Session
	want := "text of " + locators[0] + "\n text of " + locators[1] + " "
	if sess.Status != session.StatusCompleted || sess.Transcript != want || len(sess.Chunks) != 2 {
		t.Fatalf("session = %+v", sess)
	}

	for _, path := range []string{"/all-session", "/fetch-session-by-patient/patient-1"} {
		rr = a.do(t, http.MethodGet, path, "alice", nil)
		list := decode[struct{ Sessions []session.Session }](t, rr).Sessions
		if len(list) != 1 || list[0].ID != id {
			t.Fatalf("%s = %+v", path, list)
		}
		rr = a.do(t, http.MethodGet, path, "bob", nil)
		if !strings.Contains(rr.Body.String(), `"sessions":[]`) {
			t.Fatalf("%s for bob = %s", path, rr.Body.String())
		}
	}

	expectError(t, a.do(t, http.MethodGet, "/sessions/"+id, "bob", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, a.do(t, http.MethodPost, "/notify-chunk-uploaded", "alice", map[string]any{
		"sessionId": id, "locator": id + "/3.webm", "isLast": false,
	}), http.StatusConflict, "CONFLICT")
}

func TestRequestValidation(t *testing.T) {
	a := newTestAPI(t)
	id := decode[map[string]string](t, a.do(t, http.MethodPost, "/upload-session", "alice", map[string]any{"patientId": "p"}))["id"]

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
		field  string
	}{
		{"start without patient", "/upload-session", map[string]any{}, 400, "INVALID_INPUT", "patientId"},
		{"start with non-object", "/upload-session", []int{1}, 400, "INVALID_INPUT", "body"},
		{"target without session", "/get-presigned-url", map[string]any{"chunkNumber": 1, "mimeType": "audio/webm"}, 400, "INVALID_INPUT", "sessionId"},
		{"target without chunk", "/get-presigned-url", map[string]any{"sessionId": id, "mimeType": "audio/webm"}, 400, "INVALID_INPUT", "chunkNumber"},
		{"target without mime", "/get-presigned-url", map[string]any{"sessionId": id, "chunkNumber": 0}, 400, "INVALID_INPUT", "mimeType"},
		{"target unknown session", "/get-presigned-url", map[string]any{"sessionId": "missing", "chunkNumber": 0, "mimeType": "audio/webm"}, 404, "NOT_FOUND", ""},
		{"notify without isLast", "/notify-chunk-uploaded", map[string]any{"sessionId": id, "locator": id + "/0.webm"}, 400, "INVALID_INPUT", "isLast"},
		{"notify without locator", "/notify-chunk-uploaded", map[string]any{"sessionId": id, "isLast": false}, 400, "INVALID_INPUT", "locator"},
		{"notify unknown session", "/notify-chunk-uploaded", map[string]any{"sessionId": "missing", "locator": "missing/0.webm", "isLast": false}, 404, "NOT_FOUND", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := expectError(t, a.do(t, http.MethodPost, tt.path, "alice", tt.body), tt.status, tt.code)
			if tt.field != "" && body.Error.Details["field"] != tt.field {
				t.Errorf("field = %v, want %s", body.Error.Details["field"], tt.field)
			}
		})
	}

	// Cross-owner upload target is indistinguishable from a missing session.
	expectError(t, a.do(t, http.MethodPost, "/get-presigned-url", "bob", map[string]any{
		"sessionId": id, "chunkNumber": 0, "mimeType": "audio/webm",
	}), http.StatusNotFound, "NOT_FOUND")
}

func TestTranscribe(t *testing.T) {
	a := newTestAPI(t)
	send := func(body io.Reader, contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+a.token(t, "alice"))
		rr := httptest.NewRecorder()
		a.engine.ServeHTTP(rr, req)
		return rr
	}

	rr := send(bytes.NewReader([]byte("raw audio")), "audio/wav")
	if rr.Code != http.StatusOK {
		t.Fatalf("raw: %d %s", rr.Code, rr.Body.String())
	}
	text := decode[map[string]string](t, rr)["transcript"]
	if !strings.HasPrefix(text, "text of alice/sessions/") || !strings.HasSuffix(text, "-full-session.wav") {
		t.Fatalf("transcript = %q", text)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio", "visit.wav")
	_, _ = fw.Write([]byte("form audio"))
	_ = mw.Close()
	rr = send(&buf, mw.FormDataContentType())
	if rr.Code != http.StatusOK {
		t.Fatalf("multipart: %d %s", rr.Code, rr.Body.String())
	}

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "no file")
	_ = mw.Close()
	expectError(t, send(&buf, mw.FormDataContentType()), http.StatusBadRequest, "INVALID_INPUT")

	expectError(t, send(http.NoBody, "audio/wav"), http.StatusBadRequest, "INVALID_INPUT")
	expectError(t, send(bytes.NewReader(bytes.Repeat([]byte("x"), 2048)), "audio/wav"), http.StatusBadRequest, "INVALID_INPUT")
	expectError(t, send(bytes.NewReader(bytes.Repeat([]byte("x"), 8192)), "audio/wav"), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
}

func TestBlobUpload_Rejects(t *testing.T) {
	a := newTestAPI(t)
	id := decode[map[string]string](t, a.do(t, http.MethodPost, "/upload-session", "alice", map[string]any{"patientId": "p"}))["id"]
	target := decode[recording.UploadTarget](t, a.do(t, http.MethodPost, "/get-presigned-url", "alice", map[string]any{
		"sessionId": id, "chunkNumber": 0, "mimeType": "audio/webm",
	}))
	u, _ := url.Parse(target.URL)
	grant := u.Query().Get("grant")

	tests := []struct {
		name        string
		path        string
		contentType string
		status      int
		code        string
	}{
		{"missing grant", "/blobs/" + target.Locator, "audio/webm", 401, "UNAUTHORIZED"},
		{"forged grant", "/blobs/" + target.Locator + "?grant=forged", "audio/webm", 401, "UNAUTHORIZED"},
		{"other path", "/blobs/" + id + "/1.webm?grant=" + url.QueryEscape(grant), "audio/webm", 401, "UNAUTHORIZED"},
		{"wrong content type", "/blobs/" + target.Locator + "?grant=" + url.QueryEscape(grant), "audio/wav", 400, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader("audio"))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			a.engine.ServeHTTP(rr, req)
			expectError(t, rr, tt.status, tt.code)
		})
	}
}
