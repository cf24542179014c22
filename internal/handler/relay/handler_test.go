package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/gemini-relay/backend/internal/config"
	relayModel "github.com/zhouzirui/gemini-relay/backend/internal/model/relay"
	relayService "github.com/zhouzirui/gemini-relay/backend/internal/service/relay"
)

type fakeUpstream struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func newFakeUpstream(t *testing.T, status int, body string) *fakeUpstream {
	t.Helper()
	up := &fakeUpstream{}
	up.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.calls.Add(1)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(up.srv.Close)
	return up
}

func setupRouter(up *fakeUpstream, apiKey string) *chi.Mux {
	backend := relayService.NewHTTPBackend(config.UpstreamConfig{APIKey: apiKey, URL: up.srv.URL}, up.srv.Client())
	handler := New(relayService.NewService(backend))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postGenerate(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/gemini", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestGenerateMissingPrompt(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"response":"unused"}`)
	r := setupRouter(up, "secret")

	for _, body := range []string{`{}`, `{"prompt":""}`, `{"prompt":null}`, `not json`} {
		resp := postGenerate(r, body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, resp.Code)
		}
		if got := decodeBody(t, resp)["error"]; got != "prompt is required" {
			t.Fatalf("body %q: unexpected error %q", body, got)
		}
	}

	if up.calls.Load() != 0 {
		t.Fatalf("expected no upstream call, got %d", up.calls.Load())
	}
}

func TestGenerateMissingCredential(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"response":"unused"}`)
	r := setupRouter(up, "")

	resp := postGenerate(r, `{"prompt":"hello"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if got := decodeBody(t, resp)["error"]; got != "GEN_API_KEY not configured on server" {
		t.Fatalf("unexpected error %q", got)
	}
	if up.calls.Load() != 0 {
		t.Fatalf("expected no upstream call, got %d", up.calls.Load())
	}
}

func TestGenerateNormalizesReply(t *testing.T) {
	cases := []struct {
		name     string
		upstream string
		want     string
	}{
		{name: "candidates", upstream: `{"candidates":[{"content":"hi"}]}`, want: `{"reply":"hi"}`},
		{name: "output", upstream: `{"output":[{"content":"yo"}]}`, want: `{"reply":"yo"}`},
		{name: "response", upstream: `{"response":"sup"}`, want: `{"reply":"sup"}`},
		{name: "fallback", upstream: `{"foo":"bar"}`, want: `{"reply":"{\"foo\":\"bar\"}"}`},
	}

	for _, tc := range cases {
		up := newFakeUpstream(t, http.StatusOK, tc.upstream)
		resp := postGenerate(setupRouter(up, "secret"), `{"prompt":"hello"}`)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.name, resp.Code)
		}
		if got := strings.TrimSpace(resp.Body.String()); got != tc.want {
			t.Fatalf("%s: body = %s, want %s", tc.name, got, tc.want)
		}
		if up.calls.Load() != 1 {
			t.Fatalf("%s: expected one upstream call, got %d", tc.name, up.calls.Load())
		}
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	up := newFakeUpstream(t, http.StatusServiceUnavailable, "server busy")
	resp := postGenerate(setupRouter(up, "secret"), `{"prompt":"hello"}`)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Upstream error" || body["detail"] != "server busy" {
		t.Fatalf("unexpected body %v", body)
	}
	if up.calls.Load() != 1 {
		t.Fatalf("expected no retry, got %d calls", up.calls.Load())
	}
}

func TestGenerateInvalidUpstreamJSON(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, "definitely not json")
	resp := postGenerate(setupRouter(up, "secret"), `{"prompt":"hello"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if got := decodeBody(t, resp)["error"]; got != relayService.ErrInvalidJSON.Error() {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestGenerateRejectsGet(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{}`)
	r := setupRouter(up, "secret")

	req := httptest.NewRequest(http.MethodGet, "/gemini", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func dialRelay(t *testing.T, r http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/gemini/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketAnswersEachPrompt(t *testing.T) {
	up := newFakeUpstream(t, http.StatusOK, `{"candidates":[{"content":"hi"}]}`)
	conn := dialRelay(t, setupRouter(up, "secret"))

	if err := conn.WriteJSON(map[string]any{"id": "a", "prompt": "hello"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"id": "b"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	got := make(map[string]relayModel.SocketResponse)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(got) < 2 {
		var resp relayModel.SocketResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read err: %v", err)
		}
		got[resp.ID] = resp
	}

	if a := got["a"]; a.Status != http.StatusOK || a.Reply != "hi" {
		t.Fatalf("unexpected reply frame %+v", a)
	}
	if b := got["b"]; b.Status != http.StatusBadRequest || b.Error != "prompt is required" {
		t.Fatalf("unexpected error frame %+v", b)
	}
	if up.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", up.calls.Load())
	}
}

func TestWebSocketUpstreamErrorFrame(t *testing.T) {
	up := newFakeUpstream(t, http.StatusServiceUnavailable, "server busy")
	conn := dialRelay(t, setupRouter(up, "secret"))

	if err := conn.WriteJSON(map[string]any{"prompt": "hello"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	var resp relayModel.SocketResponse
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read err: %v", err)
	}

	if resp.ID == "" {
		t.Fatal("expected generated frame id")
	}
	if resp.Status != http.StatusBadGateway || resp.Error != "Upstream error" || resp.Detail != "server busy" {
		t.Fatalf("unexpected frame %+v", resp)
	}
}
