package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recera/rocal/cmd/rocal/internal/build"
	"github.com/recera/rocal/cmd/rocal/internal/watch"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(build.New(build.Options{TemplatesDir: dir, Quiet: true}))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, dir
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestServeIndex(t *testing.T) {
	_, ts, dir := newTestServer(t)

	code, body := get(t, ts.URL+"/")
	if code != http.StatusOK || !strings.Contains(body, "No templates found") {
		t.Errorf("empty index = %d %q", code, body)
	}

	writeFile(t, filepath.Join(dir, "index.rui"), `<p></p>`)
	writeFile(t, filepath.Join(dir, "blog", "post.rui"), `<p></p>`)

	_, body = get(t, ts.URL+"/")
	for _, want := range []string{
		`<a href="/t/blog/post.rui">blog/post.rui</a>`,
		`<a href="/t/index.rui">index.rui</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q:\n%s", want, body)
		}
	}

	if code, _ := get(t, ts.URL+"/missing"); code != http.StatusNotFound {
		t.Errorf("GET /missing = %d, want 404", code)
	}
}

func TestServeTemplate(t *testing.T) {
	_, ts, dir := newTestServer(t)
	writeFile(t, filepath.Join(dir, "page.rui"), `<html><body><h1>{{ title }}</h1></body></html>`)
	writeFile(t, filepath.Join(dir, "page.yaml"), "title: <Hello>\n")

	code, body := get(t, ts.URL+"/t/page.rui")
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %q", code, body)
	}
	if !strings.HasPrefix(body, "<html><body><h1>&lt;Hello&gt;</h1><script>") {
		t.Errorf("body = %q", body)
	}
	if !strings.HasSuffix(body, "</script></body></html>") {
		t.Errorf("script not injected before </body>: %q", body)
	}
}

func TestServeTemplateErrors(t *testing.T) {
	_, ts, dir := newTestServer(t)
	writeFile(t, filepath.Join(dir, "broken.rui"), "<div>\n<span></div>")

	tests := []struct {
		name string
		path string
		code int
		body string
	}{
		{name: "syntax error", path: "/t/broken.rui", code: http.StatusInternalServerError, body: "broken.rui:2:7:"},
		{name: "missing", path: "/t/nope.rui", code: http.StatusNotFound},
		{name: "wrong extension", path: "/t/broken.txt", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, ts.URL+tt.path)
			if code != tt.code {
				t.Errorf("GET %s = %d, want %d", tt.path, code, tt.code)
			}
			if tt.body != "" && !strings.Contains(body, tt.body) {
				t.Errorf("body missing %q:\n%s", tt.body, body)
			}
		})
	}
}

func dial(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The HELLO round trip guarantees the server registered the client
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatal(err)
	}
	var ack map[string]interface{}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil || ack["type"] != "ACK" {
		t.Fatalf("HELLO answered with %v, %v", ack, err)
	}
	if s.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", s.Clients())
	}
	return conn
}

func TestHandleChangesNotifiesClients(t *testing.T) {
	s, ts, dir := newTestServer(t)
	conn := dial(t, s, ts)

	good := filepath.Join(dir, "good.rui")
	bad := filepath.Join(dir, "bad.rui")
	writeFile(t, good, `<p></p>`)
	writeFile(t, bad, `<p>`)

	s.HandleChanges([]watch.Change{{Path: bad}, {Path: good}})

	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg["type"] != "ERROR" || msg["path"] != "bad.rui" || !strings.Contains(msg["message"].(string), "bad.rui:1:1:") {
		t.Errorf("first message = %v, want ERROR for bad.rui", msg)
	}

	msg = nil
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg["type"] != "RELOAD" || msg["path"] != "good.rui" {
		t.Errorf("second message = %v, want RELOAD for good.rui", msg)
	}
}

func TestInjectScript(t *testing.T) {
	got := string(InjectScript([]byte("<p></p>")))
	if !strings.HasPrefix(got, "<p></p><script>") || !strings.HasSuffix(got, "</script>") {
		t.Errorf("InjectScript() = %q", got)
	}

	got = string(InjectScript([]byte("<BODY></BODY>")))
	if !strings.HasPrefix(got, "<BODY><script>") || !strings.HasSuffix(got, "</script></BODY>") {
		t.Errorf("InjectScript() = %q", got)
	}
}
