// Package preview serves rendered templates over HTTP and tells connected
// browsers to reload when their sources change.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recera/rocal/cmd/rocal/internal/build"
	"github.com/recera/rocal/cmd/rocal/internal/watch"
	"github.com/recera/rocal/pkg/ui"
)

// The preview's own pages are templates too
var (
	indexPage = ui.MustCompile("preview/index", `<!DOCTYPE html>
<html>
  <head><meta charset="utf-8"><title>{ "rocal preview" }</title></head>
  <body>
    <h1>{ "Templates" }</h1>
    if len(templates) == 0 {
      <p>{ "No templates found in " }<code>{{ dir }}</code></p>
    } else {
      <ul>
        for t in templates {
          <li><a href={{ "/t/" + t }}>{{ t }}</a></li>
        }
      </ul>
    }
    <script>{{{ script }}}</script>
  </body>
</html>`)

	errorPage = ui.MustCompile("preview/error", `<!DOCTYPE html>
<html>
  <head><meta charset="utf-8"><title>{{ name }}</title></head>
  <body>
    <h1>{ "Build failed" }</h1>
    <pre>{{ message }}</pre>
    <script>{{{ script }}}</script>
  </body>
</html>`)
)

// reloadScript connects back to /ws and reloads the page on RELOAD
const reloadScript = `(function () {
  var ws = new WebSocket((location.protocol === 'https:' ? 'wss:' : 'ws:') + '//' + location.host + '/ws');
  ws.onopen = function () { ws.send(JSON.stringify({type: 'HELLO'})); };
  ws.onmessage = function (e) {
    var msg = JSON.parse(e.data);
    if (msg.type === 'RELOAD') { location.reload(); }
    if (msg.type === 'ERROR') { console.error(msg.message); location.reload(); }
  };
})();`

// Server renders templates on request
type Server struct {
	builder  *build.Builder
	upgrader websocket.Upgrader

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.RWMutex
}

// New creates a preview server rendering through b
func New(b *build.Builder) *Server {
	return &Server{
		builder: b,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/t/", s.serveTemplate)
	mux.HandleFunc("/", s.serveIndex)
	return mux
}

// ListenAndServe serves on addr until ctx is done. When w is non-nil its
// changes are forwarded to HandleChanges.
func (s *Server) ListenAndServe(ctx context.Context, addr string, w *watch.Watcher) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	if w != nil {
		go func() {
			if err := w.Run(ctx, s.HandleChanges); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("⚠️  Watcher stopped: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down preview server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("✨ Preview server running at http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// HandleChanges recompiles changed templates and notifies clients. A
// template that no longer compiles produces an ERROR message; anything
// else a RELOAD.
func (s *Server) HandleChanges(changes []watch.Change) {
	ext := s.builder.Options().Extension
	for _, c := range changes {
		s.builder.Forget(c.Path)

		if c.Removed || !strings.HasSuffix(c.Path, ext) {
			log.Printf("🔄 %s changed", filepath.Base(c.Path))
			s.notifyClients("reload", map[string]interface{}{"path": filepath.ToSlash(c.Path)})
			continue
		}

		name := s.builder.Name(c.Path)
		if _, _, err := s.builder.Compile(c.Path); err != nil {
			log.Printf("❌ %v", err)
			s.notifyClients("error", map[string]interface{}{"path": name, "message": err.Error()})
			continue
		}

		log.Printf("🔄 %s recompiled", name)
		s.notifyClients("reload", map[string]interface{}{"path": name})
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	files, err := s.builder.Find()
	if err != nil {
		s.serveError(w, "index", err)
		return
	}
	names := make([]any, len(files))
	for i, f := range files {
		names[i] = s.builder.Name(f)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexPage.Execute(w, ui.Context{
		"templates": names,
		"dir":       s.builder.Options().TemplatesDir,
		"script":    reloadScript,
	})
}

func (s *Server) serveTemplate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/t/")
	ext := s.builder.Options().Extension
	if name == "" || !strings.HasSuffix(name, ext) {
		http.NotFound(w, r)
		return
	}

	// Keep requests inside the templates directory
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		http.Error(w, "invalid template path", http.StatusBadRequest)
		return
	}
	path := filepath.Join(s.builder.Options().TemplatesDir, clean)

	page, _, err := s.builder.Render(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.serveError(w, name, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(InjectScript(page))
}

func (s *Server) serveError(w http.ResponseWriter, name string, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	errorPage.Execute(w, ui.Context{
		"name":    name,
		"message": err.Error(),
		"script":  reloadScript,
	})
}

// InjectScript adds the live reload client to a rendered page, before
// </body> when there is one
func InjectScript(page []byte) []byte {
	tag := "<script>" + reloadScript + "</script>"
	s := string(page)
	if i := strings.LastIndex(strings.ToLower(s), "</body>"); i >= 0 {
		return []byte(s[:i] + tag + s[i:])
	}
	return []byte(s + tag)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch msg["type"] {
		case "HELLO":
			s.wsMutex.Lock()
			err := conn.WriteJSON(map[string]interface{}{"type": "ACK"})
			s.wsMutex.Unlock()
			if err != nil {
				return
			}
		default:
			log.Printf("Unknown WebSocket message type: %v", msg["type"])
		}
	}
}

// Clients returns the number of connected browsers
func (s *Server) Clients() int {
	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()
	return len(s.wsClients)
}

// notifyClients holds the write lock while sending since a websocket
// connection allows only one concurrent writer
func (s *Server) notifyClients(msgType string, data map[string]interface{}) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	message := map[string]interface{}{
		"type": strings.ToUpper(msgType),
	}
	for k, v := range data {
		message[k] = v
	}

	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			log.Printf("Failed to send message to client: %v", err)
		}
	}
}

// Address formats host and port for ListenAndServe
func Address(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
