package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/generator"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

const (
	// ReloadPath is the WebSocket endpoint the preview pages connect to.
	ReloadPath = "/__wgen/reload"
	// ScriptPath serves the script injected into HTML pages.
	ScriptPath = "/__wgen/reload.js"
)

const reloadScript = `(function () {
  var banner;
  function show(text) {
    if (!banner) {
      banner = document.createElement("pre");
      banner.style.cssText = "position:fixed;left:0;right:0;bottom:0;margin:0;padding:8px;background:#300;color:#fcc;z-index:99999";
      document.body.appendChild(banner);
    }
    banner.textContent = text;
  }
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "` + ReloadPath + `");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "reload") location.reload();
    if (msg.type === "error") show(msg.error);
  };
})();
`

// PreviewServer serves the input folder the way the generated sketch would:
// the default file at "/", every other file under its own name, and request
// handlers answered with 501 since they only run on the board. HTML pages
// reload when a rebuild finishes.
type PreviewServer struct {
	inputDir string
	reload   *ReloadServer
	logger   *zap.Logger
	router   chi.Router

	mu          sync.RWMutex
	files       map[string]*resource.FileRecord
	defaultName string

	httpServer *http.Server
}

// NewPreviewServer creates a preview of inputDir. Nothing is served until
// Update is called with a build result.
func NewPreviewServer(inputDir string, reload *ReloadServer, logger *zap.Logger) *PreviewServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	ps := &PreviewServer{
		inputDir: inputDir,
		reload:   reload,
		logger:   logger,
		files:    make(map[string]*resource.FileRecord),
	}

	r := chi.NewRouter()
	r.Get(ReloadPath, reload.HandleWebSocket)
	r.Get(ScriptPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Write([]byte(reloadScript))
	})
	r.Get("/*", ps.serveFile)
	ps.router = r

	return ps
}

// Handler returns the HTTP handler of the preview.
func (ps *PreviewServer) Handler() http.Handler {
	return ps.router
}

// Update replaces the served file set with the one in res.
func (ps *PreviewServer) Update(res *generator.Result) {
	files := make(map[string]*resource.FileRecord, res.Table.Len())
	defaultName := ""
	for _, rec := range res.Table.Records() {
		files[rec.Name] = rec
		if rec.Default {
			defaultName = rec.Name
		}
	}

	ps.mu.Lock()
	ps.files = files
	ps.defaultName = defaultName
	ps.mu.Unlock()
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr uses port 0.
func (ps *PreviewServer) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start preview server: %w", err)
	}

	ps.httpServer = &http.Server{
		Handler:           ps.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := ps.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ps.logger.Error("preview server stopped", zap.Error(err))
		}
	}()

	ps.logger.Info("preview server started", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops the HTTP server and disconnects all browsers.
func (ps *PreviewServer) Shutdown(ctx context.Context) error {
	ps.reload.Close()
	if ps.httpServer == nil {
		return nil
	}
	return ps.httpServer.Shutdown(ctx)
}

func (ps *PreviewServer) lookup(name string) (*resource.FileRecord, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if name == "" {
		name = ps.defaultName
	}
	rec, ok := ps.files[name]
	return rec, ok
}

func (ps *PreviewServer) serveFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

	rec, ok := ps.lookup(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if rec.Kind == resource.Dynamic {
		http.Error(w, fmt.Sprintf("%s is answered by the sketch on the board", rec.Name), http.StatusNotImplemented)
		return
	}

	data, err := os.ReadFile(filepath.Join(ps.inputDir, filepath.FromSlash(rec.Name)))
	if err != nil {
		ps.logger.Warn("failed to read preview file", zap.String("file", rec.Name), zap.Error(err))
		http.NotFound(w, r)
		return
	}

	if rec.Mime == "text/html" {
		data = injectScript(data)
	}

	w.Header().Set("Content-Type", rec.Mime)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// injectScript adds the reload script before the closing body tag, or at the
// end of pages without one.
func injectScript(page []byte) []byte {
	tag := []byte(`<script src="` + ScriptPath + `"></script>`)

	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page, tag...)
	}

	out := make([]byte, 0, len(page)+len(tag))
	out = append(out, page[:i]...)
	out = append(out, tag...)
	return append(out, page[i:]...)
}
