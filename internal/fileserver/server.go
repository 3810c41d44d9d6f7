package fileserver

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/lantern/internal/logging"
)

// ShutdownTimeout bounds how long Stop waits for in-flight downloads.
const ShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Port    int    // 0 picks a free port in [DefaultPortStart, DefaultPortEnd)
	Host    string // advertised host; defaults to LocalIP()
	OneShot bool   // single-file mode only: stop serving after one download
}

// Info describes a running server.
type Info struct {
	ShareID     string `json:"share_id"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"is_directory"`
	URL         string `json:"url"`
	LocalURL    string `json:"local_url"`
}

// DownloadURL is where a single shared file can be fetched.
func (i Info) DownloadURL() string {
	if i.IsDirectory {
		return i.URL + "/"
	}
	return i.URL + "/" + url.PathEscape(filepath.Base(i.Path))
}

// Server shares one file or one directory over HTTP on the LAN.
type Server struct {
	root    string
	isDir   bool
	opts    Options
	shareID string
	logger  *zap.Logger

	mu         sync.Mutex
	downloads  int
	downloaded chan struct{}
	once       sync.Once

	httpServer *http.Server
	listener   net.Listener
	info       Info
}

// New validates path and prepares a server for it. Nothing is bound until Start.
func New(p string, opts Options) (*Server, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s", p)
	}

	if st.IsDir() {
		opts.OneShot = false
	}

	id := uuid.NewString()
	return &Server{
		root:       abs,
		isDir:      st.IsDir(),
		opts:       opts,
		shareID:    id,
		logger:     logging.GetLogger().With(zap.String("share_id", id)),
		downloaded: make(chan struct{}),
	}, nil
}

// Handler returns the request router for this share.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	if s.isDir {
		r.Get("/*", s.serveDirectory)
		r.Head("/*", s.serveDirectory)
	} else {
		r.Get("/*", s.serveSingleFile)
		r.Head("/*", s.serveSingleFile)
	}
	return r
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start(ctx context.Context) (Info, error) {
	port := s.opts.Port
	if port == 0 {
		free, err := FindFreePort(DefaultPortStart, DefaultPortEnd)
		if err != nil {
			return Info{}, err
		}
		port = free
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return Info{}, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	host := s.opts.Host
	if host == "" {
		host = LocalIP()
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.info = Info{
		ShareID:     s.shareID,
		Host:        host,
		Port:        port,
		Path:        s.root,
		IsDirectory: s.isDir,
		URL:         fmt.Sprintf("http://%s:%d", host, port),
		LocalURL:    fmt.Sprintf("http://localhost:%d", port),
	}

	s.logger.Info("File server listening",
		zap.String("path", s.root),
		zap.Bool("directory", s.isDir),
		zap.Bool("one_shot", s.opts.OneShot),
		zap.String("url", s.info.URL),
	)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("File server stopped", zap.Error(err))
		}
	}()

	return s.info, nil
}

// Stop shuts the server down, waiting up to ShutdownTimeout for open requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("Forced file server close", zap.Error(err))
		return s.httpServer.Close()
	}
	s.logger.Info("File server stopped", zap.Int("downloads", s.Downloads()))
	return nil
}

// WaitForDownload blocks until the shared file has been downloaded once
// (returning true) or ctx ends (returning false). In directory mode, and in
// single-file mode without OneShot, it only returns when ctx ends.
func (s *Server) WaitForDownload(ctx context.Context) bool {
	select {
	case <-s.downloaded:
		return true
	case <-ctx.Done():
		return false
	}
}

// Downloads returns the number of completed file downloads.
func (s *Server) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads
}

// Info returns the details recorded by Start.
func (s *Server) Info() Info {
	return s.info
}

func (s *Server) serveSingleFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(s.root)
	if r.URL.Path != "/" && r.URL.Path != "/"+name {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	// Only a GET consumes the one-shot download; HEAD just reports whether
	// it is still available.
	reserved := false
	if s.opts.OneShot {
		if r.Method == http.MethodGet {
			reserved = s.reserveDownload()
		} else {
			reserved = !s.downloadTaken()
		}
		if !reserved {
			http.Error(w, "File no longer available", http.StatusGone)
			return
		}
	}
	release := func() {
		if reserved && r.Method == http.MethodGet {
			s.releaseDownload()
		}
	}

	f, err := os.Open(s.root)
	if err != nil {
		release()
		writeOpenError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		release()
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, st.ModTime(), f)

	if r.Method == http.MethodGet {
		s.completeDownload()
	}
}

func (s *Server) serveDirectory(w http.ResponseWriter, r *http.Request) {
	target, ok := s.resolve(r.URL.Path)
	if !ok {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	st, err := os.Stat(target)
	if err != nil {
		writeOpenError(w, err)
		return
	}

	if st.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		entries, err := readListing(target)
		if err != nil {
			writeOpenError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(renderListing(r.URL.Path, entries)))
		return
	}

	f, err := os.Open(target)
	if err != nil {
		writeOpenError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", contentType(target))
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	if r.Method == http.MethodGet {
		s.completeDownload()
	}
}

// resolve maps a request path inside the shared directory. Paths that
// escape the root, directly or through a symlink, are refused.
func (s *Server) resolve(urlPath string) (string, bool) {
	target := filepath.Join(s.root, filepath.FromSlash(urlPath))
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	rel, err := filepath.Rel(s.root, target)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

func (s *Server) reserveDownload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloads > 0 {
		return false
	}
	s.downloads++
	return true
}

func (s *Server) downloadTaken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads > 0
}

func (s *Server) releaseDownload() {
	if !s.opts.OneShot {
		return
	}
	s.mu.Lock()
	s.downloads--
	s.mu.Unlock()
}

func (s *Server) completeDownload() {
	if !s.opts.OneShot {
		s.mu.Lock()
		s.downloads++
		s.mu.Unlock()
		return
	}
	s.logger.Info("One-shot download complete")
	s.once.Do(func() { close(s.downloaded) })
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, status)
	})
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func writeOpenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "File not found", http.StatusNotFound)
	case errors.Is(err, os.ErrPermission):
		http.Error(w, "Permission denied", http.StatusForbidden)
	default:
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
	}
}
