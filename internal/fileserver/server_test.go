package fileserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewMissingPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.txt"), Options{}); err == nil {
		t.Fatal("New() expected error for missing path")
	}
}

func TestSingleFileRoutes(t *testing.T) {
	p := writeFile(t, t.TempDir(), "report.pdf", "%PDF-1.4 body")
	srv, err := New(p, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := srv.Handler()

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusOK},
		{"/report.pdf", http.StatusOK},
		{"/other.pdf", http.StatusNotFound},
		{"/../etc/passwd", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := rec.Body.String(); got != "%PDF-1.4 body" {
				t.Errorf("body = %q", got)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
				t.Errorf("Content-Type = %q", got)
			}
			if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=report.pdf` {
				t.Errorf("Content-Disposition = %q", got)
			}
		})
	}

	if srv.Downloads() != 2 {
		t.Errorf("Downloads() = %d, want 2", srv.Downloads())
	}
}

func TestSingleFileUnknownExtension(t *testing.T) {
	p := writeFile(t, t.TempDir(), "blob.zzqq", "x")
	srv, err := New(p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	rec := get(t, srv.Handler(), "/blob.zzqq")
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestOneShot(t *testing.T) {
	p := writeFile(t, t.TempDir(), "notes.txt", "hello")
	srv, err := New(p, Options{OneShot: true})
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	if rec := get(t, h, "/notes.txt"); rec.Code != http.StatusOK {
		t.Fatalf("first download status = %d", rec.Code)
	}
	rec := get(t, h, "/notes.txt")
	if rec.Code != http.StatusGone {
		t.Fatalf("second download status = %d, want 410", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "File no longer available") {
		t.Errorf("body = %q", rec.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !srv.WaitForDownload(ctx) {
		t.Error("WaitForDownload() = false after a completed download")
	}
}

func TestOneShotHeadDoesNotConsume(t *testing.T) {
	p := writeFile(t, t.TempDir(), "notes.txt", "hello")
	srv, err := New(p, Options{OneShot: true})
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	head := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := head(); code != http.StatusOK {
			t.Fatalf("HEAD %d status = %d, want 200", i, code)
		}
	}
	if srv.Downloads() != 0 {
		t.Errorf("Downloads() = %d after HEAD, want 0", srv.Downloads())
	}

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("GET after HEAD status = %d body = %q", rec.Code, rec.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !srv.WaitForDownload(ctx) {
		t.Error("WaitForDownload() = false after GET")
	}

	if code := head(); code != http.StatusGone {
		t.Errorf("HEAD after download status = %d, want 410", code)
	}
}

func TestWaitForDownloadTimeout(t *testing.T) {
	p := writeFile(t, t.TempDir(), "notes.txt", "hello")
	srv, err := New(p, Options{OneShot: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if srv.WaitForDownload(ctx) {
		t.Error("WaitForDownload() = true with no download")
	}
}

func TestDirectoryListing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "beta.txt", "bb")
	writeFile(t, root, "Alpha.txt", "a")
	writeFile(t, root, "zeta/inner.txt", "inner")
	writeFile(t, root, "<odd>.txt", "o")

	srv, err := New(root, Options{OneShot: true})
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	zeta := strings.Index(body, "zeta/")
	alpha := strings.Index(body, "Alpha.txt")
	beta := strings.Index(body, "beta.txt")
	if zeta < 0 || alpha < 0 || beta < 0 {
		t.Fatalf("listing missing entries:\n%s", body)
	}
	if !(zeta < alpha && alpha < beta) {
		t.Errorf("order zeta=%d alpha=%d beta=%d, want directories first then case-insensitive names", zeta, alpha, beta)
	}
	if strings.Contains(body, `href="../"`) {
		t.Error("root listing should not have a parent link")
	}
	if !strings.Contains(body, "&lt;odd&gt;.txt") {
		t.Error("names are not HTML-escaped")
	}
	if !strings.Contains(body, "2 B") {
		t.Error("listing missing file size")
	}

	sub := get(t, h, "/zeta/")
	if !strings.Contains(sub.Body.String(), `href="../"`) {
		t.Error("subdirectory listing missing parent link")
	}

	redirect := get(t, h, "/zeta")
	if redirect.Code != http.StatusMovedPermanently {
		t.Errorf("directory without slash status = %d, want 301", redirect.Code)
	}

	file := get(t, h, "/zeta/inner.txt")
	if file.Code != http.StatusOK || file.Body.String() != "inner" {
		t.Errorf("file status = %d body = %q", file.Code, file.Body.String())
	}

	// One-shot is ignored for directories.
	if again := get(t, h, "/zeta/inner.txt"); again.Code != http.StatusOK {
		t.Errorf("second directory download status = %d", again.Code)
	}
}

func TestDirectoryTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "share")
	writeFile(t, root, "ok.txt", "ok")
	writeFile(t, parent, "secret.txt", "secret")

	srv, err := New(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	if rec := get(t, h, "/../secret.txt"); rec.Code != http.StatusForbidden {
		t.Errorf("traversal status = %d, want 403", rec.Code)
	}
	if rec := get(t, h, "/missing.txt"); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}

	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(root, "link.txt")); err == nil {
		if rec := get(t, h, "/link.txt"); rec.Code != http.StatusForbidden {
			t.Errorf("symlink escape status = %d, want 403", rec.Code)
		}
	}
}

func TestStartStop(t *testing.T) {
	p := writeFile(t, t.TempDir(), "hello.txt", "hello over http")
	srv, err := New(p, Options{Host: "127.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	info, err := srv.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if info.Port < DefaultPortStart || info.Port >= DefaultPortEnd {
		t.Errorf("Port = %d, want within default range", info.Port)
	}
	if info.IsDirectory {
		t.Error("IsDirectory = true for a file")
	}
	if info.DownloadURL() != info.URL+"/hello.txt" {
		t.Errorf("DownloadURL() = %q", info.DownloadURL())
	}
	if info.ShareID == "" {
		t.Error("ShareID is empty")
	}

	resp, err := http.Get(info.DownloadURL())
	if err != nil {
		_ = srv.Stop(ctx)
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "hello over http" {
		t.Errorf("body = %q", body)
	}

	if err := srv.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort(DefaultPortStart, DefaultPortEnd)
	if err != nil {
		t.Fatalf("FindFreePort() error = %v", err)
	}
	if port < DefaultPortStart || port >= DefaultPortEnd {
		t.Errorf("port = %d out of range", port)
	}

	if _, err := FindFreePort(10, 10); err == nil {
		t.Error("empty range should fail")
	}
}

func TestLocalIP(t *testing.T) {
	if ip := LocalIP(); ip == "" {
		t.Error("LocalIP() returned empty string")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
