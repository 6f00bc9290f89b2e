package server

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// staticRelPath returns a sanitized client-root-relative path for a request
// path with the base already removed. It rejects traversal and absolute-path
// tricks so static serving cannot escape the client root.
func staticRelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// "//etc/passwd" leaves a leading "/" after trimming.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning so traversal is not cleaned away.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// serveFile serves rel from the client root. Any failure is a miss.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, rel string) bool {
	if !isReadMethod(r.Method) {
		return false
	}

	f, err := s.clientFS.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// serveStatic serves the file at the request path, base removed.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	rel, ok := staticRelPath(s.app.RemoveBase(r.URL.Path))
	if !ok {
		return false
	}
	return s.serveFile(w, r, rel)
}

// prerenderedPage is an .html file of the client root and the logical path
// it answers for, anchored at the client root.
type prerenderedPage struct {
	rel     string
	logical string
}

// prerenderedPages enumerates the .html files of the client root in lexical
// walk order.
func (s *Server) prerenderedPages() ([]prerenderedPage, error) {
	var pages []prerenderedPage
	err := afero.Walk(s.clientFS, ".", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".html") {
			return nil
		}
		rel := filepath.ToSlash(p)
		pages = append(pages, prerenderedPage{rel: rel, logical: s.anchor(logicalPath(rel))})
		return nil
	})
	return pages, err
}

// logicalPath strips "/index.html" or ".html" from a client-root-relative
// file path: "about/index.html" → "about", "index.html" → "".
func logicalPath(rel string) string {
	rel = "/" + rel
	if strings.HasSuffix(rel, "/index.html") {
		return strings.TrimSuffix(rel, "/index.html")
	}
	return strings.TrimSuffix(rel, ".html")
}

// anchor joins p onto the client root anchor. The result never has a
// trailing slash.
func (s *Server) anchor(p string) string {
	return path.Join(s.clientAnchor, p)
}

// serveIndex serves the first prerendered page whose anchored logical path
// is a suffix of the anchored request path. Enumeration errors are returned.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) (bool, error) {
	if !isReadMethod(r.Method) {
		return false, nil
	}

	pages, err := s.prerenderedPages()
	if err != nil {
		return false, err
	}

	pathname := s.app.RemoveBase(r.URL.Path)
	if strings.ContainsRune(pathname, 0) {
		return false, nil
	}
	local := s.anchor(pathname)
	for _, page := range pages {
		if strings.HasSuffix(local, page.logical) {
			return s.serveFile(w, r, page.rel), nil
		}
	}
	return false, nil
}

func clientFS(opts Options) afero.Fs {
	if opts.ClientFS != nil {
		return opts.ClientFS
	}
	dir := opts.ClientDir
	if dir == "" {
		dir = "."
	}
	return afero.NewBasePathFs(afero.NewOsFs(), dir)
}

func clientAnchor(opts Options) string {
	if opts.ClientDir != "" {
		if abs, err := filepath.Abs(opts.ClientDir); err == nil {
			return filepath.ToSlash(abs)
		}
	}
	if wd, err := os.Getwd(); err == nil && opts.ClientFS == nil {
		return filepath.ToSlash(wd)
	}
	return clientAnchorFallback
}

// clientAnchorFallback anchors a ClientFS with no directory behind it. The
// NUL byte keeps request paths from ever ending in it.
const clientAnchorFallback = "/\x00client"
