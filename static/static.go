// Package static serves files from a directory tree as net/http middleware.
// Misses fall through to the next handler so routes can live alongside assets.
package static

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iaconlabs/chiwarp/router"
)

var validate = validator.New()

// Options tunes how files are looked up and which caching headers they get.
type Options struct {
	// Prefix is the URL path the files are mounted under. It is stripped
	// before lookup. Empty means the tree is served from "/".
	Prefix string `validate:"omitempty,startswith=/"`
	// Dev disables caching: every response carries Cache-Control: no-store.
	Dev bool
	// ETag adds a weak validator derived from size and modification time.
	ETag bool
	// Dotfiles allows serving files and directories whose name starts with ".".
	// ".well-known" is always served.
	Dotfiles bool
	// Extensions are tried, in order, when the request path has no match.
	// Defaults to html and htm.
	Extensions []string `validate:"dive,required,excludes=/"`
	// Single enables SPA mode: unmatched GETs are answered with this file
	// (typically "index.html") instead of falling through.
	Single string
	// MaxAge is the Cache-Control max-age in seconds.
	MaxAge int `validate:"gte=0"`
	// Immutable appends the immutable directive when MaxAge is set.
	Immutable bool
	// Gzip and Brotli serve precompressed siblings (file.gz, file.br) to
	// clients that accept them.
	Gzip   bool
	Brotli bool
}

// Validate checks the options for values that cannot work.
func (o Options) Validate() error {
	return validate.Struct(o)
}

type handler struct {
	fsys    fs.FS
	opts    Options
	exts    []string
	control string
}

// New serves the directory root. It fails when the options are invalid or
// root is not a directory.
func New(root string, opts Options) (router.Middleware, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static: %s is not a directory", root)
	}
	return NewFS(os.DirFS(root), opts)
}

// NewFS serves an fs.FS, for instance an embed.FS.
func NewFS(fsys fs.FS, opts Options) (router.Middleware, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("static: invalid options: %w", err)
	}

	h := &handler{fsys: fsys, opts: opts, exts: opts.Extensions}
	if len(h.exts) == 0 {
		h.exts = []string{"html", "htm"}
	}
	h.control = cacheControl(opts)

	return h.middleware, nil
}

func cacheControl(opts Options) string {
	switch {
	case opts.Dev:
		return "no-store"
	case opts.MaxAge > 0:
		cc := "public,max-age=" + strconv.Itoa(opts.MaxAge)
		if opts.Immutable {
			cc += ",immutable"
		}
		return cc
	default:
		return "no-cache"
	}
}

func (h *handler) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		rel, ok := h.relativePath(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		name, info, found := h.lookup(rel)
		if !found && h.opts.Single != "" {
			name, info, found = h.lookup(strings.TrimPrefix(path.Clean("/"+h.opts.Single), "/"))
		}
		if !found {
			next.ServeHTTP(w, r)
			return
		}

		h.serve(w, r, name, info)
	})
}

// relativePath strips the mount prefix and cleans the remainder into an
// fs.FS name. ok is false when the path is outside the prefix or hidden.
func (h *handler) relativePath(urlPath string) (string, bool) {
	p := urlPath
	if prefix := strings.TrimSuffix(h.opts.Prefix, "/"); prefix != "" {
		if p != prefix && !strings.HasPrefix(p, prefix+"/") {
			return "", false
		}
		p = strings.TrimPrefix(p, prefix)
	}

	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" {
		clean = "."
	}
	if !h.opts.Dotfiles && hasDotSegment(clean) {
		return "", false
	}
	return clean, true
}

func hasDotSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".well-known" {
			return true
		}
	}
	return false
}

// lookup resolves name to a regular file, trying extensions and index files.
func (h *handler) lookup(name string) (string, fs.FileInfo, bool) {
	candidates := make([]string, 0, 1+2*len(h.exts))
	candidates = append(candidates, name)
	for _, ext := range h.exts {
		if name != "." {
			candidates = append(candidates, name+"."+ext)
		}
	}
	for _, ext := range h.exts {
		candidates = append(candidates, path.Join(name, "index."+ext))
	}

	for _, c := range candidates {
		info, err := fs.Stat(h.fsys, c)
		if err == nil && info.Mode().IsRegular() {
			return c, info, true
		}
	}
	return "", nil, false
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request, name string, info fs.FileInfo) {
	header := w.Header()
	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		header.Set("Content-Type", ctype)
	}
	header.Set("Cache-Control", h.control)

	served := name
	if enc, alt, altInfo := h.precompressed(r, name); enc != "" {
		header.Set("Content-Encoding", enc)
		header.Add("Vary", "Accept-Encoding")
		served, info = alt, altInfo
	} else if h.opts.Gzip || h.opts.Brotli {
		header.Add("Vary", "Accept-Encoding")
	}

	if h.opts.ETag {
		header.Set("ETag", fmt.Sprintf(`W/"%x-%x"`, info.Size(), info.ModTime().UnixMilli()))
	}

	f, err := h.fsys.Open(served)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		content = bytes.NewReader(data)
	}

	modTime := info.ModTime()
	if h.opts.Dev {
		modTime = time.Time{}
	}
	http.ServeContent(w, r, name, modTime, content)
}

// precompressed picks a .br or .gz sibling the client accepts.
func (h *handler) precompressed(r *http.Request, name string) (string, string, fs.FileInfo) {
	accept := r.Header.Get("Accept-Encoding")
	try := func(enabled bool, token, ext string) (string, string, fs.FileInfo) {
		if !enabled || !strings.Contains(accept, token) {
			return "", "", nil
		}
		info, err := fs.Stat(h.fsys, name+ext)
		if err != nil || !info.Mode().IsRegular() {
			return "", "", nil
		}
		return token, name + ext, info
	}

	if enc, alt, info := try(h.opts.Brotli, "br", ".br"); enc != "" {
		return enc, alt, info
	}
	return try(h.opts.Gzip, "gzip", ".gz")
}
