// Package fileserver maps HTTP requests onto a directory tree.
//
// The handler resolves each request path against a fixed root directory and
// answers with the file found there, the directory's index file, a generated
// directory listing or an error page. Path resolution is explicit (see
// Handler.Resolve) so that no response can ever expose a file outside of the
// root directory.
package fileserver

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// DefaultIndexFiles are the file names served in place of a directory
// listing, in order of preference.
var DefaultIndexFiles = []string{"index.html", "index.htm"}

// Handler serves the files below a root directory. It holds no mutable
// state and is safe for concurrent use.
type Handler struct {
	root           string
	indexFiles     []string
	followSymlinks bool
	logger         *log.Logger
	markdown       *md.Converter
}

// Option configures a Handler.
type Option func(*Handler)

// WithIndexFiles sets the file names looked up in a directory before falling
// back to a listing. No names disables index files entirely.
func WithIndexFiles(names ...string) Option {
	return func(h *Handler) { h.indexFiles = append([]string(nil), names...) }
}

// WithFollowSymlinks allows symbolic links below the root to point outside
// of it. By default such links are answered with 403 Forbidden.
func WithFollowSymlinks(follow bool) Option {
	return func(h *Handler) { h.followSymlinks = follow }
}

// WithLogger sets the logger that server errors are reported to.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler serving the directory root. The root is made
// absolute and its symbolic links are resolved once, here; it must be an
// existing directory.
func New(root string, opts ...Option) (*Handler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root directory: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving root directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	h := &Handler{
		root:       abs,
		indexFiles: DefaultIndexFiles,
		logger:     log.Default(),
		markdown:   md.NewConverter("", true, nil),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Root returns the absolute path of the served directory.
func (h *Handler) Root() string { return h.root }

// Response is the outcome of a request: a status code, headers and an
// optional body. The caller must close Body when it is not nil.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// Write sends the response to w and closes its body. It returns the number
// of body bytes written.
func (resp *Response) Write(w http.ResponseWriter) (int64, error) {
	header := w.Header()
	for k, v := range resp.Header {
		header[k] = v
	}
	w.WriteHeader(resp.Status)
	if resp.Body == nil {
		return 0, nil
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Respond(r).Write(w); err != nil {
		h.logger.Printf("%s %s: writing response: %v", r.Method, r.URL.Path, err)
	}
}

// Respond computes the response to r. Filesystem failures are turned into
// error responses; Respond never returns nil. HEAD requests get the same
// status and headers as GET, with a nil body.
func (h *Handler) Respond(r *http.Request) *Response {
	resp := h.respond(r)
	if r.Method == http.MethodHead && resp.Body != nil {
		resp.Body.Close()
		resp.Body = nil
	}
	return resp
}

func (h *Handler) respond(r *http.Request) *Response {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		resp := h.fail(r, ErrMethodNotAllowed)
		resp.Header.Set("Allow", "GET, HEAD")
		return resp
	}

	escaped := r.URL.EscapedPath()
	t, err := h.Resolve(escaped)
	if err != nil {
		return h.fail(r, err)
	}

	if t.Info.IsDir() {
		if !strings.HasSuffix(escaped, "/") {
			return redirect(r, (&url.URL{Path: t.URLPath()}).EscapedPath())
		}
		index, err := h.indexFile(t)
		if err != nil {
			return h.fail(r, err)
		}
		if index == nil {
			return h.listing(r, t)
		}
		t = index
	}
	return h.file(r, t)
}

func (h *Handler) file(r *http.Request, t *Target) *Response {
	f, err := os.Open(t.Path)
	if err != nil {
		return h.fail(r, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return h.fail(r, err)
	}

	modtime := info.ModTime()
	header := http.Header{}
	header.Set("Last-Modified", modtime.UTC().Format(http.TimeFormat))
	if notModified(r, modtime) {
		f.Close()
		return &Response{Status: http.StatusNotModified, Header: header}
	}
	header.Set("Content-Type", ContentType(t.Rel))
	header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	return &Response{Status: http.StatusOK, Header: header, Body: f}
}

func (h *Handler) listing(r *http.Request, t *Target) *Response {
	l, err := ReadListing(t.Path, t.URLPath())
	if err != nil {
		return h.fail(r, err)
	}
	body, contentType, err := h.renderListing(l, Negotiate(r.Header.Get("Accept"), ListingFormats))
	if err != nil {
		return h.fail(r, err)
	}
	header := http.Header{}
	header.Set("Vary", "Accept")
	return bodyResponse(http.StatusOK, header, contentType, body)
}

// fail builds the error page for err and logs server errors.
func (h *Handler) fail(r *http.Request, err error) *Response {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	return ErrorResponse(status, describe(err))
}

// ErrorResponse returns a minimal HTML error page for the status code.
func ErrorResponse(status int, description string) *Response {
	return bodyResponse(status, http.Header{}, "text/html; charset=utf-8", errorPage(status, description))
}

func bodyResponse(status int, header http.Header, contentType string, body []byte) *Response {
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &Response{Status: status, Header: header, Body: io.NopCloser(bytes.NewReader(body))}
}

func redirect(r *http.Request, location string) *Response {
	if r.URL.RawQuery != "" {
		location += "?" + r.URL.RawQuery
	}
	header := http.Header{}
	header.Set("Location", location)
	header.Set("Content-Length", "0")
	return &Response{Status: http.StatusMovedPermanently, Header: header}
}

// notModified reports whether the If-Modified-Since header of r allows a 304
// response for a file last modified at modtime.
func notModified(r *http.Request, modtime time.Time) bool {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" || modtime.IsZero() || modtime.Unix() <= 0 {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modtime.Truncate(time.Second).After(t)
}
