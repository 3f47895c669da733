package fileserver

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/text/unicode/norm"
)

// Target is the result of mapping a request path onto the root directory.
type Target struct {
	// Path is the absolute filesystem path of the target with all symbolic
	// links resolved.
	Path string
	// Rel is the slash-separated path of the target relative to the root.
	// It is empty for the root itself.
	Rel string
	// Info describes the target itself, never a symbolic link to it.
	Info fs.FileInfo
}

// URLPath returns the decoded URL path of the target, with a trailing slash
// for directories.
func (t *Target) URLPath() string {
	p := "/" + t.Rel
	if t.Info.IsDir() && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Resolve maps an escaped URL path onto the root directory.
//
// The path is percent-decoded, then cleaned segment by segment; a ".." that
// would climb above the root is rejected with ErrOutsideRoot rather than
// being clamped. The cleaned path is joined onto the root and every symbolic
// link along it is resolved. Unless the handler follows symbolic links, the
// resolved path must still be a descendant of the root.
//
// Lookups which fail are retried with the NFC and NFD forms of the path, so a
// file created on a volume that stores decomposed names can be requested with
// the composed spelling and vice versa.
func (h *Handler) Resolve(escapedPath string) (*Target, error) {
	p, err := url.PathUnescape(escapedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPath, err)
	}
	if strings.IndexByte(p, 0) >= 0 {
		return nil, fmt.Errorf("%w: NUL byte in path", ErrMalformedPath)
	}
	if filepath.Separator != '/' && strings.ContainsRune(p, filepath.Separator) {
		return nil, fmt.Errorf("%w: %q in path", ErrMalformedPath, filepath.Separator)
	}

	rel, err := cleanPath(p)
	if err != nil {
		return nil, err
	}

	t, err := h.lookup(rel)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(p, "/") && !t.Info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, t.Rel)
	}
	return t, nil
}

// cleanPath collapses empty, "." and ".." segments of a slash-separated path
// and returns it relative to the root. Unlike path.Clean, a ".." at the top
// is an error instead of being dropped.
func cleanPath(p string) (string, error) {
	elems := make([]string, 0, 8)
	for _, elem := range strings.Split(p, "/") {
		switch elem {
		case "", ".":
		case "..":
			if len(elems) == 0 {
				return "", ErrOutsideRoot
			}
			elems = elems[:len(elems)-1]
		default:
			elems = append(elems, elem)
		}
	}
	return strings.Join(elems, "/"), nil
}

func (h *Handler) lookup(rel string) (*Target, error) {
	name := filepath.Join(h.root, filepath.FromSlash(rel))
	if !within(h.root, name) {
		return nil, ErrOutsideRoot
	}

	resolved, err := filepath.EvalSymlinks(name)
	if isNotExist(err) {
		for _, alt := range unicodeForms(rel) {
			altResolved, altErr := filepath.EvalSymlinks(filepath.Join(h.root, filepath.FromSlash(alt)))
			if altErr == nil {
				rel, resolved, err = alt, altResolved, nil
				break
			}
		}
	}
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, err
	}
	if !h.followSymlinks && !within(h.root, resolved) {
		return nil, fmt.Errorf("%w: %s links to %s", ErrOutsideRoot, rel, resolved)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s has mode %s", ErrUnsupportedType, rel, info.Mode().Type())
	}
	return &Target{Path: resolved, Rel: rel, Info: info}, nil
}

// indexFile returns the first configured index file of the directory, or nil
// when the directory has none. Index candidates which are missing, are not
// regular files or point outside of the root are skipped.
func (h *Handler) indexFile(dir *Target) (*Target, error) {
	for _, index := range h.indexFiles {
		t, err := h.lookup(path.Join(dir.Rel, index))
		switch {
		case err == nil:
			if t.Info.Mode().IsRegular() {
				return t, nil
			}
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrOutsideRoot):
		default:
			return nil, err
		}
	}
	return nil, nil
}

// within reports whether name is root or one of its descendants. Both paths
// must be absolute and clean.
func within(root, name string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func unicodeForms(rel string) []string {
	var forms []string
	for _, form := range []norm.Form{norm.NFC, norm.NFD} {
		if alt := form.String(rel); alt != rel {
			forms = append(forms, alt)
		}
	}
	return forms
}
