package fileserver

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "Root", path: "/", want: ""},
		{name: "Empty", path: "", want: ""},
		{name: "Simple file", path: "/docs/readme.txt", want: "docs/readme.txt"},
		{name: "Repeated slashes", path: "//docs///readme.txt", want: "docs/readme.txt"},
		{name: "Dot segments", path: "/./docs/./readme.txt", want: "docs/readme.txt"},
		{name: "Parent inside root", path: "/docs/../readme.txt", want: "readme.txt"},
		{name: "Parent back to root", path: "/docs/..", want: ""},
		{name: "Trailing slash", path: "/docs/", want: "docs"},
		{name: "Parent above root", path: "/..", wantErr: ErrOutsideRoot},
		{name: "Traversal", path: "/../../etc/passwd", wantErr: ErrOutsideRoot},
		{name: "Traversal after descent", path: "/docs/../../etc/passwd", wantErr: ErrOutsideRoot},
		{name: "Relative traversal", path: "../secret", wantErr: ErrOutsideRoot},
		{name: "Dots in names", path: "/...", want: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanPath(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("cleanPath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("cleanPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	h, _ := newTestHandler(t, map[string]string{
		"readme.txt":          "hello",
		"docs/guide.md":       "# guide",
		"docs/nested/a b.txt": "spaced",
	})

	tests := []struct {
		name    string
		path    string
		wantRel string
		wantDir bool
		wantErr error
	}{
		{name: "Root", path: "/", wantRel: "", wantDir: true},
		{name: "File", path: "/readme.txt", wantRel: "readme.txt"},
		{name: "Directory", path: "/docs/", wantRel: "docs", wantDir: true},
		{name: "Directory without slash", path: "/docs", wantRel: "docs", wantDir: true},
		{name: "Escaped space", path: "/docs/nested/a%20b.txt", wantRel: "docs/nested/a b.txt"},
		{name: "Parent inside root", path: "/docs/../readme.txt", wantRel: "readme.txt"},
		{name: "Missing", path: "/missing.txt", wantErr: ErrNotFound},
		{name: "Below a file", path: "/readme.txt/more", wantErr: ErrNotFound},
		{name: "File with trailing slash", path: "/readme.txt/", wantErr: ErrNotFound},
		{name: "Traversal", path: "/../../etc/passwd", wantErr: ErrOutsideRoot},
		{name: "Encoded traversal", path: "/%2e%2e/%2e%2e/etc/passwd", wantErr: ErrOutsideRoot},
		{name: "Encoded slashes", path: "/..%2f..%2fetc%2fpasswd", wantErr: ErrOutsideRoot},
		{name: "Invalid escape", path: "/%zz", wantErr: ErrMalformedPath},
		{name: "Truncated escape", path: "/readme.txt%", wantErr: ErrMalformedPath},
		{name: "NUL byte", path: "/readme.txt%00.html", wantErr: ErrMalformedPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := h.Resolve(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if target.Rel != tt.wantRel {
				t.Errorf("Resolve(%q).Rel = %q, want %q", tt.path, target.Rel, tt.wantRel)
			}
			if target.Info.IsDir() != tt.wantDir {
				t.Errorf("Resolve(%q) is directory = %v, want %v", tt.path, target.Info.IsDir(), tt.wantDir)
			}
			if !within(h.Root(), target.Path) {
				t.Errorf("Resolve(%q).Path = %q is outside of %q", tt.path, target.Path, h.Root())
			}
		})
	}
}

func TestResolveSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), "secret")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inside.txt"), "inside")
	symlink(t, filepath.Join(outside, "secret.txt"), filepath.Join(root, "escape.txt"))
	symlink(t, outside, filepath.Join(root, "escape-dir"))
	symlink(t, filepath.Join(root, "inside.txt"), filepath.Join(root, "alias.txt"))
	symlink(t, filepath.Join(root, "missing.txt"), filepath.Join(root, "dangling.txt"))

	reject, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	follow, err := New(root, WithFollowSymlinks(true))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		wantReject error
		wantFollow error
	}{
		{name: "Link inside root", path: "/alias.txt"},
		{name: "Link to outside file", path: "/escape.txt", wantReject: ErrOutsideRoot},
		{name: "Link to outside directory", path: "/escape-dir/", wantReject: ErrOutsideRoot},
		{name: "File below outside link", path: "/escape-dir/secret.txt", wantReject: ErrOutsideRoot},
		{name: "Dangling link", path: "/dangling.txt", wantReject: ErrNotFound, wantFollow: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reject.Resolve(tt.path); !errors.Is(err, tt.wantReject) {
				t.Errorf("Resolve(%q) error = %v, want %v", tt.path, err, tt.wantReject)
			}
			if _, err := follow.Resolve(tt.path); !errors.Is(err, tt.wantFollow) {
				t.Errorf("Resolve(%q) following links error = %v, want %v", tt.path, err, tt.wantFollow)
			}
		})
	}
}

func TestResolveUnsupportedType(t *testing.T) {
	h, root := newTestHandler(t, nil)

	ln, err := net.Listen("unix", filepath.Join(root, "sock"))
	if err != nil {
		t.Skipf("unix sockets not available: %v", err)
	}
	defer ln.Close()

	if _, err := h.Resolve("/sock"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Resolve(/sock) error = %v, want %v", err, ErrUnsupportedType)
	}
	if got := StatusCode(ErrUnsupportedType); got != 404 {
		t.Errorf("StatusCode(ErrUnsupportedType) = %d, want 404", got)
	}
}

func TestResolveUnicodeForms(t *testing.T) {
	// "café.txt" stored with a combining acute accent (NFD).
	h, _ := newTestHandler(t, map[string]string{"cafe\u0301.txt": "coffee"})

	// Requested with the precomposed "é" (NFC).
	target, err := h.Resolve("/caf%C3%A9.txt")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if target.Info.Size() != int64(len("coffee")) {
		t.Errorf("Resolve() size = %d, want %d", target.Info.Size(), len("coffee"))
	}
}

func TestNewRejectsInvalidRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file, "not a directory")

	for _, root := range []string{file, filepath.Join(dir, "missing")} {
		if _, err := New(root); err == nil {
			t.Errorf("New(%q) should fail", root)
		}
	}
}

func symlink(t *testing.T, oldname, newname string) {
	t.Helper()
	if err := os.Symlink(oldname, newname); err != nil {
		t.Skipf("symbolic links not available: %v", err)
	}
}
