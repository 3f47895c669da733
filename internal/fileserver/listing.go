package fileserver

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// ReadListing reads the directory at dir and returns its listing under the
// given URL path. Symbolic links are followed to decide whether an entry is
// a directory; dangling links are listed as files.
func ReadListing(dir, urlPath string) (*Listing, error) {
	// os.ReadDir returns entries sorted by file name.
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := os.Stat(filepath.Join(dir, de.Name()))
		if err != nil {
			if info, err = de.Info(); err != nil {
				// Removed between ReadDir and Stat.
				continue
			}
		}

		e := Entry{
			Name:     de.Name(),
			Dir:      info.IsDir(),
			Symlink:  de.Type()&fs.ModeSymlink != 0,
			Modified: info.ModTime(),
		}
		e.Href = (&url.URL{Path: e.Name}).String()
		if e.Dir {
			e.Href += "/"
		} else {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	return &Listing{Path: urlPath, Entries: entries}, nil
}

// renderListing encodes the listing in the given media type, which must be
// one of ListingFormats. It returns the body and the Content-Type header.
func (h *Handler) renderListing(l *Listing, mediaType string) ([]byte, string, error) {
	switch mediaType {
	case MediaJSON:
		b, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return append(b, '\n'), "application/json", nil
	case MediaMarkdown:
		md, err := h.markdown.ConvertString(string(listingPage(l)))
		if err != nil {
			return nil, "", fmt.Errorf("converting listing to markdown: %w", err)
		}
		return []byte(md + "\n"), "text/markdown; charset=utf-8", nil
	default:
		return listingPage(l), "text/html; charset=utf-8", nil
	}
}
