package fileserver

import "time"

// Entry represents a single child of a listed directory.
// It carries the name shown to the user, the relative link to it and enough
// metadata for the JSON rendering of the listing.
type Entry struct {
	// Name is the file name of the entry, exactly as stored on disk.
	Name string `json:"name"`
	// Href is the URL-escaped link to the entry relative to the listed
	// directory. Subdirectories end with a slash.
	Href string `json:"href"`
	// Dir reports whether the entry is a directory or a symbolic link to one.
	Dir bool `json:"dir"`
	// Symlink reports whether the entry itself is a symbolic link.
	Symlink bool `json:"symlink"`
	// Size is the size in bytes of a file entry. It is zero for directories.
	Size int64 `json:"size"`
	// Modified is the modification time of the entry.
	Modified time.Time `json:"modified"`
}

// DisplayName returns the name shown in the listing: directories get a
// trailing "/" and symbolic links a trailing "@".
func (e Entry) DisplayName() string {
	name := e.Name
	if e.Dir {
		name += "/"
	}
	if e.Symlink {
		name += "@"
	}
	return name
}

// Listing represents the contents of a directory without an index file.
type Listing struct {
	// Path is the decoded URL path of the directory, ending with a slash.
	Path string `json:"path"`
	// Entries holds one element per child of the directory, sorted by name.
	// It is empty, never nil, for an empty directory.
	Entries []Entry `json:"entries"`
}

// Title returns the heading used by the HTML and Markdown renderings.
func (l *Listing) Title() string {
	return "Directory listing for " + l.Path
}
