package fileserver

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is sent for files whose extension is not in the table.
const DefaultContentType = "application/octet-stream"

// contentTypes is the extension table. The host's mime.types is never
// consulted. Keys are lower case.
var contentTypes = map[string]string{
	// text
	".html":     "text/html; charset=utf-8",
	".htm":      "text/html; charset=utf-8",
	".css":      "text/css; charset=utf-8",
	".csv":      "text/csv; charset=utf-8",
	".txt":      "text/plain; charset=utf-8",
	".text":     "text/plain; charset=utf-8",
	".log":      "text/plain; charset=utf-8",
	".md":       "text/markdown; charset=utf-8",
	".markdown": "text/markdown; charset=utf-8",
	".xml":      "text/xml; charset=utf-8",
	".js":       "text/javascript; charset=utf-8",
	".mjs":      "text/javascript; charset=utf-8",
	".go":       "text/plain; charset=utf-8",
	".py":       "text/plain; charset=utf-8",
	".sh":       "text/plain; charset=utf-8",
	".c":        "text/plain; charset=utf-8",
	".h":        "text/plain; charset=utf-8",
	".toml":     "text/plain; charset=utf-8",
	".yaml":     "text/plain; charset=utf-8",
	".yml":      "text/plain; charset=utf-8",

	// application
	".json":  "application/json",
	".map":   "application/json",
	".wasm":  "application/wasm",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".tgz":   "application/gzip",
	".tar":   "application/x-tar",
	".bz2":   "application/x-bzip2",
	".xz":    "application/x-xz",
	".zst":   "application/zstd",
	".7z":    "application/x-7z-compressed",
	".rtf":   "application/rtf",
	".doc":   "application/msword",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":   "application/vnd.ms-excel",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":   "application/vnd.ms-powerpoint",
	".pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".epub":  "application/epub+zip",
	".xhtml": "application/xhtml+xml",
	".rss":   "application/rss+xml",

	// images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".svg":  "image/svg+xml",
	".tif":  "image/tiff",
	".tiff": "image/tiff",

	// audio and video
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",

	// fonts
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
}

// ContentType returns the media type for the file name based on its
// extension, or DefaultContentType when the extension is unknown.
func ContentType(name string) string {
	if t, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return DefaultContentType
}
