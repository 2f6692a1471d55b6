package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html static
var files embed.FS

// Static holds the single page and its assets, rooted at the web directory.
func Static() fs.FS {
	return files
}
