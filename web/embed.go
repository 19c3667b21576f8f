// Package web embeds the dashboard served by the API server.
//
// Usage in the API server:
//
//	import "github.com/seenimoa/marketpulse/web"
//	fs := web.DistFS()  // returns io/fs.FS rooted at static/
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var dist embed.FS

// DistFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func DistFS() fs.FS {
	sub, err := fs.Sub(dist, "static")
	if err != nil {
		panic("web.DistFS: " + err.Error())
	}
	return sub
}
