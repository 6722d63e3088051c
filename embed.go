// Package flightdeck provides embedded runtime resources: the example
// pipeline shown by preview mode when no file is given.
package flightdeck

import (
	"embed"
	"io/fs"
)

//go:embed templates/sample-pipeline.yml
var rawTemplates embed.FS

// Templates is the embedded templates filesystem with the "templates/"
// prefix stripped.
var Templates = mustSub(rawTemplates, "templates")

// SamplePipeline returns the embedded example pipeline config.
func SamplePipeline() []byte {
	data, err := fs.ReadFile(Templates, "sample-pipeline.yml")
	if err != nil {
		panic(err) // embedded at build time
	}
	return data
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
