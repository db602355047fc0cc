package catalog

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-intake/pkg/intake"
)

//go:embed data/*
var embeddedCatalog embed.FS

// EmbeddedFS returns the bundled catalog files.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedCatalog, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Default loads the bundled catalog.
func Default() (intake.Catalog, error) {
	return LoadFS(EmbeddedFS())
}
