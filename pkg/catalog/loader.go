package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-intake/pkg/intake"
)

// Loader resolves a catalog location: a directory, a single JSON/YAML file or
// an http(s) URL serving the case-type catalog.
type Loader struct {
	http    *http.Client
	timeout time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient enables URL locations through client.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.http = client
	}
}

// WithTimeout bounds HTTP fetches.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loader) {
		l.timeout = timeout
	}
}

// NewLoader builds a Loader. HTTP locations use http.DefaultClient unless
// WithHTTPClient says otherwise.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{http: http.DefaultClient, timeout: 10 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load reads the catalog at location. An empty location yields the embedded
// default catalog.
func (l *Loader) Load(ctx context.Context, location string) (intake.Catalog, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return Default()
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		data, err := l.fetch(ctx, location)
		if err != nil {
			return intake.Catalog{}, err
		}
		return Parse(data, location)
	}

	info, err := os.Stat(location)
	if err != nil {
		return intake.Catalog{}, fmt.Errorf("catalog: stat %s: %w", location, err)
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(location))
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return intake.Catalog{}, fmt.Errorf("catalog: read %s: %w", location, err)
	}
	return Parse(data, location)
}

// LoadFS walks fsys and merges every JSON/YAML catalog file in lexical path
// order. At most one file may declare the classification question and the
// default branch; branches from all files are concatenated.
func LoadFS(fsys fs.FS) (intake.Catalog, error) {
	var (
		out            intake.Catalog
		classification string
		defaultSource  string
	)
	if fsys == nil {
		return out, errors.New("catalog: filesystem is nil")
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}
		doc, err := Parse(data, path)
		if err != nil {
			return err
		}

		if doc.Classification.Key != "" {
			if classification != "" {
				return fmt.Errorf("catalog: classification declared in %s and %s", classification, path)
			}
			classification = path
			out.Classification = doc.Classification
		}
		if doc.DefaultBranch != "" {
			if defaultSource != "" {
				return fmt.Errorf("catalog: defaultBranch declared in %s and %s", defaultSource, path)
			}
			defaultSource = path
			out.DefaultBranch = doc.DefaultBranch
		}
		out.Branches = append(out.Branches, doc.Branches...)
		return nil
	})
	if err != nil {
		return intake.Catalog{}, err
	}
	return out, nil
}

// Parse decodes a single catalog document. JSON is tried first, then YAML.
// A document shaped like an API envelope ({"success":..,"data":{..}}) is
// unwrapped.
func Parse(data []byte, source string) (intake.Catalog, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return intake.Catalog{}, fmt.Errorf("catalog: %s is empty", source)
	}

	var env struct {
		Success *bool          `json:"success"`
		Data    intake.Catalog `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Success != nil {
		if !*env.Success {
			return intake.Catalog{}, fmt.Errorf("catalog: %s reported failure", source)
		}
		return env.Data, nil
	}

	var doc intake.Catalog
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return intake.Catalog{}, fmt.Errorf("catalog: parse %s: invalid JSON or YAML: %w", source, err)
	}
	return doc, nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
