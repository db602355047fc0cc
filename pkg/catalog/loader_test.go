package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-intake/pkg/catalog"
	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/testsupport"
)

func TestDefaultMatchesReferenceCatalog(t *testing.T) {
	t.Parallel()

	got, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if diff := cmp.Diff(testsupport.Catalog(), got); diff != "" {
		t.Fatalf("embedded catalog drifted from fixture (-want +got):\n%s", diff)
	}
	if errs := intake.CheckCatalog(got); len(errs) != 0 {
		t.Fatalf("embedded catalog is invalid: %v", errs)
	}
}

func TestLoadFSMergesFiles(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("classification:\n  key: caseType\n  kind: single-choice\n  options:\n    - value: x\ndefaultBranch: x\n")},
		"b.json": {Data: []byte(`{"branches":[{"id":"x","fields":[{"key":"q","kind":"short-text","required":true}]}]}`)},
		"c.txt":  {Data: []byte("ignored")},
	}

	got, err := catalog.LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	want := intake.Catalog{
		Classification: intake.FieldDefinition{Key: "caseType", Kind: intake.KindSingleChoice, Options: []intake.Option{{Value: "x"}}},
		DefaultBranch:  "x",
		Branches: []intake.Branch{
			{ID: "x", Fields: []intake.FieldDefinition{{Key: "q", Kind: intake.KindShortText, Required: true}}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFSRejectsDuplicateClassification(t *testing.T) {
	t.Parallel()

	doc := []byte("classification:\n  key: caseType\n  kind: single-choice\n")
	_, err := catalog.LoadFS(fstest.MapFS{"a.yaml": {Data: doc}, "b.yaml": {Data: doc}})
	if err == nil || !strings.Contains(err.Error(), "classification declared in a.yaml and b.yaml") {
		t.Fatalf("expected duplicate classification error, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	if _, err := catalog.Parse([]byte("  "), "empty.yaml"); err == nil {
		t.Fatalf("expected empty document error")
	}
	if _, err := catalog.Parse([]byte("branches: [unclosed"), "bad.yaml"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := catalog.Parse([]byte(`{"success":false,"error":"down"}`), "api"); err == nil {
		t.Fatalf("expected failure envelope to error")
	}
}

func TestLoaderFileAndDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data, err := json.Marshal(testsupport.Catalog())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loader := catalog.NewLoader()
	for _, location := range []string{path, dir} {
		got, err := loader.Load(context.Background(), location)
		if err != nil {
			t.Fatalf("%s: Load: %v", location, err)
		}
		if diff := cmp.Diff(testsupport.Catalog(), got); diff != "" {
			t.Fatalf("%s: catalog mismatch (-want +got):\n%s", location, diff)
		}
	}

	if _, err := loader.Load(context.Background(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestLoaderHTTPEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		body, _ := json.Marshal(map[string]any{"success": true, "data": testsupport.Catalog()})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	loader := catalog.NewLoader(catalog.WithHTTPClient(srv.Client()))
	got, err := loader.Load(context.Background(), srv.URL+"/api/case-types")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(testsupport.Catalog(), got); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}

	if _, err := loader.Load(context.Background(), srv.URL+"/broken"); err == nil {
		t.Fatalf("expected status error")
	}
}
