package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-intake/internal/config"
	"github.com/goliatone/go-intake/internal/repository"
	"github.com/goliatone/go-intake/internal/server"
	"github.com/goliatone/go-intake/pkg/catalog"
	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/renderers/tui"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type scriptedDriver struct {
	inputs  []string
	selects []int
	info    []string
}

func (d *scriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	return false, nil
}

func (d *scriptedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return -1, errors.New("no select scripted")
	}
	v := d.selects[0]
	d.selects = d.selects[1:]
	return v, nil
}

func (d *scriptedDriver) MultiSelect(context.Context, tui.SelectConfig) ([]int, error) {
	return nil, errors.New("no multiselect scripted")
}

func (d *scriptedDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", errors.New("no textarea scripted")
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.info = append(d.info, msg)
	return nil
}

// asylumScript answers the asylum branch of the built-in catalog: asylum,
// not afraid, in removal proceedings without a known court date.
func asylumScript() *scriptedDriver {
	return &scriptedDriver{
		selects: []int{0, 1, 0},
		inputs:  []string{"crossed at the border", "2020-02-14", ""},
	}
}

func execute(t *testing.T, args []string, opts ...Option) (string, error) {
	t.Helper()

	root := NewRoot(append([]Option{WithEnvironment(map[string]string{})}, opts...)...)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLintBuiltInCatalog(t *testing.T) {
	out, err := execute(t, []string{"lint"})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !strings.Contains(out, "catalog ok: 4 branches") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLintReportsIssues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `
defaultBranch: missing
branches:
  - id: only
    label: Only
    fields:
      - key: note
        kind: short-text
        label: Note
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, []string{"lint", path})
	if err == nil {
		t.Fatalf("expected lint failure, output %q", out)
	}
	if !strings.Contains(out, "missing: default branch is not declared") {
		t.Fatalf("unexpected output %q", out)
	}

	out, _ = execute(t, []string{"lint", "--json", path})
	if !strings.Contains(out, `"valid": false`) {
		t.Fatalf("expected JSON result, got %q", out)
	}
}

func TestRunDryRun(t *testing.T) {
	driver := asylumScript()
	out, err := execute(t, []string{"run", "--dry-run", "--format", "pretty"}, WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(strings.Join(driver.info, "\n"), "Request lr-") {
		t.Fatalf("expected submitted message, got %v", driver.info)
	}
	for _, want := range []string{"branchId=asylum", "answers.entryMethod=crossed at the border", "answers.inRemovalProceedings=yes", "requestNumber=lr-"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "courtDate") {
		t.Fatalf("unanswered optional field must not be compiled:\n%s", out)
	}
}

func TestRunRequiresAPIOrDryRun(t *testing.T) {
	if _, err := execute(t, []string{"run"}); err == nil || !strings.Contains(err.Error(), "--api") {
		t.Fatalf("expected --api error, got %v", err)
	}
	if _, err := execute(t, []string{"run", "--dry-run", "--lang", "fr"}); err == nil || !strings.Contains(err.Error(), "available: en, es") {
		t.Fatalf("expected unsupported language error, got %v", err)
	}
}

func TestRunRejectsBadFlagsBeforePrompting(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "format", args: []string{"run", "--dry-run", "--format", "xml"}, want: "unsupported output format"},
		{name: "confirm", args: []string{"run", "--dry-run", "--confirm"}, want: "--confirm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			driver := asylumScript()
			_, err := execute(t, tc.args, WithPromptDriver(driver))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
			if len(driver.selects) != 3 || len(driver.inputs) != 3 {
				t.Fatalf("no prompt should run, remaining selects=%v inputs=%v", driver.selects, driver.inputs)
			}
		})
	}
}

func TestRunSubmitsToAPI(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	requests := repository.NewMemoryRequests()
	srv, err := server.New(context.Background(), cat,
		server.WithRequests(requests),
		server.WithTranslator(i18n.MustDefault()),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	api := httptest.NewServer(srv.Handler())
	defer api.Close()

	driver := asylumScript()
	if _, err := execute(t, []string{"run", "--lang", "es", "--api", api.URL + "/"}, WithPromptDriver(driver)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if requests.Len() != 1 {
		t.Fatalf("expected one stored request, got %d", requests.Len())
	}
	if !strings.Contains(strings.Join(driver.info, "\n"), "Solicitud lr-") {
		t.Fatalf("expected Spanish submitted message, got %v", driver.info)
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	_, err := execute(t, []string{"migrate"})
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestBuildServerWithoutDatabase(t *testing.T) {
	cfg := config.Defaults()
	cfg.StorageType = "local"
	cfg.StorageLocalPath = t.TempDir()

	app := &App{environ: map[string]string{}}
	handler, cleanup, err := app.buildServer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	defer cleanup()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/case-types?lang=es", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Asilo") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
