package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-sections/pkg/renderers/tui"
	"github.com/goliatone/go-sections/pkg/testsupport"
)

const landingDoc = `{
  "name": "Landing",
  "sections": {
    "s1": {"section_id": "hero", "settings": {"title": "Hi", "columns": 3}, "blocks": {"b1": {"block_type": "cta", "settings": {"label": "Go"}}}},
    "s2": {"section_id": "footer"}
  },
  "order": ["s1", "s2"]
}`

type workspace struct {
	templates string
	schemas   string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	t.Setenv("SECTIONS_CONFIG_FILE", "")
	root := t.TempDir()
	ws := workspace{
		templates: filepath.Join(root, "templates"),
		schemas:   filepath.Join(root, "sections"),
	}
	require.NoError(t, os.MkdirAll(ws.templates, 0o755))
	for name, file := range testsupport.SchemaFS() {
		path := filepath.Join(ws.schemas, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, file.Data, 0o644))
	}
	return ws
}

func (ws workspace) put(t *testing.T, id, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(ws.templates, id+".json"), []byte(doc), 0o644))
}

func (ws workspace) args(args ...string) []string {
	return append([]string{"--templates-dir", ws.templates, "--schemas-dir", ws.schemas, "--log-level", "error"}, args...)
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, a *app, args []string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if a == nil {
		a = &app{}
	}
	if a.in == nil {
		a.in = strings.NewReader("")
	}
	a.out = &stdout
	a.errOut = &stderr
	root := newRoot(a)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestList_Templates(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "landing", landingDoc)
	ws.put(t, "promo", `{"name": "Spring Promo"}`)

	res := run(t, nil, ws.args("list"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ID")
	assert.Contains(t, res.stdout, "landing")
	assert.Contains(t, res.stdout, "Spring Promo")

	res = run(t, nil, ws.args("list", "-q", "sprng"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "promo")
	assert.NotContains(t, res.stdout, "landing")
}

func TestList_SectionsJSON(t *testing.T) {
	ws := newWorkspace(t)

	res := run(t, nil, ws.args("list", "--sections", "--json"))
	require.NoError(t, res.err)
	var rows []listRow
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	assert.Contains(t, ids, "hero")
	assert.Contains(t, ids, "footer")
}

func TestList_Empty(t *testing.T) {
	ws := newWorkspace(t)
	res := run(t, nil, ws.args("list", "--json"))
	require.NoError(t, res.err)
	assert.Equal(t, "[]\n", res.stdout)
}

func TestRender_Formats(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "landing", landingDoc)

	res := run(t, nil, ws.args("render", "landing", "--format", "text", "--expand", "--title", "Preview"))
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "Preview\n"))
	assert.Contains(t, res.stdout, "1. Hero [hero] (1 blocks)")
	assert.Contains(t, res.stdout, "Title: Hi")

	res = run(t, nil, ws.args("render", "landing", "--expand", "--tab", "blocks"))
	require.NoError(t, res.err)
	var f map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &f))
	require.NotNil(t, f["template"])

	out := filepath.Join(t.TempDir(), "landing.html")
	res = run(t, nil, ws.args("render", "landing", "-f", "html", "-o", out))
	require.NoError(t, res.err)
	page, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<!DOCTYPE html>")

	res = run(t, nil, ws.args("render", "landing", "--format", "xml"))
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "available")

	res = run(t, nil, ws.args("render", "missing"))
	require.Error(t, res.err)
}

func TestValidate(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "landing", landingDoc)

	res := run(t, nil, ws.args("validate"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "1 template(s) ok")

	ws.put(t, "broken", `{
  "name": "Broken",
  "sections": {
    "s1": {"section_id": "hero", "settings": {"columns": "many"}, "blocks": {"b1": {"block_type": "nope"}}},
    "s2": {"section_id": "ghost"}
  },
  "order": ["s1", "s2"]
}`)
	res = run(t, nil, ws.args("validate", "broken"))
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "broken: sections.s1.settings.columns:")
	assert.Contains(t, res.stdout, `broken: sections.s1.blocks.b1: unknown block type "nope"`)
	assert.Contains(t, res.stdout, `broken: sections.s2: unknown section type "ghost"`)
}

func TestValidate_StrictReportsRepairs(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "legacy", `{"name": "Legacy", "sections": {"s1": {"section_id": "footer"}}, "order": ["s1", "s9"]}`)

	res := run(t, nil, ws.args("validate"))
	require.NoError(t, res.err)

	res = run(t, nil, ws.args("validate", "--strict"))
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "legacy: ")
}

func TestNormalize(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Legacy", "sections": {"s1": {"settings": {"a": 1}}}}`), 0o600))

	res := run(t, nil, ws.args("normalize", path))
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "repaired ")
	assert.Contains(t, res.stdout, `"section_id": "unknown"`)
	assert.Contains(t, res.stdout, `"order": [`)

	res = run(t, nil, ws.args("normalize", "--write", path))
	require.NoError(t, res.err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"section_id": "unknown"`)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	res = run(t, &app{in: strings.NewReader(`{"name": "Piped"}`)}, ws.args("normalize", "-"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"name": "Piped"`)

	res = run(t, nil, ws.args("normalize", "--write", "-"))
	require.Error(t, res.err)
}

func TestConfig_InvalidDriver(t *testing.T) {
	ws := newWorkspace(t)
	res := run(t, nil, ws.args("--store", "s3", "list"))
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "store.driver")
}

func TestConfig_FileIsRead(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "landing", landingDoc)
	cfgPath := filepath.Join(t.TempDir(), "sections.yaml")
	body := "store:\n  templates_dir: " + ws.templates + "\nschemas:\n  dir: " + ws.schemas + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	res := run(t, nil, []string{"--config", cfgPath, "list"})
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "landing")
}

// quitDriver selects Quit at the first menu and records what was shown.
type quitDriver struct {
	infos []string
}

func (d *quitDriver) Input(context.Context, tui.InputConfig) (string, error) {
	return "", tui.ErrAborted
}

func (d *quitDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	return true, nil
}

func (d *quitDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	for i, option := range cfg.Options {
		if option == tui.LabelQuit {
			return i, nil
		}
	}
	return -1, tui.ErrAborted
}

func (d *quitDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", tui.ErrAborted
}

func (d *quitDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func TestEdit_OpensTemplateAndQuits(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "landing", landingDoc)
	driver := &quitDriver{}

	res := run(t, &app{driver: driver}, ws.args("edit", "landing"))
	require.NoError(t, res.err)
	require.NotEmpty(t, driver.infos)
	assert.Contains(t, driver.infos[0], "* Landing (landing)")
	assert.Contains(t, driver.infos[0], "1. Hero [hero]")

	res = run(t, &app{driver: &quitDriver{}}, ws.args("edit", "missing"))
	require.Error(t, res.err)
}

func TestEdit_ImagesDirMustExist(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "landing", landingDoc)

	res := run(t, &app{driver: &quitDriver{}}, ws.args("edit", "--images-dir", filepath.Join(t.TempDir(), "missing"), "landing"))
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "images dir")

	res = run(t, &app{driver: &quitDriver{}}, ws.args("edit", "--images-dir", t.TempDir(), "--images-url", "/media", "landing"))
	require.NoError(t, res.err)
}
