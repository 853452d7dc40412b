package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const tasksSpec = `package specs

schema: tasks: {
	title:    string
	priority: string
	rank:     int
	done:     bool
}

view: by_priority: {
	collection:  "tasks"
	section_key: "priority"
	sort: ["priority", "title"]
	titles: "key"
}

view: open_by_priority: {
	collection:  "tasks"
	section_key: "priority"
	sort: ["priority", "title"]
	where: done: false
}
`

// workspace is an isolated directory holding specs and a database.
type workspace struct {
	dir   string
	specs string
	db    string
}

// newWorkspace creates specs in a temp dir and isolates config lookup
// from the developer's home directory.
func newWorkspace(t *testing.T, spec string) *workspace {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	specs := filepath.Join(dir, "specs")
	require.NoError(t, os.MkdirAll(specs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(specs, "tasks.cue"), []byte(spec), 0644))

	return &workspace{dir: dir, specs: specs, db: filepath.Join(dir, "test.db")}
}

// run executes the root command with the workspace's db and specs.
func (w *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", w.db, "--specs", w.specs}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// mustRun is run that fails the test on error.
func (w *workspace) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := w.run(t, args...)
	require.NoError(t, err, "output: %s", out)
	return out
}

// seed applies the schemas and writes a few tasks.
func (w *workspace) seed(t *testing.T) {
	t.Helper()
	w.mustRun(t, "schema", "apply")
	w.mustRun(t, "put", "tasks", "--id", "t1", "--attrs", `{"title": "Alpha", "priority": "high", "rank": 1, "done": false}`)
	w.mustRun(t, "put", "tasks", "--id", "t2", "--attrs", `{"title": "Beta", "priority": "low", "rank": 2, "done": true}`)
	w.mustRun(t, "put", "tasks", "--id", "t3", "--attrs", `{"title": "Gamma", "priority": "high", "rank": 3, "done": false}`)
}

// writeFile writes content to dir/name.
func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}
