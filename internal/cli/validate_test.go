package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAgainstDatabase(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.mustRun(t, "schema", "apply")

	out := w.mustRun(t, "validate")
	assert.Contains(t, out, "✓ 2 view(s) valid")
}

func TestValidateWithoutSchema(t *testing.T) {
	w := newWorkspace(t, tasksSpec)

	out, err := w.run(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "by_priority: SCHEMA_UNAVAILABLE")
}

func TestValidateOffline(t *testing.T) {
	w := newWorkspace(t, tasksSpec)

	out := w.mustRun(t, "validate", "--offline")
	assert.Contains(t, out, "✓ 2 view(s) valid")
}

func TestValidateRejectedViewJSON(t *testing.T) {
	w := newWorkspace(t, `package specs

schema: tasks: {
	title:    string
	priority: string
	rank:     int
}

view: by_title_first: {
	collection:  "tasks"
	section_key: "priority"
	sort: ["title", "priority"]
}

view: by_rank_as_string: {
	collection:  "tasks"
	section_key: "rank"
	kind:        "string"
}

view: by_priority: {
	collection:  "tasks"
	section_key: "priority"
}
`)

	out, err := w.run(t, "--format", "json", "validate", "--offline")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Views, 3)

	assert.Equal(t, "by_title_first", resp.Data.Views[0].View)
	assert.Equal(t, "SORT_TERM_MISMATCH", resp.Data.Views[0].Code)
	assert.False(t, resp.Data.Views[1].Valid)
	assert.Equal(t, "KEY_TYPE_MISMATCH", resp.Data.Views[1].Code)
	assert.True(t, resp.Data.Views[2].Valid)
	assert.Empty(t, resp.Data.Views[2].Code)
}

func TestValidateCompileErrors(t *testing.T) {
	w := newWorkspace(t, `package specs

view: broken: {
	section_key: "priority"
}
`)

	out, err := w.run(t, "validate", "--offline")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "collection is required")
}
