package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveresults/internal/store"
)

// envelope decodes a JSON response with a typed payload.
type envelope[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, raw []byte) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(raw, &env), "output: %s", raw)
	return env
}

func sampleSnapshot() ViewSnapshot {
	return ViewSnapshot{
		View:        "by_priority",
		Generation:  3,
		IndexTitles: []string{"high", "low"},
		Sections: []SectionSnapshot{
			{Key: "high", Title: "high", Items: []ItemSnapshot{
				{ID: "t1", Attrs: map[string]string{"title": "Alpha"}},
				{ID: "t3"},
			}},
			{Key: "low", Title: "low", Items: []ItemSnapshot{{ID: "t2"}}},
		},
	}
}

func TestOutputFormatter_SnapshotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(sampleSnapshot()))

	env := decodeEnvelope[ViewSnapshot](t, buf.Bytes())
	assert.Equal(t, "ok", env.Status)
	assert.Nil(t, env.Error)
	assert.Equal(t, sampleSnapshot(), env.Data)
	assert.NotContains(t, buf.String(), `"error"`, "success omits the error member")
}

func TestOutputFormatter_SnapshotText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(renderSnapshot(sampleSnapshot(), []string{"title"})))

	out := buf.String()
	assert.Contains(t, out, "by_priority (generation 3)")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "t3")
}

func TestOutputFormatter_ErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		details interface{}
	}{
		{"rejected view", ErrCodeViewConfig, "view by_title rejected: SORT_TERM_MISMATCH", []string{"sort: [priority]"}},
		{"missing record", ErrCodeNotFound, "no record tasks/t9", nil},
		{"unknown view", ErrCodeNoView, `unknown view "nope"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, f.Error(tt.code, tt.message, tt.details))

			env := decodeEnvelope[json.RawMessage](t, buf.Bytes())
			assert.Equal(t, "error", env.Status)
			assert.Empty(t, env.Data)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
			if tt.details == nil {
				assert.NotContains(t, buf.String(), `"details"`)
			} else {
				assert.Contains(t, buf.String(), `"details":["sort: [priority]"]`)
			}

			text := &bytes.Buffer{}
			f = &OutputFormatter{Format: "text", Writer: text}
			require.NoError(t, f.Error(tt.code, tt.message, tt.details))
			assert.Equal(t, fmt.Sprintf("Error [%s]: %s\n", tt.code, tt.message), text.String(),
				"details need --verbose")
		})
	}
}

func TestOutputFormatter_VerboseDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Error(ErrCodeViewConfig, "view rejected", "KEY_TYPE_MISMATCH"))
	assert.Equal(t, "Error [E120]: view rejected\nDetails: KEY_TYPE_MISMATCH\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		errWriter bool
		wantOut   string
		wantErr   string
	}{
		{"quiet", false, true, "", ""},
		{"diagnostic writer", true, true, "", "Loaded 3 record(s) into tasks\n"},
		{"falls back to writer", true, false, "Loaded 3 record(s) into tasks\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: out, Verbose: tt.verbose}
			if tt.errWriter {
				f.ErrWriter = errOut
			}

			f.VerboseLog("Loaded %d record(s) into %s", 3, "tasks")
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantErr, errOut.String())
		})
	}
}

func TestExitError(t *testing.T) {
	wrapped := WrapExitError(ExitFailure, "view failed", store.ErrNoSchema)
	assert.Equal(t, "view failed: no schema defined", wrapped.Error())
	assert.ErrorIs(t, wrapped, store.ErrNoSchema)

	outer := fmt.Errorf("watch: %w", wrapped)
	assert.Equal(t, ExitFailure, GetExitCode(outer))

	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "--poll must be positive")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestDeleteMissingEnvelope(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)

	out, err := w.run(t, "--format", "json", "delete", "tasks", "t9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decodeEnvelope[json.RawMessage](t, []byte(out))
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeNotFound, env.Error.Code)
	assert.Equal(t, "no record tasks/t9", env.Error.Message)

	out = w.mustRun(t, "--format", "json", "delete", "tasks", "t1")
	deleted := decodeEnvelope[map[string]string](t, []byte(out))
	assert.Equal(t, map[string]string{"collection": "tasks", "id": "t1"}, deleted.Data)
}

func TestSectionsUnknownViewEnvelope(t *testing.T) {
	w := newWorkspace(t, tasksSpec)

	out, err := w.run(t, "--format", "json", "sections", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	env := decodeEnvelope[json.RawMessage](t, []byte(out))
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeNoView, env.Error.Code)
	assert.Contains(t, env.Error.Message, `unknown view "nope"`)
}
