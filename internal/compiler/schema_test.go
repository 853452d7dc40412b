package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveresults/internal/ir"
)

func TestCompileSchemaBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		schema: tasks: {
			priority: string
			rank:     int
			done:     bool
			score:    float
			blob:     bytes
			due:      "time"
			count:    "uint32"
		}
	`)
	require.NoError(t, v.Err())

	schema, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.tasks")))
	require.NoError(t, err)

	assert.Equal(t, "tasks", schema.Collection)
	assert.Equal(t, map[string]ir.Kind{
		"priority": ir.KindString,
		"rank":     ir.KindInt,
		"done":     ir.KindBool,
		"score":    ir.KindFloat,
		"blob":     ir.KindBytes,
		"due":      ir.KindTime,
		"count":    ir.KindUint,
	}, schema.Fields)
}

func TestCompileSchemaUnknownKindName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		schema: tasks: {
			priority: "enum"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.tasks")))

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "type", ce.Field)
	assert.Contains(t, ce.Message, "enum")
}

func TestCompileSchemaRejectsStructAttribute(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		schema: tasks: {
			owner: { name: string }
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.tasks")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type kind")
}

func TestCompileSchemaEmpty(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`schema: tasks: {}`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.tasks")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one attribute")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "collection", Message: "collection is required"}
	assert.Equal(t, "collection: collection is required", err.Error())
}
