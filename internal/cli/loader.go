package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/liveresults/internal/compiler"
	"github.com/roach88/liveresults/internal/ir"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the schemas and views loaded from CUE files.
type LoadResult struct {
	Schemas   []ir.Schema
	Views     []ir.ViewSpec
	FileCount int // Number of CUE files found
}

// View returns the view with the given name.
func (r *LoadResult) View(name string) (ir.ViewSpec, bool) {
	for _, v := range r.Views {
		if v.Name == name {
			return v, true
		}
	}
	return ir.ViewSpec{}, false
}

// ViewNames lists the loaded view names in load order.
func (r *LoadResult) ViewNames() []string {
	names := make([]string, len(r.Views))
	for i, v := range r.Views {
		names[i] = v.Name
	}
	return names
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles CUE specs from a directory or a single file.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(path string, mode LoadMode) (*LoadResult, []error) {
	if path == "" {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: "no specs given (use --specs or the specs config key)"}}
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs: %v", err)}}
	}

	dir, args := path, []string{"."}
	cueFiles := []string{path}
	if info.IsDir() {
		cueFiles, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	} else {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}
	var errs []error

	collect := func(section string, compile func(cue.Value) error) bool {
		val := value.LookupPath(cue.ParsePath(section))
		if !val.Exists() {
			return true
		}
		iter, iterErr := val.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", section, iterErr)})
			return mode != LoadModeFailFast
		}
		for iter.Next() {
			if compileErr := compile(iter.Value()); compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, section+"."+iter.Label()))
				if mode == LoadModeFailFast {
					return false
				}
			}
		}
		return true
	}

	ok := collect("schema", func(v cue.Value) error {
		schema, err := compiler.CompileSchema(v)
		if err == nil {
			result.Schemas = append(result.Schemas, *schema)
		}
		return err
	})
	if ok {
		collect("view", func(v cue.Value) error {
			view, err := compiler.CompileView(v)
			if err == nil {
				result.Views = append(result.Views, *view)
			}
			return err
		})
	}

	// Check if we found anything
	if len(result.Schemas) == 0 && len(result.Views) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no schemas or views found in specs"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeStore        = "E008" // Database error
	ErrCodeInvalidInput = "E009" // Malformed command input

	// Schema errors
	ErrCodeSchemaDecl  = "E101" // Malformed schema declaration
	ErrCodeInvalidType = "E104" // Invalid attribute type

	// View errors
	ErrCodeViewMissing = "E110" // Required view field missing
	ErrCodeViewValue   = "E111" // Invalid view field value
	ErrCodeViewWhere   = "E112" // Invalid where clause
	ErrCodeViewConfig  = "E120" // View rejected by the controller
	ErrCodeNoView      = "E121" // Unknown view name
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "schema":
		return ErrCodeSchemaDecl
	case "type":
		return ErrCodeInvalidType
	case "collection", "section_key", "key":
		return ErrCodeViewMissing
	case "kind", "titles", "title_order", "key_policy", "locale":
		return ErrCodeViewValue
	default:
		if strings.HasPrefix(field, "where.") {
			return ErrCodeViewWhere
		}
		return ErrCodeGeneric
	}
}
