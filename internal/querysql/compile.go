package querysql

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/queryir"
)

// RecordsTable is the table every Select reads from.
const RecordsTable = "records"

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Records live in one table with their attributes stored as tagged JSON
// ({"k":kind,"v":payload}); every attribute reference compiles to
// json_extract(attrs, ?) with the JSON path passed as a parameter.
//
// CRITICAL: ALL queries end with "id ASC COLLATE BINARY" for deterministic results.
// CRITICAL: All values and paths are parameterized (never interpolated).
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// The result selects (id, seq, attrs) in the order the query requests.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("select has no collection")
	}

	params := []any{q.From}
	whereClause := " WHERE collection = ?"
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	orderByClause, orderParams, err := c.compileOrderBy(q.OrderBy)
	if err != nil {
		return "", nil, fmt.Errorf("compile order by: %w", err)
	}
	params = append(params, orderParams...)

	sql := fmt.Sprintf("SELECT id, seq, attrs FROM %s%s ORDER BY %s",
		RecordsTable,
		whereClause,
		orderByClause)

	return sql, params, nil
}

// compileOrderBy renders the sort terms followed by the id tiebreaker.
func (c *SQLCompiler) compileOrderBy(terms []queryir.SortTerm) (string, []any, error) {
	parts := make([]string, 0, len(terms)+1)
	params := make([]any, 0, len(terms))

	for _, term := range terms {
		path, err := ValuePath(term.KeyPath)
		if err != nil {
			return "", nil, err
		}
		dir := "DESC"
		if term.Ascending {
			dir = "ASC"
		}
		parts = append(parts, "json_extract(attrs, ?) "+dir)
		params = append(params, path)
	}

	parts = append(parts, c.stableOrderKey())
	return strings.Join(parts, ", "), params, nil
}

// stableOrderKey is the final ORDER BY term of every query.
// COLLATE BINARY ensures deterministic text ordering across SQLite versions.
func (c *SQLCompiler) stableOrderKey() string {
	return "id ASC COLLATE BINARY"
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// Returns (sql, params, error).
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Contains:
		return c.compileContains(pred)
	case *queryir.Contains:
		return c.compileContains(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate. Both the kind tag and the
// payload must match, so Int(1) never equals Bool(true).
// A NULL comparison compiles to an always-false fragment.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if ir.IsNull(eq.Value) {
		return "1 = 0", nil, nil
	}

	valuePath, err := ValuePath(eq.Field)
	if err != nil {
		return "", nil, err
	}
	kindPath, err := KindPath(eq.Field)
	if err != nil {
		return "", nil, err
	}
	param, err := ValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}

	sql := "(json_extract(attrs, ?) = ? AND json_extract(attrs, ?) = ?)"
	params := []any{kindPath, ir.KindOf(eq.Value).String(), valuePath, param}

	return sql, params, nil
}

// compileContains compiles a Contains predicate to instr().
func (c *SQLCompiler) compileContains(ct queryir.Contains) (string, []any, error) {
	valuePath, err := ValuePath(ct.Field)
	if err != nil {
		return "", nil, err
	}
	kindPath, err := KindPath(ct.Field)
	if err != nil {
		return "", nil, err
	}

	field := "json_extract(attrs, ?)"
	needle := "?"
	if ct.CaseInsensitive {
		field = "lower(" + field + ")"
		needle = "lower(?)"
	}

	sql := fmt.Sprintf("(json_extract(attrs, ?) = ? AND instr(%s, %s) > 0)", field, needle)
	params := []any{kindPath, ir.KindString.String(), valuePath, ct.Substring}

	return sql, params, nil
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return "(" + strings.Join(sqlParts, " AND ") + ")", allParams, nil
}

// ValuePath returns the JSON path of an attribute's payload.
func ValuePath(field string) (string, error) {
	return attrPath(field, "v")
}

// KindPath returns the JSON path of an attribute's kind tag.
func KindPath(field string) (string, error) {
	return attrPath(field, "k")
}

func attrPath(field, member string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty attribute name")
	}
	if strings.ContainsAny(field, `"\`) {
		return "", fmt.Errorf("attribute name %q contains a quote or backslash", field)
	}
	return fmt.Sprintf(`$."%s".%s`, field, member), nil
}

// ValueToParam converts an ir.Value into the SQL parameter that equals the
// value json_extract returns for its tagged payload.
func ValueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.Int:
		return int64(val), nil
	case ir.Uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("uint %d exceeds SQLite integer range", uint64(val))
		}
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.String:
		return string(val), nil
	case ir.Time:
		return val.UnixNano(), nil
	case ir.Bytes:
		return hex.EncodeToString([]byte(val)), nil
	case ir.Null, nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported Value type for SQL parameter: %T", v)
	}
}
