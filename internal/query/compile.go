package query

import (
	"encoding/json"
	"fmt"
)

// Compile walks n and emits a SQL boolean expression (for use in a
// WHERE clause) plus the positional arguments it references, evaluated
// against a table with a JSON-valued "metadata" column. String and
// path literals are always passed as bound arguments (the "?"
// placeholders below) - never interpolated into the SQL text - so a
// field name or metadata value can never escape into the query
// structure itself.
//
// List-field semantics: every leaf condition except All
// and ElemMatch compiles to a CASE that branches on
// json_type(metadata, path) at evaluation time - 'array' evaluates the
// condition against each member via json_each, anything else evaluates
// it directly against the scalar.
func Compile(n Node) (string, []interface{}, error) {
	switch v := n.(type) {
	case And:
		return compileConjunction(v.Children, "AND", "1=1")
	case Or:
		return compileConjunction(v.Children, "OR", "0=1")
	case Nor:
		inner, args, err := compileConjunction(v.Children, "OR", "0=1")
		if err != nil {
			return "", nil, err
		}
		return "(NOT (" + inner + "))", args, nil
	case Not:
		inner, args, err := Compile(v.Child)
		if err != nil {
			return "", nil, err
		}
		return "(NOT (" + inner + "))", args, nil
	case Field:
		return compileField(v.Path, v.Cond)
	default:
		return "", nil, fmt.Errorf("query: unsupported node type %T", n)
	}
}

func compileConjunction(children []Node, op, empty string) (string, []interface{}, error) {
	if len(children) == 0 {
		return empty, nil, nil
	}
	sql := ""
	var args []interface{}
	for i, c := range children {
		part, partArgs, err := Compile(c)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sql += " " + op + " "
		}
		sql += "(" + part + ")"
		args = append(args, partArgs...)
	}
	return sql, args, nil
}

func jsonPath(field string) string {
	return "$." + field
}

func compileField(path string, cond Condition) (string, []interface{}, error) {
	switch c := cond.(type) {
	case All:
		return compileAll(path, c)
	case ElemMatch:
		return compileElemMatch(path, c)
	default:
		scalarSQL, scalarArgs, err := leafAgainst("json_extract(metadata, ?)", []interface{}{jsonPath(path)}, cond)
		if err != nil {
			return "", nil, err
		}
		arraySQL, arrayArgs, err := leafAgainst("je.value", nil, cond)
		if err != nil {
			return "", nil, err
		}
		sql := "(CASE WHEN json_type(metadata, ?) = 'array' THEN " +
			"EXISTS (SELECT 1 FROM json_each(metadata, ?) AS je WHERE " + arraySQL + ") " +
			"ELSE " + scalarSQL + " END)"
		args := append([]interface{}{jsonPath(path), jsonPath(path)}, arrayArgs...)
		args = append(args, scalarArgs...)
		return sql, args, nil
	}
}

// leafAgainst renders a single leaf Condition as a SQL boolean
// expression comparing valueSQL (already valid SQL text referencing
// the candidate value - either a json_extract call or a json_each
// alias column) against the condition's operand(s). valueArgs are the
// bound arguments valueSQL itself needs, textually ahead of the
// condition's own arguments.
func leafAgainst(valueSQL string, valueArgs []interface{}, cond Condition) (string, []interface{}, error) {
	switch c := cond.(type) {
	case Eq:
		return valueSQL + " = ?", append(append([]interface{}{}, valueArgs...), c.Value), nil
	case Ne:
		return valueSQL + " != ?", append(append([]interface{}{}, valueArgs...), c.Value), nil
	case Gt:
		return valueSQL + " > ?", append(append([]interface{}{}, valueArgs...), c.Value), nil
	case Gte:
		return valueSQL + " >= ?", append(append([]interface{}{}, valueArgs...), c.Value), nil
	case Lt:
		return valueSQL + " < ?", append(append([]interface{}{}, valueArgs...), c.Value), nil
	case Lte:
		return valueSQL + " <= ?", append(append([]interface{}{}, valueArgs...), c.Value), nil
	case Glob:
		return valueSQL + " GLOB ?", append(append([]interface{}{}, valueArgs...), c.Pattern), nil
	case In:
		sql, args := inClause(valueSQL, c.Values, false)
		return sql, append(append([]interface{}{}, valueArgs...), args...), nil
	case Nin:
		sql, args := inClause(valueSQL, c.Values, true)
		return sql, append(append([]interface{}{}, valueArgs...), args...), nil
	case condAnd:
		sql := ""
		var args []interface{}
		for i, inner := range c.Conds {
			part, partArgs, err := leafAgainst(valueSQL, valueArgs, inner)
			if err != nil {
				return "", nil, err
			}
			if i > 0 {
				sql += " AND "
			}
			sql += "(" + part + ")"
			args = append(args, partArgs...)
		}
		return sql, args, nil
	default:
		return "", nil, fmt.Errorf("query: %T cannot be evaluated as a scalar comparison", cond)
	}
}

func inClause(valueSQL string, values []interface{}, negate bool) (string, []interface{}) {
	sql := valueSQL
	if negate {
		sql += " NOT IN ("
	} else {
		sql += " IN ("
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		if i > 0 {
			sql += ", "
		}
		sql += "?"
		args[i] = v
	}
	sql += ")"
	return sql, args
}

func compileAll(path string, c All) (string, []interface{}, error) {
	wanted, err := json.Marshal(c.Values)
	if err != nil {
		return "", nil, fmt.Errorf("query: $all: %w", err)
	}
	sql := "(json_type(metadata, ?) = 'array' AND NOT EXISTS (" +
		"SELECT 1 FROM json_each(?) AS want WHERE want.value NOT IN (" +
		"SELECT value FROM json_each(metadata, ?))))"
	args := []interface{}{jsonPath(path), string(wanted), jsonPath(path)}
	return sql, args, nil
}

func compileElemMatch(path string, c ElemMatch) (string, []interface{}, error) {
	sql := ""
	var args []interface{}
	for i, cond := range c.Conds {
		part, partArgs, err := leafAgainst("je.value", nil, cond)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sql += " AND "
		}
		sql += "(" + part + ")"
		args = append(args, partArgs...)
	}
	if sql == "" {
		sql = "1=1"
	}
	full := "(json_type(metadata, ?) = 'array' AND EXISTS (SELECT 1 FROM json_each(metadata, ?) AS je WHERE " + sql + "))"
	fullArgs := append([]interface{}{jsonPath(path), jsonPath(path)}, args...)
	return full, fullArgs, nil
}
