package query

import "fmt"

// Parse turns a document (as produced by decoding YAML/JSON into
// map[string]interface{}) into a Node. A document with multiple keys
// at the top level is an implicit AND of each key's predicate - either
// a combinator ($and, $or, $not, $nor) or a field predicate on the
// named metadata path.
func Parse(doc map[string]interface{}) (Node, error) {
	if len(doc) == 0 {
		return And{}, nil // matches everything
	}

	var parts []Node
	for key, value := range doc {
		n, err := parseTopLevelKey(key, value)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return And{Children: parts}, nil
}

func parseTopLevelKey(key string, value interface{}) (Node, error) {
	switch key {
	case "$and":
		children, err := parseDocList(value, "$and")
		if err != nil {
			return nil, err
		}
		return And{Children: children}, nil
	case "$or":
		children, err := parseDocList(value, "$or")
		if err != nil {
			return nil, err
		}
		return Or{Children: children}, nil
	case "$nor":
		children, err := parseDocList(value, "$nor")
		if err != nil {
			return nil, err
		}
		return Nor{Children: children}, nil
	case "$not":
		doc, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("query: $not requires a document, got %T", value)
		}
		child, err := Parse(doc)
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil
	default:
		if len(key) > 0 && key[0] == '$' {
			return nil, &UnknownOperatorError{Operator: key}
		}
		cond, err := parseFieldValue(value)
		if err != nil {
			return nil, err
		}
		return Field{Path: key, Cond: cond}, nil
	}
}

func parseDocList(value interface{}, op string) ([]Node, error) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("query: %s requires a list, got %T", op, value)
	}
	nodes := make([]Node, 0, len(list))
	for _, item := range list {
		doc, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("query: %s item must be a document, got %T", op, item)
		}
		n, err := Parse(doc)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// parseFieldValue parses a field's predicate value. A scalar (or a
// map lacking any "$"-prefixed key) is the implicit $eq condition; a
// document of $-prefixed keys is one or more leaf conditions, implicitly
// conjoined by wrapping them in an And of single-condition Fields is
// unnecessary here since a Field carries exactly one Condition - so
// multiple operators on one field compile to a synthetic multi-op
// condition via condAnd.
func parseFieldValue(value interface{}) (Condition, error) {
	doc, ok := value.(map[string]interface{})
	if !ok {
		return Eq{Value: value}, nil
	}

	hasOperator := false
	for k := range doc {
		if len(k) > 0 && k[0] == '$' {
			hasOperator = true
			break
		}
	}
	if !hasOperator {
		return Eq{Value: doc}, nil
	}

	var conds []Condition
	for op, arg := range doc {
		c, err := parseLeafCondition(op, arg)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return condAnd{conds}, nil
}

// condAnd conjoins several leaf conditions on the same field (e.g.
// {$gt: 28, $lt: 40}). It is unexported: callers only ever see it
// through the Condition interface, and the compiler flattens it when
// emitting SQL.
type condAnd struct{ Conds []Condition }

func (condAnd) condition() {}

func parseLeafCondition(op string, arg interface{}) (Condition, error) {
	switch op {
	case "$eq":
		return Eq{Value: arg}, nil
	case "$ne":
		return Ne{Value: arg}, nil
	case "$gt":
		return Gt{Value: arg}, nil
	case "$gte":
		return Gte{Value: arg}, nil
	case "$lt":
		return Lt{Value: arg}, nil
	case "$lte":
		return Lte{Value: arg}, nil
	case "$glob":
		pattern, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("query: $glob requires a string pattern, got %T", arg)
		}
		return Glob{Pattern: pattern}, nil
	case "$in":
		values, err := toSlice(arg, "$in")
		if err != nil {
			return nil, err
		}
		return In{Values: values}, nil
	case "$nin":
		values, err := toSlice(arg, "$nin")
		if err != nil {
			return nil, err
		}
		return Nin{Values: values}, nil
	case "$all":
		values, err := toSlice(arg, "$all")
		if err != nil {
			return nil, err
		}
		return All{Values: values}, nil
	case "$elemMatch":
		doc, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("query: $elemMatch requires a document, got %T", arg)
		}
		var conds []Condition
		for innerOp, innerArg := range doc {
			if len(innerOp) == 0 || innerOp[0] != '$' {
				return nil, &UnknownOperatorError{Operator: innerOp}
			}
			c, err := parseLeafCondition(innerOp, innerArg)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		return ElemMatch{Conds: conds}, nil
	default:
		return nil, &UnknownOperatorError{Operator: op}
	}
}

func toSlice(arg interface{}, op string) ([]interface{}, error) {
	values, ok := arg.([]interface{})
	if !ok {
		return nil, fmt.Errorf("query: %s requires a list, got %T", op, arg)
	}
	return values, nil
}
