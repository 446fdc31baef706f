package query

import (
	"fmt"
	"strings"
)

// Eval evaluates n directly against a decoded metadata document,
// without touching a database. Keeping the AST
// first-class makes a second backend fall out for free, and this one
// lets the compiler's SQL be checked against a ground truth in tests.
func Eval(n Node, metadata map[string]interface{}) (bool, error) {
	switch v := n.(type) {
	case And:
		for _, c := range v.Children {
			ok, err := Eval(c, metadata)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, c := range v.Children {
			ok, err := Eval(c, metadata)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Nor:
		for _, c := range v.Children {
			ok, err := Eval(c, metadata)
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil
	case Not:
		ok, err := Eval(v.Child, metadata)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case Field:
		return evalField(v.Path, v.Cond, metadata)
	default:
		return false, fmt.Errorf("query: unsupported node type %T", n)
	}
}

func lookup(path string, metadata map[string]interface{}) (interface{}, bool) {
	cur := interface{}(metadata)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func evalField(path string, cond Condition, metadata map[string]interface{}) (bool, error) {
	value, found := lookup(path, metadata)

	switch c := cond.(type) {
	case All:
		if !found {
			return false, nil
		}
		arr, ok := value.([]interface{})
		if !ok {
			return false, nil
		}
		for _, want := range c.Values {
			if !memberOf(arr, want) {
				return false, nil
			}
		}
		return true, nil
	case ElemMatch:
		if !found {
			return false, nil
		}
		arr, ok := value.([]interface{})
		if !ok {
			return false, nil
		}
		for _, elem := range arr {
			all := true
			for _, inner := range c.Conds {
				ok, err := evalLeaf(inner, elem, found)
				if err != nil {
					return false, err
				}
				if !ok {
					all = false
					break
				}
			}
			if all {
				return true, nil
			}
		}
		return false, nil
	}

	if arr, ok := value.([]interface{}); ok && found {
		for _, elem := range arr {
			ok, err := evalLeaf(cond, elem, true)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return evalLeaf(cond, value, found)
}

func memberOf(arr []interface{}, want interface{}) bool {
	for _, v := range arr {
		if compareEqual(v, want) {
			return true
		}
	}
	return false
}

func evalLeaf(cond Condition, value interface{}, found bool) (bool, error) {
	switch c := cond.(type) {
	case Eq:
		return found && compareEqual(value, c.Value), nil
	case Ne:
		return !(found && compareEqual(value, c.Value)), nil
	case In:
		if !found {
			return false, nil
		}
		for _, v := range c.Values {
			if compareEqual(value, v) {
				return true, nil
			}
		}
		return false, nil
	case Nin:
		if !found {
			return true, nil
		}
		for _, v := range c.Values {
			if compareEqual(value, v) {
				return false, nil
			}
		}
		return true, nil
	case Gt, Gte, Lt, Lte:
		if !found {
			return false, nil
		}
		return compareOrdered(value, cond)
	case Glob:
		if !found {
			return false, nil
		}
		s, ok := value.(string)
		if !ok {
			return false, nil
		}
		return globMatch(c.Pattern, s), nil
	case condAnd:
		for _, inner := range c.Conds {
			ok, err := evalLeaf(inner, value, found)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("query: %T cannot be evaluated against a scalar", cond)
	}
}

func compareEqual(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compareOrdered(value interface{}, cond Condition) (bool, error) {
	var operand interface{}
	switch c := cond.(type) {
	case Gt:
		operand = c.Value
	case Gte:
		operand = c.Value
	case Lt:
		operand = c.Value
	case Lte:
		operand = c.Value
	}

	vf, vok := toFloat(value)
	of, ook := toFloat(operand)
	if vok && ook {
		switch cond.(type) {
		case Gt:
			return vf > of, nil
		case Gte:
			return vf >= of, nil
		case Lt:
			return vf < of, nil
		case Lte:
			return vf <= of, nil
		}
	}

	vs, vsok := value.(string)
	os, osok := operand.(string)
	if vsok && osok {
		switch cond.(type) {
		case Gt:
			return vs > os, nil
		case Gte:
			return vs >= os, nil
		case Lt:
			return vs < os, nil
		case Lte:
			return vs <= os, nil
		}
	}
	return false, fmt.Errorf("query: cannot order-compare %T and %T", value, operand)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// globMatch implements the subset of shell globbing SQLite's GLOB
// operator supports: "*" (any run of characters) and "?" (any single
// character).
func globMatch(pattern, s string) bool {
	return globMatchRunes([]rune(pattern), []rune(s))
}

func globMatchRunes(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatchRunes(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	}
}
