// Package query compiles a MongoDB-like document predicate over job
// metadata into a relational predicate the index can execute.
//
// The AST (And, Or, Not, Nor, Field+Condition) is first-class:
// parsing happens once at the document boundary (Parse),
// and a separate step (Compile) walks the AST to emit SQL. Keeping
// the two steps apart is what lets a second backend - an in-memory
// evaluator over parsed metadata - fall out for free; Eval in this
// package is exactly that second backend, used by the test suite to
// check query semantics without touching a database.
package query

import "fmt"

// Node is a predicate over a job's metadata document.
type Node interface {
	node()
}

// And is satisfied when every child is.
type And struct{ Children []Node }

// Or is satisfied when any child is.
type Or struct{ Children []Node }

// Not is satisfied when Child is not.
type Not struct{ Child Node }

// Nor is satisfied when no child is (the dual of Or).
type Nor struct{ Children []Node }

// Field applies Cond to the metadata value at Path (dotted JSON path,
// e.g. "tags" or "build.arch").
type Field struct {
	Path string
	Cond Condition
}

func (And) node()   {}
func (Or) node()    {}
func (Not) node()   {}
func (Nor) node()   {}
func (Field) node() {}

// Condition is a leaf test against a single metadata field's value.
// When the field holds a JSON array, every Condition except All and
// ElemMatch is evaluated against each member (exists-a-member-matching
// semantics); when it holds a scalar, it is evaluated
// against that scalar directly.
type Condition interface {
	condition()
}

// Eq tests equality (the implicit condition for a bare scalar value).
type Eq struct{ Value interface{} }

// Ne tests inequality.
type Ne struct{ Value interface{} }

// In tests membership in Values.
type In struct{ Values []interface{} }

// Nin tests non-membership in Values.
type Nin struct{ Values []interface{} }

// Gt tests strictly-greater-than.
type Gt struct{ Value interface{} }

// Gte tests greater-than-or-equal.
type Gte struct{ Value interface{} }

// Lt tests strictly-less-than.
type Lt struct{ Value interface{} }

// Lte tests less-than-or-equal.
type Lte struct{ Value interface{} }

// Glob tests a shell-glob-style string pattern (SQL GLOB semantics).
type Glob struct{ Pattern string }

// All requires the field be an array containing every element of
// Values as a member (not exists-a-member-matching: every given
// element must individually be present).
type All struct{ Values []interface{} }

// ElemMatch requires the field be an array and tests Cond against each
// member individually (distinguishing it from the default
// exists-a-member-matching behavior only in that Cond may itself be
// built from multiple leaf conditions combined with an implicit AND -
// see Parse).
type ElemMatch struct{ Conds []Condition }

func (Eq) condition()        {}
func (Ne) condition()        {}
func (In) condition()        {}
func (Nin) condition()       {}
func (Gt) condition()        {}
func (Gte) condition()       {}
func (Lt) condition()        {}
func (Lte) condition()       {}
func (Glob) condition()      {}
func (All) condition()       {}
func (ElemMatch) condition() {}

// UnknownOperatorError is returned by Parse when a document contains a
// "$"-prefixed key that is not one of the supported combinators or
// leaf conditions.
type UnknownOperatorError struct {
	Operator string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("query: unknown operator %q", e.Operator)
}
