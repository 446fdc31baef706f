// Package rlog provides the diagnostic reporter used across r3's core.
//
// Components never write warnings to a global stream themselves;
// they accept a Reporter from the caller and report through
// it. cmd/r3 wires the stderr-backed reporter; tests use Discard.
package rlog

import (
	"fmt"
	"os"
)

// Reporter receives non-fatal diagnostics from core components.
type Reporter interface {
	// Warnf reports a condition the caller should know about but that
	// does not fail the operation (e.g. falling back to a full clone
	// on a pre-2.5 git, or using deprecated query sugar).
	Warnf(format string, args ...interface{})
	// Debugf reports fine-grained tracing, only surfaced when the
	// caller's reporter chooses to show it.
	Debugf(format string, args ...interface{})
}

// Discard is a Reporter that drops everything. It is the default for
// components constructed without an explicit Reporter.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Warnf(string, ...interface{})  {}
func (discard) Debugf(string, ...interface{}) {}

// Stderr returns a Reporter that writes warnings to stderr prefixed
// "r3: warning:", and writes debug lines to stderr only when debug is
// true (cmd/r3 passes its resolved debug setting: --debug, R3_DEBUG,
// or a config file).
func Stderr(debug bool) Reporter {
	return &stderrReporter{debug: debug}
}

type stderrReporter struct {
	debug bool
}

func (r *stderrReporter) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "r3: warning: "+format+"\n", args...)
}

func (r *stderrReporter) Debugf(format string, args ...interface{}) {
	if !r.debug {
		return
	}
	fmt.Fprintf(os.Stderr, "r3: debug: "+format+"\n", args...)
}

// EnvDebug reports whether R3_DEBUG is set to a truthy value (anything
// other than "", "0" or "false").
func EnvDebug() bool {
	v := os.Getenv("R3_DEBUG")
	return v != "" && v != "0" && v != "false"
}
