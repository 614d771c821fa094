// Package logx provides the structured logger shared by every kernel
// subsystem. It wraps logrus the way the teacher corpus wires it up for
// storage-engine components: a single package-level instance, field-based
// calls at the call site, and no global mutable configuration beyond level
// and output.
package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the logger used throughout the kernel. It defaults to info level,
// text formatting, and stderr, mirroring common library defaults; embedders
// that want JSON or a custom level call SetLevel/SetOutput/SetJSON.
var Log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// SetLevel parses and applies a level name ("debug", "info", "warn", "error").
// An unrecognized name is ignored and the current level is kept.
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return
	}
	Log.SetLevel(lvl)
}

// SetOutput redirects log output, e.g. to a file opened by the embedder.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// SetJSON switches between the default text formatter and JSON output.
func SetJSON(enabled bool) {
	if enabled {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Fields is a shorthand alias so call sites don't need to import logrus
// directly just to build a field set.
type Fields = logrus.Fields
