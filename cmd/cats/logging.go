package main

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns an slog logger backed by a charmbracelet handler.
// Summary and per-entry messages are logged at Info and only shown when
// verbose is set; warnings and errors are always shown.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix: "cats",
		Level:  log.WarnLevel,
	})
	if verbose {
		l.SetLevel(log.InfoLevel)
	}
	return slog.New(l)
}
