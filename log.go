package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// closeLog releases the log file opened by setupLog, if any.
var closeLog = func() error { return nil }

// setupLog configures the default logger: stderr, human readable on a
// terminal and JSON otherwise, plus an optional log file in append mode.
func setupLog(debug bool, logFile string) error {
	var w io.Writer = os.Stderr

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("unable to create log dir: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("unable to open log file: %w", err)
		}
		closeLog = f.Close
		w = io.MultiWriter(os.Stderr, f)
	}

	log.SetOutput(w)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	if logFile != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetFormatter(log.JSONFormatter)
	}

	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return nil
}
