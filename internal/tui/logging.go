package tui

import (
	"log"
	"os"
	"path/filepath"

	"github.com/nicholasglazer/admin-console/internal/config"
)

// OpenLogger opens the file logger. An empty path logs to
// admin-console.log under the config directory. Returns a nil logger when
// no log file can be opened.
func OpenLogger(path string) (*log.Logger, *os.File) {
	if path == "" {
		dir := config.DefaultLogDir()
		if dir == "" {
			return nil, nil
		}
		path = filepath.Join(dir, "admin-console.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil
	}
	return log.New(f, "[admin-console] ", log.LstdFlags|log.Lmicroseconds), f
}

// initLogger initializes the file logger unless one was injected
func (a *App) initLogger() {
	if a.logger != nil {
		return
	}
	a.logger, a.logFile = OpenLogger(a.Config.LogFile)
}

// closeLogger closes the log file if opened
func (a *App) closeLogger() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
