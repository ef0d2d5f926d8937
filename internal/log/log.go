// Package log sets up the leveled loggers shared by every runtime component.
package log

import (
	"os"

	"github.com/op/go-logging"
)

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} ▶ %{module}: %{message}%{color:reset}`,
)

// Setup builds a logger named prefix at the given default level. If
// trySyslog is true and the platform supports it, log lines go to syslog;
// otherwise they go to a colorized stderr backend.
func Setup(prefix string, level logging.Level, trySyslog bool) *logging.Logger {
	backend := syslogBackend(prefix, trySyslog)
	if backend == nil {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
		backend = logging.NewBackendFormatter(backend, stderrFormat)
	}
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")
	log := logging.MustGetLogger(prefix)
	log.SetBackend(leveled)
	return log
}

// Default is a package-level logger for components that don't carry their
// own explicit *logging.Logger field. STARDUST_LOG_SYSLOG follows the same
// "true"/"false"/unset precedence the teacher's krd uses, but defaults to
// off: this runtime is usually embedded in a host application, not run as a
// standalone daemon.
var Default = Setup("stardust", defaultLevel(), useSyslog())

func useSyslog() bool {
	switch os.Getenv("STARDUST_LOG_SYSLOG") {
	case "true":
		return true
	case "false":
		return false
	default:
		return false
	}
}

func defaultLevel() logging.Level {
	switch os.Getenv("STARDUST_LOG_LEVEL") {
	case "debug":
		return logging.DEBUG
	case "warning":
		return logging.WARNING
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}
