//go:build !windows

package log

import (
	"log/syslog"

	"github.com/op/go-logging"
)

func syslogBackend(prefix string, try bool) logging.Backend {
	if !try {
		return nil
	}
	backend, err := logging.NewSyslogBackendPriority(prefix, syslog.LOG_NOTICE)
	if err != nil {
		return nil
	}
	return backend
}
