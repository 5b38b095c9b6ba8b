package observ

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	loggerOnce sync.Once
	logger     zerolog.Logger
)

func getLogger() zerolog.Logger {
	loggerOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	})
	return logger
}

// Log emits one structured event. The call shape is unchanged from the
// original hand-rolled implementation so every call site in the
// codebase is unaffected by swapping the backend.
func Log(event string, kv map[string]any) {
	l := getLogger()
	evt := l.Info()
	for k, v := range kv {
		evt = evt.Interface(k, v)
	}
	evt.Msg(event)
}

// LogError is Log's counterpart for error-level events (InvariantViolation,
// PersistenceError per spec.md §7).
func LogError(event string, err error, kv map[string]any) {
	l := getLogger()
	evt := l.Error().Err(err)
	for k, v := range kv {
		evt = evt.Interface(k, v)
	}
	evt.Msg(event)
}

// LogWarn is Log's counterpart for UpstreamTransient/UpstreamProtocol
// events per spec.md §7, which are recovered but still worth a signal.
func LogWarn(event string, kv map[string]any) {
	l := getLogger()
	evt := l.Warn()
	for k, v := range kv {
		evt = evt.Interface(k, v)
	}
	evt.Msg(event)
}
