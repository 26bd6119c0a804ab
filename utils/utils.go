package utils

import (
	"log/slog"
	"sync"
	"time"
)

func Loge(e error, args ...any) {
	if e != nil {
		slog.Error("", append([]any{"error", e}, args...)...)
	}
}

func Logwe(e error, args ...any) {
	if e != nil {
		slog.Warn("", append([]any{"error", e}, args...)...)
	}
}

func Logde(e error, args ...any) {
	if e != nil {
		slog.Debug("", append([]any{"error", e}, args...)...)
	}
}

// LogLimiter drops repeated error logs that arrive faster than Interval.
// The number of suppressed errors is attached to the next emitted record.
type LogLimiter struct {
	Interval   time.Duration
	mu         sync.Mutex
	last       time.Time
	suppressed int
}

func (l *LogLimiter) Logwe(e error, args ...any) (logged bool) {
	if e == nil {
		return false
	}
	l.mu.Lock()
	now := time.Now()
	if !l.last.IsZero() && now.Sub(l.last) < l.Interval {
		l.suppressed++
		l.mu.Unlock()
		return false
	}
	suppressed := l.suppressed
	l.suppressed = 0
	l.last = now
	l.mu.Unlock()

	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}
	Logwe(e, args...)
	return true
}
