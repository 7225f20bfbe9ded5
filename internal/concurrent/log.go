package concurrent

import (
	"log/slog"
	"sync"
)

// Called from worker goroutines, so initialized once.
var logger = sync.OnceValue(func() *slog.Logger {
	return slog.Default().With("package", "concurrent")
})
