package config

import (
	"log/slog"
	"sync"
)

var logger = sync.OnceValue(func() *slog.Logger {
	return slog.Default().With("package", "git/config")
})
