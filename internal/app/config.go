package app

import (
	"time"

	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
	"github.com/yungbote/snackfleet-backend/internal/utils"
)

type Config struct {
	HTTPAddr       string
	StreamBackend  string // "redis" or "memory"
	ArenaIdleTTL   time.Duration
	SnackCacheSize int
}

func LoadConfig(log *logger.Logger) Config {
	httpAddr := utils.GetEnv("HTTP_ADDR", ":8080", log)
	streamBackend := utils.GetEnv("STREAM_BACKEND", "memory", log)
	arenaIdleTTLSeconds := utils.GetEnvAsInt("ARENA_IDLE_TTL", 120, log)
	snackCacheSize := utils.GetEnvAsInt("SNACK_CACHE_SIZE", 256, log)
	return Config{
		HTTPAddr:       httpAddr,
		StreamBackend:  streamBackend,
		ArenaIdleTTL:   time.Duration(arenaIdleTTLSeconds) * time.Second,
		SnackCacheSize: snackCacheSize,
	}
}
