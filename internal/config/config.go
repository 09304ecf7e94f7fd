package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hexroom/hexroom/internal/game"
)

type Config struct {
	Addr        string // listen address, e.g. ":8080"
	ServiceName string
	GridRadius  int
	DatabaseURL string // empty disables the archive
}

// Load reads .env if present, then the environment. Every field has a
// default; a missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        getenv("HEXROOM_ADDR", ":8080"),
		ServiceName: getenv("HEXROOM_SERVICE", "hexroom"),
		GridRadius:  game.DefaultGridRadius,
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if v := os.Getenv("HEXROOM_GRID_RADIUS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GridRadius = n
		}
	}
	return cfg
}

// Port is the listen port without the host part, for the health payload.
func (c Config) Port() string {
	if i := strings.LastIndex(c.Addr, ":"); i >= 0 {
		return c.Addr[i+1:]
	}
	return c.Addr
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
