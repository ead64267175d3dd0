// Package config reads the client configuration from the environment.
// A .env file, when present, is loaded by the entry point before this runs.
package config

import (
	"os"
	"strconv"
	"time"

	"javanese-chess-client/internal/weights"
)

type Config struct {
	APIBaseURL string
	WSBaseURL  string

	PlayerName   string
	SnapshotPath string

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	BotTriggerDelay   time.Duration

	PracticeAddr string
	LogLevel     string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func Load() Config {
	return Config{
		APIBaseURL:        getenv("API_BASE_URL", "http://localhost:8080"),
		WSBaseURL:         getenv("WS_BASE_URL", "ws://localhost:8080"),
		PlayerName:        getenv("PLAYER_NAME", "Player"),
		SnapshotPath:      getenv("SNAPSHOT_PATH", defaultSnapshotPath()),
		ReconnectAttempts: getenvInt("RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:    getenvDuration("RECONNECT_DELAY", 3*time.Second),
		BotTriggerDelay:   getenvDuration("BOT_TRIGGER_DELAY", 1500*time.Millisecond),
		PracticeAddr:      getenv("PRACTICE_ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
}

// BotWeights returns the heuristic weight set with every major knob
// overridable through the W_* environment variables.
func BotWeights() weights.Weights {
	w := weights.Default()
	w.Win = getenvInt("W_WIN", w.Win)
	w.DetectThreat3 = getenvInt("W_THREAT", w.DetectThreat3)
	w.OverwriteThreat = getenvInt("W_OVERWRITE", w.OverwriteThreat)
	w.BlockOpponentPath = getenvInt("W_BLOCK", w.BlockOpponentPath)
	w.Create3InRow = getenvInt("W_BUILD", w.Create3InRow)
	w.BlockThreatMiddle = getenvInt("BONUS_THREAT_MID", w.BlockThreatMiddle)
	w.BlockThreatEdge = getenvInt("BONUS_THREAT_EDGE", w.BlockThreatEdge)
	w.PlaySmallestCard = getenvInt("BONUS_SMALLEST", w.PlaySmallestCard)
	return w
}

func defaultSnapshotPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return dir + "/javanese-chess/session.json"
}
