// Package config reads server configuration from the environment.
// Every option has a code default; deployments override via MUD_* variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the server recognizes.
type Config struct {
	Host      string
	Port      int
	StatePath string // world document file
	JournalPath string // SQLite event journal

	TickSeconds time.Duration
	TickEnable  bool

	APMax         int
	NeedDrop      float64
	SocialDrop    float64
	SocialRefill  float64
	SocialRefillEmote float64
	SocialSimTick float64
	SleepDrop     float64
	SleepRefill   float64
	SleepTicks    int
	NeedThreshold float64

	SaveDebounce  time.Duration
	MaxMessageLen int
	RateEnable    bool

	AITimeout           time.Duration
	AIMaxResponseLength int
	AIAPIKey            string
}

// Load reads the environment and returns a Config with defaults applied.
func Load() Config {
	c := Config{
		Host:        envStr("MUD_HOST", "0.0.0.0"),
		Port:        envInt("MUD_PORT", 5000),
		StatePath:   envStr("MUD_STATE_PATH", "data/world_state.json"),
		JournalPath: envStr("MUD_JOURNAL_PATH", "data/journal.db"),

		TickSeconds: time.Duration(envInt("MUD_TICK_SECONDS", 60)) * time.Second,
		TickEnable:  envBool("MUD_TICK_ENABLE", false),

		APMax:             envInt("MUD_AP_MAX", 3),
		NeedDrop:          envFloat("MUD_NEED_DROP", 1.0),
		SocialDrop:        envFloat("MUD_SOCIAL_DROP", 0.5),
		SocialRefill:      envFloat("MUD_SOCIAL_REFILL", 10),
		SocialRefillEmote: envFloat("MUD_SOCIAL_REFILL_EMOTE", 15),
		SocialSimTick:     envFloat("MUD_SOCIAL_SIM_TICK", 5),
		SleepDrop:         envFloat("MUD_SLEEP_DROP", 0.75),
		SleepRefill:       envFloat("MUD_SLEEP_REFILL", 10),
		SleepTicks:        envInt("MUD_SLEEP_TICKS", 3),
		NeedThreshold:     envFloat("MUD_NEED_THRESHOLD", 50),

		SaveDebounce:  time.Duration(envInt("MUD_SAVE_DEBOUNCE_MS", 5000)) * time.Millisecond,
		MaxMessageLen: envInt("MUD_MAX_MESSAGE_LEN", 1000),
		RateEnable:    envBool("MUD_RATE_ENABLE", false),

		AITimeout:           time.Duration(envInt("MUD_AI_TIMEOUT_SECONDS", 30)) * time.Second,
		AIMaxResponseLength: envInt("MUD_AI_MAX_RESPONSE_LENGTH", 10000),
		AIAPIKey:            envStr("MUD_AI_API_KEY", ""),
	}
	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("bad integer in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("bad float in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	slog.Warn("bad boolean in environment, using default", "key", key, "value", v, "default", def)
	return def
}
