package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// LLM provider
	LLMProvider    string // anthropic, openai, ollama
	AnthropicKey   string // API key (X-Api-Key header)
	AnthropicToken string // OAuth token (Authorization: Bearer header)
	OpenAIKey      string
	LLMModel       string
	OllamaBaseURL  string

	// Chat host
	DiscordToken string
	AdminUsers   []string // user IDs allowed to run destructive subcommands

	DatabasePath string

	// Persona fed to the context loader
	BotName    string
	Persona    string
	ReplyStyle string
	Interests  string

	// Declared preference anchors (HH:MM, empty = unset)
	WakeTime      string
	SleepTime     string
	BreakfastTime string
	LunchTime     string
	DinnerTime    string

	// Generation
	InjectSchedule   bool
	AutoGenerate     bool
	AutoScheduleTime string // HH:MM
	Timezone         string // IANA name
	UseMultiRound    bool
	MaxRounds        int
	QualityThreshold float64
	MinActivities    int
	MaxActivities    int
	MinDescLen       int
	MaxDescLen       int
	GapThresholdMin  int
	CustomPrompt     string
	LLMTimeoutSec    int

	// Cache and retention
	CacheTTLSec  int
	CacheMaxSize int
	CleanupDays  int
}

func Load() *Config {
	_ = godotenv.Load() // ignore error if no .env

	return &Config{
		LLMProvider:    envOr("LLM_PROVIDER", "anthropic"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken: os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		OllamaBaseURL:  envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),

		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		AdminUsers:   splitList(os.Getenv("ADMIN_USERS")),

		DatabasePath: envOr("DATABASE_PATH", "./planbot.db"),

		BotName:    envOr("BOT_NAME", "planbot"),
		Persona:    envOr("PERSONA", "a cheerful college student who keeps a busy but relaxed daily routine"),
		ReplyStyle: os.Getenv("REPLY_STYLE"),
		Interests:  os.Getenv("INTERESTS"),

		WakeTime:      envOr("WAKE_TIME", "07:30"),
		SleepTime:     envOr("SLEEP_TIME", "23:00"),
		BreakfastTime: envOr("BREAKFAST_TIME", "08:00"),
		LunchTime:     envOr("LUNCH_TIME", "12:00"),
		DinnerTime:    envOr("DINNER_TIME", "18:00"),

		InjectSchedule:   envBool("INJECT_SCHEDULE", true),
		AutoGenerate:     envBool("AUTO_GENERATE", true),
		AutoScheduleTime: envOr("AUTO_SCHEDULE_TIME", "00:30"),
		Timezone:         envOr("TIMEZONE", "UTC"),
		UseMultiRound:    envBool("USE_MULTI_ROUND", true),
		MaxRounds:        envInt("MAX_ROUNDS", 2),
		QualityThreshold: envFloat("QUALITY_THRESHOLD", 0.85),
		MinActivities:    envInt("MIN_ACTIVITIES", 8),
		MaxActivities:    envInt("MAX_ACTIVITIES", 15),
		MinDescLen:       envInt("MIN_DESCRIPTION_LENGTH", 15),
		MaxDescLen:       envInt("MAX_DESCRIPTION_LENGTH", 60),
		GapThresholdMin:  envInt("GAP_THRESHOLD_MINUTES", 30),
		CustomPrompt:     os.Getenv("CUSTOM_PROMPT"),
		LLMTimeoutSec:    envInt("LLM_TIMEOUT_SECONDS", 180),

		CacheTTLSec:  envInt("CACHE_TTL", 300),
		CacheMaxSize: envInt("CACHE_MAX_SIZE", 100),
		CleanupDays:  envInt("CLEANUP_OLD_GOALS_DAYS", 30),
	}
}

// Validate rejects configurations outside the supported ranges before any
// component starts using them.
func (c *Config) Validate() error {
	if c.MaxRounds < 1 || c.MaxRounds > 3 {
		return fmt.Errorf("MAX_ROUNDS must be 1-3, got %d", c.MaxRounds)
	}
	if c.QualityThreshold < 0.80 || c.QualityThreshold > 0.90 {
		return fmt.Errorf("QUALITY_THRESHOLD must be 0.80-0.90, got %.2f", c.QualityThreshold)
	}
	if c.MinActivities < 1 || c.MinActivities > c.MaxActivities {
		return fmt.Errorf("activity range %d-%d is invalid", c.MinActivities, c.MaxActivities)
	}
	if c.MinDescLen < 5 || c.MinDescLen > c.MaxDescLen {
		return fmt.Errorf("description length range %d-%d is invalid", c.MinDescLen, c.MaxDescLen)
	}
	if c.GapThresholdMin < 1 {
		return fmt.Errorf("GAP_THRESHOLD_MINUTES must be positive, got %d", c.GapThresholdMin)
	}
	if c.CacheMaxSize < 1 {
		return fmt.Errorf("CACHE_MAX_SIZE must be positive, got %d", c.CacheMaxSize)
	}
	if c.LLMTimeoutSec < 10 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be at least 10, got %d", c.LLMTimeoutSec)
	}
	if _, err := ParseClock(c.AutoScheduleTime); err != nil {
		return fmt.Errorf("AUTO_SCHEDULE_TIME: %w", err)
	}
	return nil
}

// ParseClock parses a strict HH:MM wall-clock string into minutes from
// midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return h*60 + m, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
