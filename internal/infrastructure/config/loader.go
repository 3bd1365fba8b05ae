package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FeatureVars are the runtime toggles the bot reads from the environment.
// Their lower-cased names double as settings keys, so a value stored at
// runtime overrides the environment.
var FeatureVars = []string{
	"MODE",
	"PM_PERMIT",
	"ANTICALL",
	"ANTICALL_MSG",
	"GREET",
	"ANTIDELETE",
	"AUTO_READ_MESSAGES",
	"PRESENCE",
	"AUTO_READ_STATUS",
	"AUTO_LIKE_STATUS",
	"AUTO_STATUS_REPLY",
	"AUTO_STATUS_MSG",
	"AUTO_DOWNLOAD_STATUS",
	"STATUS_ANNOUNCE",
}

type Config struct {
	BotName          string
	OwnerName        string
	OwnerNumber      string
	DeveloperNumbers []string
	Prefixes         []string
	WarnCount        int

	StorageDriver string
	DatabasePath  string
	RedisURL      string

	GatewayURL   string
	GatewayToken string

	ReplyInterval          time.Duration
	StatusReactionInterval time.Duration
	MaxConcurrent          int

	NewsletterJID  string
	NewsletterName string
	ThumbnailURL   string
	SourceURL      string

	LinkMarkers           []string
	ImpersonationPrefixes []string
	ImpersonationIDLength int

	ArchivePerConversation  int
	ArchiveMaxConversations int

	MetricsListen string
	// AdminToken guards the command API and the event stream. Without it
	// both answer 401.
	AdminToken   string
	AdminOrigins []string
	LogLevel     string
	LogFormat    string

	// Features maps lower-cased FeatureVars names to their values.
	Features map[string]string
}

// Load reads envFile (when present) into the environment and builds the
// configuration from it. A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds the configuration from getenv.
func FromLookup(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		BotName:          r.str("BOT_NAME", "guardBot"),
		OwnerName:        r.str("OWNER_NAME", "Owner"),
		OwnerNumber:      digits(r.str("OWNER_NUMBER", "")),
		DeveloperNumbers: r.list("DEVELOPER_NUMBERS", nil),
		Prefixes:         r.list("PREFIXES", []string{"."}),
		WarnCount:        r.int("WARN_COUNT", 3),

		StorageDriver: strings.ToLower(r.str("STORAGE_DRIVER", "sqlite")),
		DatabasePath:  r.str("DATABASE_PATH", "data/guardbot.db"),
		RedisURL:      r.str("REDIS_URL", ""),

		GatewayURL:   r.str("GATEWAY_URL", "ws://127.0.0.1:3999/bridge"),
		GatewayToken: r.str("GATEWAY_TOKEN", ""),

		ReplyInterval:          r.duration("REPLY_INTERVAL", 3*time.Second),
		StatusReactionInterval: r.duration("STATUS_REACTION_INTERVAL", 5*time.Second),
		MaxConcurrent:          r.int("MAX_CONCURRENT_PIPELINES", 64),

		NewsletterJID:  r.str("NEWSLETTER_JID", ""),
		NewsletterName: r.str("NEWSLETTER_NAME", ""),
		ThumbnailURL:   r.str("THUMBNAIL_URL", ""),
		SourceURL:      r.str("SOURCE_URL", ""),

		LinkMarkers:           r.list("LINK_MARKERS", []string{"https://"}),
		ImpersonationPrefixes: r.list("IMPERSONATION_PREFIXES", []string{"BAES", "BAE5"}),
		ImpersonationIDLength: r.int("IMPERSONATION_ID_LENGTH", 16),

		ArchivePerConversation:  r.int("ARCHIVE_PER_CONVERSATION", 200),
		ArchiveMaxConversations: r.int("ARCHIVE_MAX_CONVERSATIONS", 1000),

		MetricsListen: r.str("METRICS_LISTEN", "127.0.0.1:3998"),
		AdminToken:    r.str("ADMIN_TOKEN", ""),
		AdminOrigins:  r.list("ADMIN_ORIGINS", nil),
		LogLevel:      strings.ToLower(r.str("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(r.str("LOG_FORMAT", "text")),

		Features: make(map[string]string, len(FeatureVars)),
	}

	for _, name := range FeatureVars {
		if v := r.str(name, ""); v != "" {
			cfg.Features[strings.ToLower(name)] = v
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: STORAGE_DRIVER must be sqlite or memory, got %q", c.StorageDriver)
	}
	if c.StorageDriver == "sqlite" && c.DatabasePath == "" {
		return fmt.Errorf("config: DATABASE_PATH is required for sqlite storage")
	}
	if c.WarnCount < 1 {
		return fmt.Errorf("config: WARN_COUNT must be at least 1")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("config: MAX_CONCURRENT_PIPELINES must be at least 1")
	}
	return nil
}

type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(name, def string) string {
	if v := strings.TrimSpace(r.getenv(name)); v != "" {
		return v
	}
	return def
}

func (r *reader) list(name string, def []string) []string {
	raw := r.str(name, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (r *reader) int(name string, def int) int {
	raw := r.str(name, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(fmt.Errorf("config: %s: %w", name, err))
		return def
	}
	return n
}

// duration accepts Go durations ("1500ms") and bare seconds ("3").
func (r *reader) duration(name string, def time.Duration) time.Duration {
	raw := r.str(name, "")
	if raw == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(fmt.Errorf("config: %s: %w", name, err))
		return def
	}
	return d
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
