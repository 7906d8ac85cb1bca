package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/tracker"
)

// ConfigPath is the default config location relative to the working directory.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port             string       `yaml:"port"`
	LogLevel         string       `yaml:"logLevel"`
	LogFormat        string       `yaml:"logFormat"`
	StoreDriver      string       `yaml:"storeDriver"`
	DatabaseURL      string       `yaml:"databaseURL"`
	RedisAddr        string       `yaml:"redisAddr"`
	RedisPassword    string       `yaml:"redisPassword"`
	RateLimitBackend string       `yaml:"rateLimitBackend"`
	JWTSecret        string       `yaml:"jwtSecret"`
	JWTIssuer        string       `yaml:"jwtIssuer"`
	JWTAudience      string       `yaml:"jwtAudience"`
	JWTLeeway        string       `yaml:"jwtLeeway"`
	NotifyDriver     string       `yaml:"notifyDriver"`
	NotifyStream     string       `yaml:"notifyStream"`
	AMQPURL          string       `yaml:"amqpURL"`
	AMQPExchange     string       `yaml:"amqpExchange"`
	CORSOrigins      []string     `yaml:"corsOrigins"`
	TrustedProxies   []string     `yaml:"trustedProxyCidrs"`
	Policy           PolicyConfig `yaml:"policy"`
}

// PolicyConfig holds product windows as duration strings ("5s", "6h").
type PolicyConfig struct {
	ChatCooldown     string `yaml:"chatCooldown"`
	ReactionCooldown string `yaml:"reactionCooldown"`
	ReactionWindow   string `yaml:"reactionWindow"`
	ImminentWindow   string `yaml:"imminentWindow"`
	UpcomingWindow   string `yaml:"upcomingWindow"`
	RecentWindow     string `yaml:"recentWindow"`
	RecentLimit      int    `yaml:"recentLimit"`
	UpcomingLimit    int    `yaml:"upcomingLimit"`
}

// Policy is PolicyConfig with durations parsed. Zero values mean "use the
// built-in default".
type Policy struct {
	ChatCooldown     time.Duration
	ReactionCooldown time.Duration
	ReactionWindow   time.Duration
	Buckets          tracker.Windows
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"

	NotifyNone  = "none"
	NotifyRedis = "redis"
	NotifyAMQP  = "amqp"
)

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("LAUNCH_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("LAUNCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LAUNCH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("LAUNCH_STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("LAUNCH_RATE_LIMIT_BACKEND"); v != "" {
		cfg.RateLimitBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("LAUNCH_NOTIFY_DRIVER"); v != "" {
		cfg.NotifyDriver = strings.TrimSpace(v)
	}
	if v := os.Getenv("LAUNCH_NOTIFY_STREAM"); v != "" {
		cfg.NotifyStream = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("LAUNCH_AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = v
	}
	if v := os.Getenv("LAUNCH_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("LAUNCH_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	if v := os.Getenv("LAUNCH_CHAT_COOLDOWN"); v != "" {
		cfg.Policy.ChatCooldown = v
	}
	if v := os.Getenv("LAUNCH_REACTION_COOLDOWN"); v != "" {
		cfg.Policy.ReactionCooldown = v
	}
	if v := os.Getenv("LAUNCH_REACTION_WINDOW"); v != "" {
		cfg.Policy.ReactionWindow = v
	}
	if v := os.Getenv("LAUNCH_RECENT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.RecentLimit = n
		}
	}
	if v := os.Getenv("LAUNCH_UPCOMING_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.UpcomingLimit = n
		}
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StorePostgres
	}
	if cfg.RateLimitBackend == "" {
		cfg.RateLimitBackend = RateLimitRedis
	}
	if cfg.NotifyDriver == "" {
		cfg.NotifyDriver = NotifyNone
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or LAUNCH_PORT)")
	}
	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres store (set in config.yaml or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	switch cfg.RateLimitBackend {
	case RateLimitMemory:
	case RateLimitRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for distributed rate limiting")
		}
	default:
		return fmt.Errorf("config: unknown rateLimitBackend %q", cfg.RateLimitBackend)
	}
	switch cfg.NotifyDriver {
	case NotifyNone:
	case NotifyRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis notifier")
		}
	case NotifyAMQP:
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return errors.New("config: amqpURL is required for the amqp notifier (set in config.yaml or AMQP_URL)")
		}
	default:
		return fmt.Errorf("config: unknown notifyDriver %q", cfg.NotifyDriver)
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("config: jwtSecret must be at least 32 bytes (set in config.yaml or JWT_SECRET)")
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	if _, err := ParsePolicy(cfg.Policy); err != nil {
		return err
	}
	return nil
}

// ParsePolicy converts the YAML policy block into durations.
func ParsePolicy(p PolicyConfig) (Policy, error) {
	var (
		out Policy
		err error
	)
	if out.ChatCooldown, err = parseDuration("policy.chatCooldown", p.ChatCooldown); err != nil {
		return Policy{}, err
	}
	if out.ReactionCooldown, err = parseDuration("policy.reactionCooldown", p.ReactionCooldown); err != nil {
		return Policy{}, err
	}
	if out.ReactionWindow, err = parseDuration("policy.reactionWindow", p.ReactionWindow); err != nil {
		return Policy{}, err
	}
	if out.Buckets.Imminent, err = parseDuration("policy.imminentWindow", p.ImminentWindow); err != nil {
		return Policy{}, err
	}
	if out.Buckets.Upcoming, err = parseDuration("policy.upcomingWindow", p.UpcomingWindow); err != nil {
		return Policy{}, err
	}
	if out.Buckets.Recent, err = parseDuration("policy.recentWindow", p.RecentWindow); err != nil {
		return Policy{}, err
	}
	if p.RecentLimit < 0 || p.UpcomingLimit < 0 {
		return Policy{}, errors.New("config: policy limits must be >= 0")
	}
	out.Buckets.RecentLimit = p.RecentLimit
	out.Buckets.UpcomingLimit = p.UpcomingLimit
	if out.Buckets.Imminent > 0 && out.Buckets.Upcoming > 0 && out.Buckets.Upcoming < out.Buckets.Imminent {
		return Policy{}, errors.New("config: policy.upcomingWindow must not be shorter than policy.imminentWindow")
	}
	return out, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", field, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", field)
	}
	return dur, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
