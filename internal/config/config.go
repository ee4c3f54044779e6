package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Gateway      GatewayConfig
	AI           AIConfig
	Conversation ConversationConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// GatewayConfig covers the internal gateway-to-backend channel.
// The inbound webhook must only be reachable by the telephony gateway;
// the shared token is the sole gate on that path.
type GatewayConfig struct {
	SharedToken string

	// Asterisk REST Interface, used for per-call media (record and play).
	ARIBaseURL  string
	ARIUsername string
	ARIPassword string

	// SoundsDir is Asterisk's sounds directory (or a shared mount of it);
	// synthesized audio is written there before playback.
	SoundsDir string
}

// AIConfig configures the speech and language providers used by the
// conversation orchestrator.
type AIConfig struct {
	OpenAIAPIKey string
	STTModel     string
	LLMModel     string
	TTSModel     string
	TTSVoice     string

	// Per-stage budgets for one conversation turn.
	STTTimeout time.Duration
	LLMTimeout time.Duration
	TTSTimeout time.Duration

	// MaxRetries applies per stage, transient failures only.
	MaxRetries int
}

// ConversationConfig bounds a single call's AI conversation.
type ConversationConfig struct {
	MaxTurns    int
	MaxDuration time.Duration
	SessionTTL  time.Duration

	// MaxConcurrentCalls caps simultaneous AI loops per tenant.
	MaxConcurrentCalls int

	// CaptureWindow is how long the orchestrator waits for caller audio
	// before counting the turn as silence.
	CaptureWindow time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Gateway.SharedToken = os.Getenv("GATEWAY_SHARED_TOKEN")
	c.Gateway.ARIBaseURL = strings.TrimSpace(os.Getenv("ARI_BASE_URL"))
	c.Gateway.ARIUsername = strings.TrimSpace(os.Getenv("ARI_USERNAME"))
	c.Gateway.ARIPassword = os.Getenv("ARI_PASSWORD")
	c.Gateway.SoundsDir = strings.TrimSpace(os.Getenv("ASTERISK_SOUNDS_DIR"))

	c.AI.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.AI.STTModel = strings.TrimSpace(os.Getenv("STT_MODEL"))
	c.AI.LLMModel = strings.TrimSpace(os.Getenv("LLM_MODEL"))
	c.AI.TTSModel = strings.TrimSpace(os.Getenv("TTS_MODEL"))
	c.AI.TTSVoice = strings.TrimSpace(os.Getenv("TTS_VOICE"))
	c.AI.STTTimeout = mustDuration("AI_STT_TIMEOUT")
	c.AI.LLMTimeout = mustDuration("AI_LLM_TIMEOUT")
	c.AI.TTSTimeout = mustDuration("AI_TTS_TIMEOUT")
	c.AI.MaxRetries = optionalInt("AI_MAX_RETRIES", -1)

	c.Conversation.MaxTurns = optionalInt("MAX_CONVERSATION_TURNS", 0)
	c.Conversation.MaxDuration = mustDuration("MAX_CONVERSATION_DURATION")
	c.Conversation.SessionTTL = mustDuration("SESSION_TTL")
	c.Conversation.MaxConcurrentCalls = optionalInt("MAX_CONCURRENT_CALLS", 0)
	c.Conversation.CaptureWindow = mustDuration("CAPTURE_WINDOW")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Gateway.SharedToken == "" {
			errs = append(errs, errors.New("GATEWAY_SHARED_TOKEN is required in production"))
		}
		if c.AI.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required in production"))
		}
		if c.Gateway.ARIBaseURL == "" {
			errs = append(errs, errors.New("ARI_BASE_URL is required in production"))
		}
	}
	if c.Gateway.SoundsDir == "" {
		c.Gateway.SoundsDir = "/var/lib/asterisk/sounds"
	}

	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		// Default: longer-lived refresh tokens.
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.AI.STTModel == "" {
		c.AI.STTModel = "whisper-1"
	}
	if c.AI.LLMModel == "" {
		c.AI.LLMModel = "gpt-4o-mini"
	}
	if c.AI.TTSModel == "" {
		c.AI.TTSModel = "tts-1"
	}
	if c.AI.TTSVoice == "" {
		c.AI.TTSVoice = "alloy"
	}
	if c.AI.STTTimeout <= 0 {
		c.AI.STTTimeout = 10 * time.Second
	}
	if c.AI.LLMTimeout <= 0 {
		c.AI.LLMTimeout = 15 * time.Second
	}
	if c.AI.TTSTimeout <= 0 {
		c.AI.TTSTimeout = 10 * time.Second
	}
	if c.AI.MaxRetries < 0 {
		c.AI.MaxRetries = 2
	}

	if c.Conversation.MaxTurns <= 0 {
		c.Conversation.MaxTurns = 20
	}
	if c.Conversation.MaxDuration <= 0 {
		c.Conversation.MaxDuration = 5 * time.Minute
	}
	if c.Conversation.SessionTTL <= 0 {
		// Sessions must outlive any legal call; TTL is the only cleanup
		// mechanism when a process dies mid-call.
		c.Conversation.SessionTTL = time.Hour
	}
	if c.Conversation.SessionTTL < c.Conversation.MaxDuration {
		errs = append(errs, errors.New("SESSION_TTL must not be shorter than MAX_CONVERSATION_DURATION"))
	}
	if c.Conversation.MaxConcurrentCalls <= 0 {
		c.Conversation.MaxConcurrentCalls = 10
	}
	if c.Conversation.CaptureWindow <= 0 {
		c.Conversation.CaptureWindow = 8 * time.Second
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
