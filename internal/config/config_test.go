package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voicegate", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_ConversationDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Conversation.MaxTurns != 20 {
		t.Fatalf("expected default max turns 20, got %d", c.Conversation.MaxTurns)
	}
	if c.Conversation.SessionTTL != time.Hour {
		t.Fatalf("expected default session ttl 1h, got %v", c.Conversation.SessionTTL)
	}
	if c.AI.MaxRetries != 0 {
		// Zero means "explicitly no retries"; the -1 sentinel from Load maps
		// to the default of 2. Validate keeps 0 as-is.
		t.Fatalf("expected zero retries preserved, got %d", c.AI.MaxRetries)
	}
}

func TestValidate_SessionTTLMustCoverMaxDuration(t *testing.T) {
	c := validBase()
	c.Conversation.MaxDuration = 2 * time.Hour
	c.Conversation.SessionTTL = time.Hour
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for SESSION_TTL < MAX_CONVERSATION_DURATION")
	}
}
