package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "vetvoice", SSLMode: "disable"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Voice: VoiceConfig{
			APIKey:         "key",
			BaseURL:        "https://api.voice.example",
			WebhookBaseURL: "https://app.example.com",
			MaxConcurrent:  2,
			DispatchDelay:  500 * time.Millisecond,
		},
		Queue: QueueConfig{Token: "tok", PublishURL: "https://queue.example/v2/publish"},
		Scheduler: SchedulerConfig{
			ImmediateSecret: "s3cret",
			SweepInterval:   5 * time.Minute,
			SweepGrace:      10 * time.Minute,
		},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	c.DB.SSLMode = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_ProductionRequiresSSLModeAndSigningKey(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "vetvoice"
	c.Auth.JWTAudience = "api"
	c.DB.SSLMode = ""
	c.Queue.SigningKey = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE/QUEUE_SIGNING_KEY")
	}
}

func TestValidate_ImmediateSecretIsMandatory(t *testing.T) {
	c := validBase()
	c.Scheduler.ImmediateSecret = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when IMMEDIATE_EXECUTION_SECRET is missing")
	}
}
