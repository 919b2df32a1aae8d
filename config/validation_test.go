package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidatorRules(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(v *Validator)
		wantError bool
	}{
		{"non-empty value", func(v *Validator) { v.RequireNonEmpty("f", "valid") }, false},
		{"empty value", func(v *Validator) { v.RequireNonEmpty("f", "") }, true},
		{"positive value", func(v *Validator) { v.RequirePositive("f", 10) }, false},
		{"zero value", func(v *Validator) { v.RequirePositive("f", 0) }, true},
		{"negative value", func(v *Validator) { v.RequirePositive("f", -5) }, true},
		{"in range", func(v *Validator) { v.ValidateRange("f", 3, 1, 10) }, false},
		{"range upper bound", func(v *Validator) { v.ValidateRange("f", 10, 1, 10) }, false},
		{"above range", func(v *Validator) { v.ValidateRange("f", 11, 1, 10) }, true},
		{"float in range", func(v *Validator) { v.ValidateFloatRange("f", 0.3, 0, 2) }, false},
		{"float above range", func(v *Validator) { v.ValidateFloatRange("f", 2.5, 0, 2) }, true},
		{"valid port", func(v *Validator) { v.ValidatePort("f", 5432) }, false},
		{"invalid port", func(v *Validator) { v.ValidatePort("f", 99999) }, true},
		{"redis db 15", func(v *Validator) { v.ValidateDBNumber("f", 15) }, false},
		{"redis db 16", func(v *Validator) { v.ValidateDBNumber("f", 16) }, true},
		{"allowed option", func(v *Validator) { v.ValidateOneOf("f", "claude", "openai", "claude") }, false},
		{"unknown option", func(v *Validator) { v.ValidateOneOf("f", "gemini", "openai", "claude") }, true},
		{"long enough", func(v *Validator) { v.ValidateMinLength("f", "abcd", 3) }, false},
		{"too short", func(v *Validator) { v.ValidateMinLength("f", "ab", 3) }, true},
		{"positive duration", func(v *Validator) { v.RequirePositiveDuration("f", time.Second) }, false},
		{"zero duration", func(v *Validator) { v.RequirePositiveDuration("f", 0) }, true},
		{"list with entry", func(v *Validator) { v.RequireNonEmptyList("f", []string{"", "model"}) }, false},
		{"blank list", func(v *Validator) { v.RequireNonEmptyList("f", []string{" "}) }, true},
		{"nil list", func(v *Validator) { v.RequireNonEmptyList("f", nil) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.apply(v)
			if got := v.HasErrors(); got != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v (%v)", got, tt.wantError, v.Errors())
			}
		})
	}
}

func TestValidatorMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("field1", "")
	v.RequirePositive("field2", 0)
	v.ValidatePort("field3", 99999)

	if len(v.Errors()) != 3 {
		t.Errorf("Errors() count = %d, want 3", len(v.Errors()))
	}

	err := v.Error()
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Error() = %T, want ValidationErrors", err)
	}
	for _, field := range []string{"field1", "field2", "field3"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error message %q does not mention %s", err.Error(), field)
		}
	}
}

func TestValidatorMerge(t *testing.T) {
	v := NewValidator()
	v.Merge("postgres", ValidatePostgresConfig("", 5432, "postgres", "db", "disable"))
	v.Merge("redis", nil)
	v.Merge("plain", errors.New("boom"))

	errs := v.Errors()
	if len(errs) != 2 {
		t.Fatalf("Errors() = %v, want 2 entries", errs)
	}
	if errs[0].Field != "postgres.host" {
		t.Errorf("merged field = %q, want postgres.host", errs[0].Field)
	}
	if errs[1].Field != "plain" || errs[1].Message != "boom" {
		t.Errorf("plain error merged as %+v", errs[1])
	}
}

func TestValidatePostgresConfig(t *testing.T) {
	tests := []struct {
		name      string
		host      string
		port      int
		user      string
		dbName    string
		sslMode   string
		wantError bool
	}{
		{"valid config", "localhost", 5432, "postgres", "govassist", "disable", false},
		{"missing host", "", 5432, "postgres", "db", "disable", true},
		{"invalid port", "localhost", 99999, "postgres", "db", "disable", true},
		{"missing database", "localhost", 5432, "postgres", "", "disable", true},
		{"invalid ssl mode", "localhost", 5432, "postgres", "db", "invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostgresConfig(tt.host, tt.port, tt.user, tt.dbName, tt.sslMode)
			if hasError := err != nil; hasError != tt.wantError {
				t.Errorf("ValidatePostgresConfig() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateRedisConfig(t *testing.T) {
	tests := []struct {
		name      string
		addr      string
		db        int
		prefix    string
		wantError bool
	}{
		{"valid config", "localhost:6379", 0, "govassist:embedding:", false},
		{"missing addr", "", 0, "govassist:embedding:", true},
		{"invalid db number", "localhost:6379", 16, "govassist:embedding:", true},
		{"missing prefix", "localhost:6379", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRedisConfig(tt.addr, tt.db, tt.prefix)
			if hasError := err != nil; hasError != tt.wantError {
				t.Errorf("ValidateRedisConfig() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
