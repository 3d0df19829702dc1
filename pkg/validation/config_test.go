package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("source")
	cv.Required("path", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("source")
	cv2.Required("path", "records.json")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_RangeInt(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		expectErr bool
	}{
		{"Below range", 0, true},
		{"At min", 1, false},
		{"In range", 50, false},
		{"At max", 100, false},
		{"Above range", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("ranking")
			cv.RangeInt("default_limit", tt.value, 1, 100)

			if cv.HasErrors() != tt.expectErr {
				t.Errorf("RangeInt(%d) hasErrors = %v, want %v", tt.value, cv.HasErrors(), tt.expectErr)
			}
		})
	}
}

func TestConfigValidator_RangeFloat(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		expectErr bool
	}{
		{"Zero", 0, true},
		{"Inside", 0.75, false},
		{"One", 1, false},
		{"NaN", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("report")
			cv.RangeFloat("arbitrage_ratio", tt.value, 0.01, 1)

			if cv.HasErrors() != tt.expectErr {
				t.Errorf("RangeFloat(%v) hasErrors = %v, want %v", tt.value, cv.HasErrors(), tt.expectErr)
			}
		})
	}
}

func TestConfigValidator_PositiveAndNonNegative(t *testing.T) {
	cv := NewConfigValidator("centrality")
	cv.Positive("sample_pivots", 0).NonNegative("workers", -1)

	if len(cv.Errors()) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(cv.Errors()))
	}

	cv2 := NewConfigValidator("centrality")
	cv2.Positive("sample_pivots", 256).NonNegative("workers", 0)
	if cv2.HasErrors() {
		t.Errorf("Expected no errors, got %v", cv2.Errors())
	}
}

func TestConfigValidator_MinDuration(t *testing.T) {
	cv := NewConfigValidator("report")
	cv.MinDuration("module_timeout", 0, time.Millisecond)

	if !cv.HasErrors() {
		t.Error("Expected error for duration below minimum")
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	cv := NewConfigValidator("source")
	cv.OneOf("type", "ftp", []string{"memory", "file"})

	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}

	cv2 := NewConfigValidator("source")
	cv2.OneOf("type", "file", []string{"memory", "file"})

	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_URL(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		schemes   []string
		expectErr bool
	}{
		{"http", "http://competition:8080/levels", []string{"http", "https"}, false},
		{"wrong scheme", "ftp://x", []string{"http", "https"}, true},
		{"relative", "/levels", nil, true},
		{"any scheme", "tcp://127.0.0.1:4500", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("competition")
			cv.URL("url", tt.value, tt.schemes...)

			if cv.HasErrors() != tt.expectErr {
				t.Errorf("URL(%q) hasErrors = %v, want %v", tt.value, cv.HasErrors(), tt.expectErr)
			}
		})
	}
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	sentinel := errors.New("bad")
	cv := NewConfigValidator("quadrant")
	cv.Custom("labels", func() error { return sentinel })
	cv.When(false, func(v *ConfigValidator) { v.Required("never", "") })

	if len(cv.Errors()) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(cv.Errors()))
	}
	if !errors.Is(cv.Validate(), sentinel) {
		t.Error("Custom error should be wrapped")
	}
}

func TestConfigValidator_ValidateJoinsAll(t *testing.T) {
	cv := NewConfigValidator("server")
	cv.Required("host", "").RangeInt("port", 0, 1, 65535)

	err := cv.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"server.host", "server.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	if NewConfigValidator("empty").Validate() != nil {
		t.Error("Expected nil for a validator without errors")
	}
}

type selfValidating struct{ err error }

func (s selfValidating) Validate() error { return s.err }

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(selfValidating{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateConfig(selfValidating{err: errors.New("x")}); err == nil {
		t.Error("expected error")
	}
	if err := ValidateConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
