package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/tienminhktvn/dataops-project/errors"
)

func TestValidator_Required(t *testing.T) {
	v := New().Required("pipeline.id", "  ")
	if !v.HasErrors() {
		t.Fatal("expected blank value to fail")
	}
	if v.Errors()[0].Field != "pipeline.id" {
		t.Errorf("unexpected field %q", v.Errors()[0].Field)
	}
	if New().Required("pipeline.id", "dbt").HasErrors() {
		t.Error("expected non-blank value to pass")
	}
}

func TestValidator_UUID(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		required bool
		wantErr  bool
	}{
		{"optional empty", "", false, false},
		{"optional valid", "3f2c1a4e-6b7d-4e8f-9a0b-1c2d3e4f5a6b", false, false},
		{"optional garbage", "not-a-uuid", false, true},
		{"nil uuid", "00000000-0000-0000-0000-000000000000", false, true},
		{"required empty", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			if tt.required {
				v.RequiredUUID("run_id", tt.value)
			} else {
				v.OptionalUUID("run_id", tt.value)
			}
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", v.HasErrors(), tt.wantErr, v.Errors())
			}
		})
	}
}

func TestValidator_TaskID(t *testing.T) {
	for _, ok := range []string{"run_bronze_layer", "dbt.docs", "a-1"} {
		if New().TaskID("id", ok).HasErrors() {
			t.Errorf("expected %q to be accepted", ok)
		}
	}
	for _, bad := range []string{"", "_leading", "has space", "semi;colon"} {
		if !New().TaskID("id", bad).HasErrors() {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestValidator_Numbers(t *testing.T) {
	v := New().Min("retries", -1, 0).Range("max_active_runs", 2, 1, 1)
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors())
	}
	if New().Min("retries", 0, 0).Range("max_active_runs", 1, 1, 1).HasErrors() {
		t.Error("expected boundary values to pass")
	}
}

func TestValidator_Durations(t *testing.T) {
	v := New().Positive("timeout", 0).NotNegative("delay", -time.Second)
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors())
	}
	if New().Positive("timeout", time.Minute).NotNegative("delay", 0).HasErrors() {
		t.Error("expected valid durations to pass")
	}
}

func TestValidator_OneOf(t *testing.T) {
	allowed := []string{"shell", "docker"}
	if New().OneOf("runner", "docker", allowed).HasErrors() {
		t.Error("expected docker to be accepted")
	}
	if New().OneOf("runner", "", allowed).HasErrors() {
		t.Error("expected empty to be skipped")
	}
	v := New().OneOf("runner", "k8s", allowed)
	if !v.HasErrors() || !strings.Contains(v.Errors()[0].Message, "shell, docker") {
		t.Errorf("unexpected errors %v", v.Errors())
	}
}

func TestValidator_Custom(t *testing.T) {
	if !New().Custom(false, "schedule", "invalid cron").HasErrors() {
		t.Error("expected false condition to record an error")
	}
}

func TestValidator_Validate_AppError(t *testing.T) {
	err := New().Required("a", "").Min("b", 0, 1).Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if !strings.Contains(err.Error(), "a: is required; b: must be at least 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if New().Validate() != nil {
		t.Error("expected nil for no errors")
	}
}

type sample struct {
	ID          string `mapstructure:"id" validate:"required,taskid"`
	Runner      string `mapstructure:"runner" validate:"oneof=shell docker"`
	MaxParallel int    `json:"max_parallel" validate:"gte=0"`
	Nested      nested `mapstructure:"notify"`
}

type nested struct {
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`
}

func TestValidate_Struct_Valid(t *testing.T) {
	s := sample{ID: "dbt_dataops_pipeline", Runner: "shell", Nested: nested{WebhookURL: "https://hooks.example.com/x"}}
	if err := Validate(s); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Struct_Invalid(t *testing.T) {
	s := sample{ID: "", Runner: "ssh", MaxParallel: -1, Nested: nested{WebhookURL: "nope"}}
	err := Validate(s)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{
		"id: is required",
		"runner: must be one of: shell docker",
		"max_parallel: must be at least 0",
		"notify.webhook_url: must be a valid URL",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidate_Struct_TaskIDTag(t *testing.T) {
	err := Validate(sample{ID: "bad id", Runner: "shell"})
	if err == nil || !strings.Contains(err.Error(), "id: is not a valid identifier") {
		t.Errorf("expected taskid failure, got %v", err)
	}
}

func TestParseRunID(t *testing.T) {
	if _, err := ParseRunID("3f2c1a4e-6b7d-4e8f-9a0b-1c2d3e4f5a6b"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseRunID(""); err == nil {
		t.Error("expected error for empty id")
	}
	if _, err := ParseRunID("xyz"); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxParallel"); got != "max_parallel" {
		t.Errorf("got %q", got)
	}
}
