package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{
			name:    "simple id",
			id:      "u1",
			wantErr: false,
		},
		{
			name:    "uuid",
			id:      "6f1c2a5e-8a4b-4e8e-9a61-0f2b1d3c4e5f",
			wantErr: false,
		},
		{
			name:    "empty",
			id:      "",
			wantErr: true,
		},
		{
			name:    "contains slash",
			id:      "u1/../c2",
			wantErr: true,
		},
		{
			name:    "contains space",
			id:      "u 1",
			wantErr: true,
		},
		{
			name:    "too long",
			id:      strings.Repeat("a", 65),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChallengeIDReportsField(t *testing.T) {
	err := ValidateChallengeID("")

	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if vErr.Field != "challengeId" {
		t.Errorf("Field = %q, want %q", vErr.Field, "challengeId")
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "Ada Lovelace",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "name too short",
			input:   "A",
			wantErr: true,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
