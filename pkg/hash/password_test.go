package hash

import (
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "SecurePass123!",
			wantErr:  false,
		},
		{
			name:     "minimum length password",
			password: "Pass123!",
			wantErr:  false,
		},
		{
			name:     "password too short",
			password: "short",
			wantErr:  true,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := Hash(tt.password)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Hash() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Hash() unexpected error = %v", err)
				return
			}

			if hash == "" {
				t.Error("Hash() returned empty hash")
			}

			if hash == tt.password {
				t.Error("Hash() returned unhashed password")
			}

			if !strings.HasPrefix(hash, "$2a$12$") {
				t.Errorf("Hash() unexpected format, got prefix %q", hash[:7])
			}
		})
	}
}

func TestHashIsSalted(t *testing.T) {
	password := "SamePassword123!"

	first, err := Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if first == second {
		t.Error("Hash() produced identical hashes for the same password; missing salt")
	}

	if err := Compare(first, password); err != nil {
		t.Errorf("Compare() failed against first hash: %v", err)
	}
	if err := Compare(second, password); err != nil {
		t.Errorf("Compare() failed against second hash: %v", err)
	}
}

func TestCompare(t *testing.T) {
	password := "CorrectHorse1!"
	hash, err := Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{
			name:      "matching password",
			candidate: password,
			wantErr:   false,
		},
		{
			name:      "wrong password",
			candidate: "WrongHorse1!",
			wantErr:   true,
		},
		{
			name:      "empty candidate",
			candidate: "",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(hash, tt.candidate)

			if tt.wantErr && err == nil {
				t.Error("Compare() expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Compare() unexpected error = %v", err)
			}
		})
	}
}
