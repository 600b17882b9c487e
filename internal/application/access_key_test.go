package application

import (
	"errors"
	"strings"
	"testing"
)

var testArgon2idParams = Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

func TestAccessKeyRoundTrip(t *testing.T) {
	t.Parallel()

	encoded, err := CreateAccessKeyHash("correct horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreateAccessKeyHash returned error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	if err := VerifyAccessKey(encoded, "correct horse"); err != nil {
		t.Fatalf("expected key to verify, got %v", err)
	}
	if err := VerifyAccessKey(encoded, "wrong horse"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	again, err := CreateAccessKeyHash("correct horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreateAccessKeyHash returned error: %v", err)
	}
	if again == encoded {
		t.Fatalf("expected a fresh salt per hash")
	}
}

func TestVerifyAccessKeyRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		encoded string
		wantErr error
	}{
		{name: "too few parts", encoded: "$argon2id$v=19$abc", wantErr: ErrInvalidAccessKeyHash},
		{name: "other algorithm", encoded: "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA", wantErr: ErrInvalidAccessKeyHash},
		{name: "other version", encoded: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA", wantErr: ErrIncompatibleAccessKeyVersion},
		{name: "bad params", encoded: "$argon2id$v=19$memory$c2FsdA$aGFzaA", wantErr: ErrInvalidAccessKeyHash},
		{name: "bad salt", encoded: "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA", wantErr: ErrInvalidAccessKeyHash},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := VerifyAccessKey(tc.encoded, "key"); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateAccessKeyHashRejectsBlank(t *testing.T) {
	t.Parallel()

	_, err := CreateAccessKeyHash("   ", testArgon2idParams)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
