package auth

import (
	"errors"
	"testing"

	"github.com/danmuck/cryptochan/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "empty input denied", stored: "abc", input: "", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "prefix denied", stored: "abc", input: "ab", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate([]byte(tc.input))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)

	validator := FuncValidator(func(token []byte) error {
		if string(token) != "ok" {
			return ErrUnauthorized
		}
		return nil
	})

	if err := validator.Validate([]byte("ok")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := validator.Validate([]byte("bad")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestForToken(t *testing.T) {
	testlog.Start(t)

	if v := ForToken(""); v != nil {
		t.Fatalf("empty token should disable auth, got %T", v)
	}
	v := ForToken("secret")
	if v == nil {
		t.Fatalf("expected a validator")
	}
	if err := v.Validate([]byte("secret")); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
