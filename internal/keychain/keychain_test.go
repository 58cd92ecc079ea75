package keychain

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSetGetDelete(t *testing.T) {
	keyring.MockInit()

	if _, err := Get(TokenAccount); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get before Set = %v, want ErrNotFound", err)
	}
	if err := Set(TokenAccount, "123:abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := Get(TokenAccount)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "123:abc" {
		t.Errorf("Get = %q, want 123:abc", got)
	}

	if err := Delete(TokenAccount); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := Delete(TokenAccount); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
	if _, err := Get(TokenAccount); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}
