package password

import (
	"errors"
	"strings"
	"testing"
)

func lightConfig() Config {
	return Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(lightConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("admin123", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}

	ok, err = hasher.Verify("admin124", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashSaltsEachCall(t *testing.T) {
	hasher, err := NewArgon2(lightConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	a, _ := hasher.Hash("same-password")
	b, _ := hasher.Hash("same-password")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestHashLengthBounds(t *testing.T) {
	cfg := lightConfig()
	cfg.MinLength = 10
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	if _, err := hasher.Hash("short"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("a", maxPassBytes+1)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if _, err := hasher.Hash("exactly-10"); err != nil {
		t.Fatalf("expected 10-byte password to hash: %v", err)
	}
}

func TestDefaultMinLengthIsEight(t *testing.T) {
	hasher, err := NewArgon2(lightConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	if _, err := hasher.Hash("1234567"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected 7 bytes to be rejected, got %v", err)
	}
	if _, err := hasher.Hash("12345678"); err != nil {
		t.Fatalf("expected 8 bytes to be accepted: %v", err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher, err := NewArgon2(lightConfig())
	if err != nil {
		t.Fatalf("NewArgon2(old) error: %v", err)
	}
	hash, err := oldHasher.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := lightConfig()
	stronger.Time = 2
	newHasher, err := NewArgon2(stronger)
	if err != nil {
		t.Fatalf("NewArgon2(new) error: %v", err)
	}

	if up, err := newHasher.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("expected upgrade for weaker hash, got %v, %v", up, err)
	}
	if up, err := oldHasher.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("expected no upgrade for current params, got %v, %v", up, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher, err := NewArgon2(lightConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	cases := []string{
		"not-a-phc-hash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	}
	for _, encoded := range cases {
		if _, err := hasher.Verify("password", encoded); err == nil {
			t.Fatalf("expected %q to be rejected", encoded)
		}
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cfg := lightConfig()
	cfg.Memory = 1024
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
	cfg = lightConfig()
	cfg.MinLength = -1
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected negative minimum length to be rejected")
	}
}
