package token

import (
	"errors"
	"testing"
	"time"

	"sessioncore/internal/security"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewHMACCodec([]byte("unit-test-master-secret"), "test-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	return c
}

func TestSignVerify_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, typ := range []Type{TypeAccess, TypeRefresh} {
		signed, expiry, err := c.Sign("user-42", typ, 15*time.Minute, now)
		if err != nil {
			t.Fatalf("Sign(%s): %v", typ, err)
		}
		if !expiry.Equal(now.Add(15 * time.Minute)) {
			t.Errorf("expiry = %v, want %v", expiry, now.Add(15*time.Minute))
		}
		subject, gotExpiry, err := c.Verify(signed, typ, now)
		if err != nil {
			t.Fatalf("Verify(%s): %v", typ, err)
		}
		if subject != "user-42" {
			t.Errorf("subject = %q, want %q", subject, "user-42")
		}
		if !gotExpiry.Equal(expiry) {
			t.Errorf("verified expiry = %v, want %v", gotExpiry, expiry)
		}
	}
}

func TestVerify_TypeMismatch(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	access, _, err := c.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, _, err := c.Verify(access, TypeRefresh, now); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Verify access as refresh: err = %v, want ErrTypeMismatch", err)
	}

	refresh, _, err := c.Sign("user-1", TypeRefresh, time.Hour, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, _, err := c.Verify(refresh, TypeAccess, now); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Verify refresh as access: err = %v, want ErrTypeMismatch", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	signed, expiry, err := c.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	// Exactly at expiry counts as expired.
	if _, _, err := c.Verify(signed, TypeAccess, expiry); !errors.Is(err, ErrExpired) {
		t.Errorf("Verify at expiry: err = %v, want ErrExpired", err)
	}
	if _, _, err := c.Verify(signed, TypeAccess, expiry.Add(time.Second)); !errors.Is(err, ErrExpired) {
		t.Errorf("Verify past expiry: err = %v, want ErrExpired", err)
	}
	// One nanosecond before expiry is still valid.
	if _, _, err := c.Verify(signed, TypeAccess, expiry.Add(-time.Nanosecond)); err != nil {
		t.Errorf("Verify just before expiry: %v", err)
	}
}

func TestVerify_TypeCheckedBeforeExpiry(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	signed, expiry, err := c.Sign("user-1", TypeRefresh, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	// Both mistyped and expired: the type verdict wins.
	if _, _, err := c.Verify(signed, TypeAccess, expiry.Add(time.Hour)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewHMACCodec([]byte("a-different-secret"), "test-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	now := time.Now().UTC()

	signed, _, err := other.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, _, err := c.Verify(signed, TypeAccess, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, _, err := c.Verify(tok, TypeAccess, now); !errors.Is(err, ErrBadSignature) {
			t.Errorf("Verify(%q): err = %v, want ErrBadSignature", tok, err)
		}
	}
}

func TestVerify_IssuerAudienceMismatch(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()

	otherIssuer, err := NewHMACCodec([]byte("unit-test-master-secret"), "other-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	signed, _, err := otherIssuer.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, _, err := c.Verify(signed, TypeAccess, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("issuer mismatch: err = %v, want ErrBadSignature", err)
	}

	otherAudience, err := NewHMACCodec([]byte("unit-test-master-secret"), "test-issuer", "other-audience")
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	signed, _, err = otherAudience.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, _, err := c.Verify(signed, TypeAccess, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("audience mismatch: err = %v, want ErrBadSignature", err)
	}
}

func TestNewHMACCodec_SameSecretInteroperates(t *testing.T) {
	a, err := NewHMACCodec([]byte("shared-secret"), "test-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	b, err := NewHMACCodec([]byte("shared-secret"), "test-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	now := time.Now().UTC()

	signed, _, err := a.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, _, err := b.Verify(signed, TypeAccess, now); err != nil {
		t.Errorf("codecs from the same secret should interoperate: %v", err)
	}
}

func TestNewHMACCodec_EmptySecret(t *testing.T) {
	if _, err := NewHMACCodec(nil, "iss", "aud"); err == nil {
		t.Error("NewHMACCodec with empty secret should return error")
	}
}

func TestNewKeyPairCodec_RSA(t *testing.T) {
	signer, pub, err := security.NewTestKeyPair()
	if err != nil {
		t.Fatalf("NewTestKeyPair: %v", err)
	}
	c, err := NewKeyPairCodec(signer, pub, "test-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewKeyPairCodec: %v", err)
	}
	now := time.Now().UTC()

	signed, _, err := c.Sign("user-7", TypeRefresh, time.Hour, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	subject, _, err := c.Verify(signed, TypeRefresh, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "user-7" {
		t.Errorf("subject = %q, want %q", subject, "user-7")
	}
}

func TestVerify_RejectsHMACTokenOnKeyPairCodec(t *testing.T) {
	signer, pub, err := security.NewTestKeyPair()
	if err != nil {
		t.Fatalf("NewTestKeyPair: %v", err)
	}
	rsaCodec, err := NewKeyPairCodec(signer, pub, "test-issuer", "test-audience")
	if err != nil {
		t.Fatalf("NewKeyPairCodec: %v", err)
	}
	hmacCodec := newTestCodec(t)
	now := time.Now().UTC()

	signed, _, err := hmacCodec.Sign("user-1", TypeAccess, time.Minute, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	// Alg confusion: HS256 token must not verify against the RSA codec.
	if _, _, err := rsaCodec.Verify(signed, TypeAccess, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}
