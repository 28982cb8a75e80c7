package auth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/homevault/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	for _, id := range []uint64{0, 42, math.MaxUint64} {
		tok, err := GenerateToken(id, secret, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken error: %v", err)
		}

		got, err := SessionIDFromToken(tok, secret)
		if err != nil {
			t.Fatalf("SessionIDFromToken error: %v", err)
		}
		if got != id {
			t.Fatalf("session id mismatch: got %d want %d", got, id)
		}
	}
}

func TestSessionIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken(1, secret, -1*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = SessionIDFromToken(tok, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestSessionIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(2, []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = SessionIDFromToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestSessionIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := SessionIDFromToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestSessionIDFromToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID: "7",
	})
	tok, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	_, err = SessionIDFromToken(tok, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestSessionIDFromToken_RequiresExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{SessionID: "7"}).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	_, err = SessionIDFromToken(tok, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestSessionIDFromToken_BadSessionID(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID: "not-a-number",
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	_, err = SessionIDFromToken(tok, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
