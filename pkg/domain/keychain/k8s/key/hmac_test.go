package key_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskflow-dev/tugboat/pkg/domain/keychain/k8s/key"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
	"github.com/taskflow-dev/tugboat/pkg/utils/try"
)

func TestHS256(t *testing.T) {

	ttl := 24 * time.Hour
	testee := key.HS256(ttl, 2048/8)
	before := time.Now().Truncate(time.Second)
	k := try.To(testee.Issue()).OrFatal(t)
	after := time.Now().Truncate(time.Second)

	t.Run("Alg", func(t *testing.T) {
		if got := k.Alg(); got != "HS256" {
			t.Errorf("Expected alg to be %q, but got %q", "HS256", got)
		}
	})

	t.Run("Exp", func(t *testing.T) {
		if got := k.Exp(); got.Before(before.Add(ttl)) || got.After(after.Add(ttl)) {
			t.Errorf(
				"Expected expiration time is between %s to %s, but got %s",
				rfctime.RFC3339(before), rfctime.RFC3339(after), rfctime.RFC3339(got),
			)
		}
	})

	t.Run("Sign and Verify (success)", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    "tugboat",
			Subject:   "ro-0123456789ab",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        "test#1",
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signedString := try.To(token.SignedString(k.ToSign())).OrFatal(t)

		parsed := try.To(jwt.ParseWithClaims(
			signedString, new(jwt.RegisteredClaims),
			func(token *jwt.Token) (interface{}, error) { return k.ToVerify(), nil },
		)).OrFatal(t)

		parsedClaims, ok := parsed.Claims.(*jwt.RegisteredClaims)
		if !ok {
			t.Fatalf("Unexpected claims type: %T", parsed.Claims)
		}
		if parsedClaims.Issuer != claims.Issuer {
			t.Errorf("Expected issuer to be %q, but got %q", claims.Issuer, parsedClaims.Issuer)
		}
		if parsedClaims.Subject != claims.Subject {
			t.Errorf("Expected subject to be %q, but got %q", claims.Subject, parsedClaims.Subject)
		}
	})

	t.Run("Sign and Verify (wrong key)", func(t *testing.T) {
		other := try.To(testee.Issue()).OrFatal(t)

		claims := jwt.RegisteredClaims{
			Issuer:    "tugboat",
			Subject:   "ro-0123456789ab",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signedString := try.To(token.SignedString(k.ToSign())).OrFatal(t)

		if _, err := jwt.ParseWithClaims(
			signedString, new(jwt.RegisteredClaims),
			func(token *jwt.Token) (interface{}, error) { return other.ToVerify(), nil },
		); err == nil {
			t.Error("token verified with a key it was not signed with")
		}
	})

	t.Run("Marshal and Unmarshal", func(t *testing.T) {
		restored := try.To(key.Unmarshal(k.Marshal())).OrFatal(t)
		if !k.Equal(restored) {
			t.Errorf("restored key unmatch: got %s, want %s", restored, k)
		}
	})
}
