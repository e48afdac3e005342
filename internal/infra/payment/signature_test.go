package payment_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/infra/payment"
)

func signedHeader(secret string, ts time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), payment.ComputeSignature(secret, ts, payload))
}

func TestVerify(t *testing.T) {
	secret := "whsec_test"
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	v := payment.Verifier{Secret: secret, Tolerance: 5 * time.Minute}

	t.Run("accepts a correctly signed payload", func(t *testing.T) {
		assert.NoError(t, v.Verify(signedHeader(secret, now, payload), payload, now))
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		header := signedHeader(secret, now, payload)
		err := v.Verify(header, []byte(`{"id":"evt_1","type":"payment_intent.canceled"}`), now)
		assert.ErrorIs(t, err, payment.ErrSignatureMismatch)
	})

	t.Run("rejects the wrong secret", func(t *testing.T) {
		header := signedHeader("whsec_other", now, payload)
		assert.ErrorIs(t, v.Verify(header, payload, now), payment.ErrSignatureMismatch)
	})

	t.Run("rejects stale timestamps", func(t *testing.T) {
		old := now.Add(-10 * time.Minute)
		err := v.Verify(signedHeader(secret, old, payload), payload, now)
		assert.ErrorIs(t, err, payment.ErrSignatureExpired)
	})

	t.Run("rejects future timestamps", func(t *testing.T) {
		future := now.Add(10 * time.Minute)
		err := v.Verify(signedHeader(secret, future, payload), payload, now)
		assert.ErrorIs(t, err, payment.ErrSignatureExpired)
	})

	t.Run("zero tolerance skips the age check", func(t *testing.T) {
		loose := payment.Verifier{Secret: secret}
		old := now.Add(-24 * time.Hour)
		assert.NoError(t, loose.Verify(signedHeader(secret, old, payload), payload, now))
	})

	t.Run("any rotated v1 entry accepts", func(t *testing.T) {
		good := payment.ComputeSignature(secret, now, payload)
		stale := payment.ComputeSignature("whsec_old", now, payload)
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(), stale, good)
		assert.NoError(t, v.Verify(header, payload, now))
	})
}

func TestParseSignatureHeader(t *testing.T) {
	t.Run("malformed pairs", func(t *testing.T) {
		for _, header := range []string{
			"",
			"t=123",
			"v1=abc",
			"t=notanumber,v1=abc",
			"garbage",
		} {
			_, err := payment.ParseSignatureHeader(header)
			assert.ErrorIs(t, err, payment.ErrSignatureHeaderMalformed, "header %q", header)
		}
	})

	t.Run("parses timestamp and signatures", func(t *testing.T) {
		h, err := payment.ParseSignatureHeader("t=1700000000, v1=aa, v1=bb")
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), h.Timestamp.Unix())
		assert.Equal(t, []string{"aa", "bb"}, h.Signatures)
	})
}
