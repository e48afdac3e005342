package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSignatureHeaderMalformed = errors.New("payment: malformed signature header")
	ErrSignatureMismatch        = errors.New("payment: webhook signature mismatch")
	ErrSignatureExpired         = errors.New("payment: webhook timestamp outside tolerance")
)

// SignatureHeader is the parsed form of the gateway's signature header,
// "t=<unix>,v1=<hex>[,v1=<hex>...]". Multiple v1 entries appear while the
// endpoint secret is being rotated.
type SignatureHeader struct {
	Timestamp  time.Time
	Signatures []string
}

func ParseSignatureHeader(header string) (SignatureHeader, error) {
	var out SignatureHeader
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return SignatureHeader{}, ErrSignatureHeaderMalformed
		}
		switch parts[0] {
		case "t":
			unix, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return SignatureHeader{}, ErrSignatureHeaderMalformed
			}
			out.Timestamp = time.Unix(unix, 0)
		case "v1":
			out.Signatures = append(out.Signatures, parts[1])
		}
	}
	if out.Timestamp.IsZero() || len(out.Signatures) == 0 {
		return SignatureHeader{}, ErrSignatureHeaderMalformed
	}
	return out, nil
}

// Verifier checks webhook payload signatures against the endpoint secret.
type Verifier struct {
	Secret    string
	Tolerance time.Duration
}

// Verify parses the header and checks the payload's HMAC. The signed string
// is "<unix timestamp>.<raw body>"; any matching v1 entry accepts.
func (v Verifier) Verify(header string, payload []byte, now time.Time) error {
	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	if v.Tolerance > 0 {
		age := now.Sub(parsed.Timestamp)
		if age > v.Tolerance || age < -v.Tolerance {
			return ErrSignatureExpired
		}
	}
	expected := ComputeSignature(v.Secret, parsed.Timestamp, payload)
	for _, sig := range parsed.Signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

func ComputeSignature(secret string, ts time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
