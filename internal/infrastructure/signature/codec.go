// Package signature computes and verifies keyed digests over canonicalized
// key/value parameter sets, as used by form-posting payment gateways.
package signature

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // required by the legacy gateway integration
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// FieldName is the parameter that carries the digest and is never signed
const FieldName = "signature"

var (
	ErrMissingSignature  = errors.New("signature: signature field is missing")
	ErrSignatureMismatch = errors.New("signature: signature does not match")
)

// Algorithm selects the digest function
type Algorithm string

const (
	// MD5 with the secret appended as a passphrase parameter.
	// Kept for an existing certified gateway integration.
	MD5 Algorithm = "md5"
	// HMACSHA256 keys the MAC with the secret; recommended for new gateways.
	HMACSHA256 Algorithm = "hmac-sha256"
)

// IsValid returns true if the algorithm is supported
func (a Algorithm) IsValid() bool {
	return a == MD5 || a == HMACSHA256
}

// Codec signs and verifies parameter sets with one algorithm
type Codec struct {
	algorithm Algorithm
}

// New creates a codec; unknown algorithms fall back to HMAC-SHA256
func New(algorithm Algorithm) *Codec {
	if !algorithm.IsValid() {
		algorithm = HMACSHA256
	}
	return &Codec{algorithm: algorithm}
}

// NewMD5Codec creates a codec for the legacy passphrase scheme
func NewMD5Codec() *Codec {
	return New(MD5)
}

// NewHMACSHA256Codec creates a codec for HMAC-SHA256
func NewHMACSHA256Codec() *Codec {
	return New(HMACSHA256)
}

// Algorithm returns the digest algorithm in use
func (c *Codec) Algorithm() Algorithm {
	return c.algorithm
}

// Canonicalize builds the string that is digested: keys sorted, values
// URL-encoded, empty values and the signature field dropped, pairs joined
// with "&". In MD5 mode a non-empty secret is appended as passphrase.
// Only the first value of a repeated key participates.
func (c *Codec) Canonicalize(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for key, values := range params {
		if key == FieldName || len(values) == 0 || values[0] == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(key)))
	}

	if c.algorithm == MD5 && secret != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString("passphrase=")
		b.WriteString(url.QueryEscape(secret))
	}
	return b.String()
}

// Sign returns the lower-case hex digest of params
func (c *Codec) Sign(params url.Values, secret string) string {
	canonical := c.Canonicalize(params, secret)

	switch c.algorithm {
	case MD5:
		sum := md5.Sum([]byte(canonical)) //nolint:gosec
		return hex.EncodeToString(sum[:])
	default:
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(canonical))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

// SignMap is Sign for single-valued parameter maps
func (c *Codec) SignMap(params map[string]string, secret string) string {
	return c.Sign(FromMap(params), secret)
}

// Verify fails closed: a missing signature field is an error, and the
// comparison is case-insensitive over the full length. Surrounding
// whitespace on the received signature is trimmed first; form transports
// sometimes append a newline. Inner characters are never altered.
func (c *Codec) Verify(params url.Values, secret string) error {
	received := strings.TrimSpace(params.Get(FieldName))
	if received == "" {
		return ErrMissingSignature
	}
	expected := c.Sign(params, secret)
	if !Equal(expected, received) {
		return ErrSignatureMismatch
	}
	return nil
}

// Equal compares two hex digests case-insensitively in constant time
func Equal(a, b string) bool {
	x := []byte(strings.ToLower(a))
	y := []byte(strings.ToLower(b))
	return subtle.ConstantTimeCompare(x, y) == 1
}

// FromMap converts a single-valued map to url.Values
func FromMap(params map[string]string) url.Values {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values
}
