package signature

import (
	"math/rand"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "jt7NOE43FZPn"

func sampleParams() url.Values {
	return url.Values{
		"merchant_id": {"10000100"},
		"amount":      {"150.00"},
		"item_name":   {"Quote QT-1"},
		"email":       {""},
	}
}

func TestCodec_Canonicalize(t *testing.T) {
	params := sampleParams()
	params.Set(FieldName, "ignored")

	md5c := NewMD5Codec()
	assert.Equal(t,
		"amount=150.00&item_name=Quote+QT-1&merchant_id=10000100&passphrase=jt7NOE43FZPn",
		md5c.Canonicalize(params, testPassphrase))
	assert.Equal(t,
		"amount=150.00&item_name=Quote+QT-1&merchant_id=10000100",
		md5c.Canonicalize(params, ""))

	// HMAC keys the MAC with the secret instead of appending it
	assert.Equal(t,
		"amount=150.00&item_name=Quote+QT-1&merchant_id=10000100",
		NewHMACSHA256Codec().Canonicalize(params, testPassphrase))
}

func TestCodec_SignKnownVectors(t *testing.T) {
	tests := []struct {
		name   string
		codec  *Codec
		secret string
		want   string
	}{
		{"md5 with passphrase", NewMD5Codec(), testPassphrase, "185b45d72cc86d8e17d98d627e438af5"},
		{"md5 without passphrase", NewMD5Codec(), "", "97d8ca166942bda14523549e63b1bbdf"},
		{"hmac-sha256", NewHMACSHA256Codec(), testPassphrase, "83b35902914b8f8696f52ae21265ec12c73174d80b3da78b4272988795ab61d8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.codec.Sign(sampleParams(), tt.secret))
		})
	}
}

func TestCodec_SignIgnoresKeyOrderAndEmptyValues(t *testing.T) {
	c := NewMD5Codec()
	a := c.SignMap(map[string]string{"b": "2", "a": "1", "c": ""}, "s")
	b := c.SignMap(map[string]string{"a": "1", "b": "2"}, "s")
	assert.Equal(t, a, b)
}

func TestCodec_Verify(t *testing.T) {
	for _, codec := range []*Codec{NewMD5Codec(), NewHMACSHA256Codec()} {
		t.Run(string(codec.Algorithm()), func(t *testing.T) {
			params := sampleParams()
			params.Set(FieldName, codec.Sign(params, testPassphrase))
			require.NoError(t, codec.Verify(params, testPassphrase))

			t.Run("upper-case hex accepted", func(t *testing.T) {
				p := cloneValues(params)
				p.Set(FieldName, strings.ToUpper(p.Get(FieldName)))
				assert.NoError(t, codec.Verify(p, testPassphrase))
			})

			t.Run("trailing newline on the signature tolerated", func(t *testing.T) {
				p := cloneValues(params)
				p.Set(FieldName, " "+p.Get(FieldName)+"\n")
				assert.NoError(t, codec.Verify(p, testPassphrase))
			})

			t.Run("inner whitespace rejected", func(t *testing.T) {
				p := cloneValues(params)
				sig := p.Get(FieldName)
				p.Set(FieldName, sig[:8]+" "+sig[8:])
				assert.ErrorIs(t, codec.Verify(p, testPassphrase), ErrSignatureMismatch)
			})

			t.Run("missing signature fails closed", func(t *testing.T) {
				p := cloneValues(params)
				p.Del(FieldName)
				assert.ErrorIs(t, codec.Verify(p, testPassphrase), ErrMissingSignature)
			})

			t.Run("wrong secret", func(t *testing.T) {
				assert.ErrorIs(t, codec.Verify(params, "other"), ErrSignatureMismatch)
			})

			t.Run("tampered amount", func(t *testing.T) {
				p := cloneValues(params)
				p.Set("amount", "1.00")
				assert.ErrorIs(t, codec.Verify(p, testPassphrase), ErrSignatureMismatch)
			})

			t.Run("truncated signature", func(t *testing.T) {
				p := cloneValues(params)
				p.Set(FieldName, p.Get(FieldName)[:10])
				assert.ErrorIs(t, codec.Verify(p, testPassphrase), ErrSignatureMismatch)
			})
		})
	}
}

// Every single-character mutation of a valid signature must be rejected.
func TestCodec_VerifyRejectsEverySingleCharacterMutation(t *testing.T) {
	codec := NewMD5Codec()
	params := sampleParams()
	sig := codec.Sign(params, testPassphrase)

	for i := range sig {
		mutated := []byte(sig)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		p := cloneValues(params)
		p.Set(FieldName, string(mutated))
		assert.Error(t, codec.Verify(p, testPassphrase), "position %d", i)
	}
}

// Round trip over randomly generated parameter sets and secrets.
func TestCodec_RoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := "abcdefghijklmnopqrstuvwxyzABC0123456789 &=+%/_-.éü"

	randString := func(n int) string {
		runes := []rune(alphabet)
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteRune(runes[rng.Intn(len(runes))])
		}
		return b.String()
	}

	for _, codec := range []*Codec{NewMD5Codec(), NewHMACSHA256Codec()} {
		for i := 0; i < 200; i++ {
			params := url.Values{}
			for j := 0; j < 1+rng.Intn(8); j++ {
				params.Set("k"+randString(1+rng.Intn(6)), randString(rng.Intn(12)))
			}
			secret := randString(rng.Intn(16))

			params.Set(FieldName, codec.Sign(params, secret))
			assert.NoError(t, codec.Verify(params, secret), "iteration %d", i)
		}
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abcDEF", "ABCdef"))
	assert.False(t, Equal("abc", "abcd"))
}

func TestNew_FallsBackToHMAC(t *testing.T) {
	assert.Equal(t, HMACSHA256, New("sha1").Algorithm())
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
