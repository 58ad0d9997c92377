// Package token issues and verifies stateless access tokens for stored images.
//
// Wire format: base64url(payload || tag), where payload is the deterministic
// CBOR encoding of Claims and tag is a 32-byte keyed BLAKE3 MAC over payload.
// CBOR length-prefixes every field, so no field value can be confused with
// a delimiter.
//
// Tokens carry no secret material and are not recorded anywhere, so there is
// no revocation: a leaked token stays valid until ExpiresAt.
package token

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"imgproxy/internal/clock"
	"imgproxy/internal/models"
)

const (
	tagSize = 32

	// MinSecretLength is the shortest accepted signing secret, in bytes.
	MinSecretLength = 32

	maxEncodedLength = 1024
	keyContext       = "imgproxy 2024-01-01 access token v1"
)

var (
	// ErrInvalid covers every malformed, tampered or foreign token.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired is returned only for tokens whose tag verified.
	ErrExpired = errors.New("token: expired")
)

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// Claims is the signed content of a token.
type Claims struct {
	Identity     string `cbor:"1,keyasint"`
	ResourceHash string `cbor:"2,keyasint"`
	ExpiresAt    int64  `cbor:"3,keyasint"`
}

// Expiry returns ExpiresAt as a time.
func (c Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("token: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("token: CBOR decoder initialization failed: " + err.Error())
	}
}

// Codec mints and checks tokens under one server secret.
type Codec struct {
	key   [32]byte
	clock clock.Clock
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the time source used by Verify.
func WithClock(c clock.Clock) Option {
	return func(codec *Codec) {
		if c != nil {
			codec.clock = c
		}
	}
}

// New derives the MAC key from secret. The secret must be at least
// MinSecretLength bytes.
func New(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	c := &Codec{clock: clock.Real()}
	blake3.DeriveKey(keyContext, secret, c.key[:])
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue binds identity, resourceHash and expireAt into an opaque token.
func (c *Codec) Issue(identity, resourceHash string, expireAt time.Time) (string, error) {
	if !identityPattern.MatchString(identity) {
		return "", fmt.Errorf("token: invalid identity")
	}
	if !models.IsValidHash(resourceHash) {
		return "", fmt.Errorf("token: invalid resource hash")
	}
	if expireAt.Unix() <= 0 {
		return "", fmt.Errorf("token: invalid expiry")
	}

	payload, err := encMode.Marshal(Claims{
		Identity:     identity,
		ResourceHash: resourceHash,
		ExpiresAt:    expireAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("token: encoding payload: %w", err)
	}

	tag, err := c.tag(payload)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, len(payload)+tagSize)
	raw = append(raw, payload...)
	raw = append(raw, tag...)
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify checks token against the codec's clock.
func (c *Codec) Verify(token string) (Claims, error) {
	return c.VerifyAt(token, c.clock.Now())
}

// VerifyAt checks the tag in constant time, decodes the claims strictly and
// rejects the token when now is past its expiry. A token is still valid at
// exactly its expiry second.
func (c *Codec) VerifyAt(token string, now time.Time) (Claims, error) {
	var zero Claims
	if token == "" || len(token) > maxEncodedLength {
		return zero, ErrInvalid
	}
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return zero, ErrInvalid
	}
	if len(raw) <= tagSize {
		return zero, ErrInvalid
	}

	split := len(raw) - tagSize
	payload, tag := raw[:split], raw[split:]
	want, err := c.tag(payload)
	if err != nil {
		return zero, err
	}
	if subtle.ConstantTimeCompare(tag, want) != 1 {
		return zero, ErrInvalid
	}

	var claims Claims
	if err := decMode.Unmarshal(payload, &claims); err != nil {
		return zero, ErrInvalid
	}
	if !models.IsValidHash(claims.ResourceHash) || claims.Identity == "" {
		return zero, ErrInvalid
	}

	if now.Unix() > claims.ExpiresAt {
		return zero, ErrExpired
	}
	return claims, nil
}

func (c *Codec) tag(payload []byte) ([]byte, error) {
	h, err := blake3.NewKeyed(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("token: keyed hash initialization: %w", err)
	}
	_, _ = h.Write(payload)
	return h.Sum(nil), nil
}
