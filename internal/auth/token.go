package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Claims is the identity payload carried inside a signed token.
type Claims struct {
	UserID    string   `json:"id"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Roles     []string `json:"roles,omitempty"`
	Name      string   `json:"name,omitempty"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
}

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Codec signs and verifies compact three-part tokens
// (header.body.signature, base64url JSON, HMAC-SHA256). The format is
// deliberately its own scheme and is not interoperable with JWT tooling.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// NewCodecWithClock allows tests to control the verification clock.
func NewCodecWithClock(secret string, now func() time.Time) *Codec {
	return &Codec{secret: []byte(secret), now: now}
}

func encodeSegment(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Sign stamps iat/exp from the codec clock and returns the signed token.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()

	header, err := encodeSegment(tokenHeader{Alg: "HS256", Typ: "session"})
	if err != nil {
		return "", err
	}
	body, err := encodeSegment(claims)
	if err != nil {
		return "", err
	}

	signingInput := header + "." + body
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + signature, nil
}

// Verify recomputes the signature and checks expiry. It returns nil for any
// malformed, tampered or expired token; it never panics on bad input.
func (c *Codec) Verify(token string) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	expected := mac.Sum(nil)

	presented, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil
	}
	if !hmac.Equal(expected, presented) {
		return nil
	}

	rawBody, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims Claims
	if err := json.Unmarshal(rawBody, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt <= 0 || c.now().Unix() >= claims.ExpiresAt {
		return nil
	}

	return &claims
}

// HashToken derives the session lookup key from a raw token. Sessions store
// this hash, never the token itself.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
