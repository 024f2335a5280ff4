package session

import (
	"crypto/rand"
	"net/http"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "resumeforge"

// cookieClaims is the payload of the session cookie. It references the stored session
// and carries nothing else.
type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieCodec signs and verifies the session cookie
type CookieCodec struct {
	name   string
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCookieCodec(name string, key []byte, ttl time.Duration, secure bool) *CookieCodec {
	return &CookieCodec{name: name, key: key, ttl: ttl, secure: secure, now: time.Now}
}

// Name returns the cookie name
func (c *CookieCodec) Name() string {
	return c.name
}

// Sign returns a compact HS256 JWT referencing sessionID
func (c *CookieCodec) Sign(sessionID string) (string, error) {
	now := c.now()
	claims := cookieClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   cookieIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeSessionStore, "failed to sign session cookie", err)
	}
	return signed, nil
}

// Verify returns the session id of a valid cookie value. Tampered, expired or foreign
// tokens report ok=false.
func (c *CookieCodec) Verify(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	var claims cookieClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", false
	}
	return claims.SessionID, true
}

// Read extracts the session id from the request's cookie
func (c *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return "", false
	}
	return c.Verify(cookie.Value)
}

// Write sets the signed cookie for sessionID
func (c *CookieCodec) Write(w http.ResponseWriter, sessionID string) error {
	value, err := c.Sign(sessionID)
	if err != nil {
		return err
	}
	cookie := &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if c.ttl > 0 {
		cookie.MaxAge = int(c.ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Clear expires the cookie in the browser
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SigningKey returns the configured key, or a random per-process key with a warning.
// A random key invalidates every cookie on restart.
func SigningKey(cfg *config.Config, logger *errors.Logger) ([]byte, error) {
	if cfg.Session.SigningKey != "" {
		if err := cfg.ValidateSigningKey(); err != nil {
			return nil, err
		}
		return []byte(cfg.Session.SigningKey), nil
	}

	key := make([]byte, config.MinSigningKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidConfig, "failed to generate session signing key", err)
	}
	if logger != nil {
		logger.Warn("No session signing key configured; generated a per-process key. Sessions will not survive a restart.",
			"setting", "session.signingKey")
	}
	return key, nil
}
