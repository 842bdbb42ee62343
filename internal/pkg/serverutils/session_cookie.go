package serverutils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Session credentials are a signed cookie carrying the session id, so the
// browser (or any cookie-jar client) re-presents them automatically.

const sessionCookieMaxAge = 30 * 24 * time.Hour

type SessionCookie struct {
	secret []byte
	name   string
}

func NewSessionCookie(secret, name string) *SessionCookie {
	return &SessionCookie{secret: []byte(secret), name: name}
}

// Read returns the session id from the request cookie, or "" when the cookie
// is absent or fails verification.
func (s *SessionCookie) Read(ctx *fiber.Ctx) string {
	tokenStr := ctx.Cookies(s.name)
	if tokenStr == "" {
		return ""
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sessionID, _ := claims["session_id"].(string)
	return sessionID
}

// Write sets (or replaces) the session cookie for sessionID.
func (s *SessionCookie) Write(ctx *fiber.Ctx, sessionID string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"iat":        time.Now().Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return err
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     s.name,
		Value:    signed,
		Expires:  time.Now().Add(sessionCookieMaxAge),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	return nil
}
