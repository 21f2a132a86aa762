// Package auth validates bearer tokens and resolves the caller's identity.
// Tokens are HS256 JWTs minted by the identity service; this package only
// verifies them and normalizes the embedded role at the boundary.
package auth

import (
	"context"
	"fmt"
	"strings"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

type Identity struct {
	UserID string
	Role   model.Role
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyHeader parses an "Authorization: Bearer <token>" header value.
func (v *Verifier) VerifyHeader(header string) (*Identity, error) {
	if header == "" {
		return nil, apperrors.Unauthorized("Missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.Unauthorized("Authorization header must be 'Bearer <token>'")
	}

	return v.Verify(parts[1])
}

func (v *Verifier) Verify(tokenStr string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}

	if claims.Subject == "" {
		return nil, apperrors.Unauthorized("Token is missing a subject")
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return nil, apperrors.Unauthorized("Token carries an unknown role")
	}

	return &Identity{UserID: claims.Subject, Role: role}, nil
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the authenticated identity placed by the auth
// middleware. Handlers behind the middleware can rely on it being present.
func FromContext(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityKey).(*Identity)
	if !ok || id == nil {
		return nil, apperrors.Unauthorized("No authenticated identity")
	}
	return id, nil
}
