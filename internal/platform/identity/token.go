// Package identity verifies access tokens issued by the external identity
// collaborator. The ledger never issues tokens; it only extracts the acting
// user from them.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	appctx "kasbook/internal/core/context"
)

// Claims are the token claims the ledger cares about.
type Claims struct {
	jwt.RegisteredClaims
	ActorID string `json:"uid"`
	Name    string `json:"name,omitempty"`
}

// TokenVerifier validates HS256 tokens with a shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the given shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// VerifyToken validates the token and returns the actor it identifies.
func (v *TokenVerifier) VerifyToken(tokenString string) (*appctx.ActorContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	actorID := claims.ActorID
	if actorID == "" {
		actorID = claims.Subject
	}
	if actorID == "" {
		return nil, fmt.Errorf("token carries no actor id")
	}

	return &appctx.ActorContext{
		ActorID: actorID,
		Name:    claims.Name,
	}, nil
}
