package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"kasbook/internal/core/apperror"
	appctx "kasbook/internal/core/context"
)

// TokenVerifier validates access tokens from the identity collaborator.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*appctx.ActorContext, error)
}

// Actor middleware validates the bearer token and populates the acting
// user in the request context. Every mutating ledger operation records
// this actor.
func Actor(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		actor, err := verifier.VerifyToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		c.Set("actor_id", actor.ActorID)

		c.Next()
	}
}

// OptionalActor populates the actor when a valid token is present, but
// doesn't require one. Used in development mode.
func OptionalActor(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.Next()
			return
		}

		if actor, err := verifier.VerifyToken(parts[1]); err == nil && actor != nil {
			ctx := appctx.WithActor(c.Request.Context(), actor)
			c.Request = c.Request.WithContext(ctx)
			c.Set("actor_id", actor.ActorID)
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
