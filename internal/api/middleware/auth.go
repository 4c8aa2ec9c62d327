// Package middleware holds the gin middleware shared by every API route.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/service/access"
)

const actorKey = "actor"

var errInvalidClaims = errors.New("invalid token claims")

// Auth verifies HS256 bearer tokens and stores the caller as an access.Actor.
type Auth struct {
	secret           []byte
	issuer           string
	systemReviewerID uint
}

// NewAuth creates the bearer token middleware. An empty issuer is not checked.
func NewAuth(secret, issuer string, systemReviewerID uint) *Auth {
	return &Auth{secret: []byte(secret), issuer: issuer, systemReviewerID: systemReviewerID}
}

// Sign issues a token for a user. Used by the CLI and tests.
func (a *Auth) Sign(userID uint, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a token and returns the actor it names.
func (a *Auth) Parse(tokenString string) (access.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return access.Actor{}, err
	}
	if !token.Valid {
		return access.Actor{}, errInvalidClaims
	}

	userID, err := userIDClaim(claims)
	if err != nil {
		return access.Actor{}, err
	}
	if userID == a.systemReviewerID {
		return access.Actor{}, fmt.Errorf("%w: reserved user id", errInvalidClaims)
	}

	role, _ := claims["role"].(string)
	if !models.ValidRole(role) {
		return access.Actor{}, fmt.Errorf("%w: unknown role %q", errInvalidClaims, role)
	}

	return access.Actor{UserID: userID, Role: role}, nil
}

// userIDClaim reads the user id from "sub", falling back to "user_id".
func userIDClaim(claims jwt.MapClaims) (uint, error) {
	raw, ok := claims["sub"]
	if !ok {
		raw, ok = claims["user_id"]
	}
	if !ok {
		return 0, fmt.Errorf("%w: missing subject", errInvalidClaims)
	}

	switch v := raw.(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: subject %q", errInvalidClaims, v)
		}
		return uint(id), nil
	case float64:
		if v < 0 || v != float64(uint32(v)) {
			return 0, fmt.Errorf("%w: subject %v", errInvalidClaims, v)
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("%w: subject type %T", errInvalidClaims, raw)
	}
}

// Authenticate rejects requests without a valid bearer token.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		actor, err := a.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin rejects non-admin actors. It must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !actor.IsAdmin() {
			abort(c, http.StatusForbidden, "Admin role required")
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor of the request.
func ActorFrom(c *gin.Context) (access.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return access.Actor{}, false
	}
	actor, ok := v.(access.Actor)
	return actor, ok
}

// SetActor stores an actor on the request context.
func SetActor(c *gin.Context, actor access.Actor) {
	c.Set(actorKey, actor)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
