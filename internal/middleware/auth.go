package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Back-office roles carried in the token's role claim.
const (
	RoleAdmin      = "admin"
	RoleSales      = "sales"
	RoleProduction = "production"
)

// Context keys set by RequireRole.
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

// SetJWTSecret installs the HMAC secret used to verify tokens.
func SetJWTSecret(secret []byte) {
	secretMu.Lock()
	jwtSecret = secret
	secretMu.Unlock()
}

// GetJWTSecret returns the configured secret, falling back to JWT_SECRET.
func GetJWTSecret() []byte {
	secretMu.RLock()
	secret := jwtSecret
	secretMu.RUnlock()
	if len(secret) > 0 {
		return secret
	}

	env := os.Getenv("JWT_SECRET")
	if env == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		env = "default_super_secret_key" // Development fallback only
	}
	return []byte(env)
}

// Claims is the part of a token the service relies on. Tokens are issued by
// the hosted auth provider; this service only verifies them.
type Claims struct {
	Subject string
	Role    string
}

// ParseToken verifies an HMAC-signed token and extracts its claims.
func ParseToken(tokenString string, secret []byte) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, errors.New("token is not valid")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid token claims")
	}

	role, _ := mapClaims["role"].(string)
	if role == "" {
		return Claims{}, errors.New("role not found in token")
	}
	sub, _ := mapClaims.GetSubject()

	return Claims{Subject: sub, Role: role}, nil
}

// RequireRole Middleware validates the JWT token and checks if the user's role exists in the allowedRoles list
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		claims, err := ParseToken(tokenString, GetJWTSecret())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		if !slices.Contains(allowedRoles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// Actor returns the caller recorded by RequireRole, or "anonymous".
func Actor(c *gin.Context) string {
	if id := c.GetString(ContextUserID); id != "" {
		return id
	}
	return "anonymous"
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("Invalid authorization format. Expected 'Bearer <token>'")
	}
	return parts[1], nil
}
