package middleware

import (
	"net/http"
	"strings"

	"slotify/internal/shared/utils/response"
	"slotify/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Roles carried in the "role" claim of access tokens
const (
	RoleAdmin  = "ADMIN"
	RoleSystem = "SYSTEM"
)

// JWTAuth validates HS256 access tokens minted by the venue back office
func JWTAuth(secret string) gin.HandlerFunc {
	appLogger := logger.GetDefault()

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortJSON(c, http.StatusUnauthorized, "Authorization header is required", nil)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.AbortJSON(c, http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			appLogger.LogAuthFailure(c.Request.Context(), "invalid or expired token", c.ClientIP())
			response.AbortJSON(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.AbortJSON(c, http.StatusUnauthorized, "invalid token claims", nil)
			return
		}
		if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
			appLogger.LogAuthFailure(c.Request.Context(), "wrong token type", c.ClientIP())
			response.AbortJSON(c, http.StatusUnauthorized, "invalid token type", nil)
			return
		}

		c.Set("user_id", claims["sub"])
		c.Set("user_role", claims["role"])
		c.Next()
	}
}

// RequireAdmin requires the ADMIN role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(RoleAdmin)
}

// RequireRoles requires any one of requiredRoles. It must run after JWTAuth.
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user_role")
		if !exists {
			response.AbortJSON(c, http.StatusUnauthorized, "user role not found in context", nil)
			return
		}

		userRole, _ := value.(string)
		for _, role := range requiredRoles {
			if userRole == role {
				c.Next()
				return
			}
		}

		response.AbortJSON(c, http.StatusForbidden, "Insufficient permissions", nil)
	}
}
