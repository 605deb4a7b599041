package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/Domenick1991/tripmates/internal/api/apierr"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID    = "user_id"
	ctxSessionID = "session_id"

	SessionHeader = "X-Session-ID"
)

// JWTAuth verifies HMAC-signed bearer tokens and stores the subject as the caller's user id.
// The session id comes from the X-Session-ID header, falling back to the token's sid claim.
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			if sid, ok := claims["sid"].(string); ok {
				sessionID = sid
			}
		}

		c.Set(ctxUserID, subject)
		c.Set(ctxSessionID, sessionID)
		c.Next()
	}
}

// Recovery turns handler panics into a 500 without leaking the panic value.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func sessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

func writeError(c *gin.Context, err error) {
	code := apierr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, gin.H{"error": apierr.Message(err)})
}
