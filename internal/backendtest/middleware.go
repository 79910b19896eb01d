package backendtest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func routeKey(c *gin.Context) string {
	return c.Request.Method + " " + c.FullPath()
}

func (b *Backend) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Route:         routeKey(c),
			Path:          c.Request.URL.Path,
			Authorization: c.GetHeader("Authorization"),
			RequestID:     c.GetHeader("X-Request-ID"),
		})
		b.mu.Unlock()
		c.Next()
	}
}

// inject applies gates first, then scripted failures.
func (b *Backend) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := routeKey(c)

		b.mu.Lock()
		gate := b.gates[key]
		b.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}

		b.mu.Lock()
		f := b.failures[key]
		var status int
		var body string
		if f != nil {
			status, body = f.Status, f.Body
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(b.failures, key)
				}
			}
		}
		b.mu.Unlock()

		if f != nil {
			contentType := "text/plain; charset=utf-8"
			if strings.HasPrefix(strings.TrimSpace(body), "{") {
				contentType = "application/json"
			}
			c.Data(status, contentType, []byte(body))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (b *Backend) authJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !b.RequireAuth {
			c.Next()
			return
		}
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "missing authorization header"})
			c.Abort()
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SignToken issues a token the fake backend accepts.
func SignToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}
