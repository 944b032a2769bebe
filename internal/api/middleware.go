/**
 * @description
 * This file contains custom middleware for the HTTP router. Middlewares are used
 * to process requests before they reach the final handler, perfect for tasks like
 * authentication or adding context to a request.
 *
 * The core never performs authentication itself; this layer resolves the bearer
 * token into an opaque acting-party id and hands it to handlers through the
 * request context.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 * - github.com/google/uuid: Party id parsing.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// partyIDContextKey is a custom type for the context key to avoid collisions.
type partyIDContextKey string

const partyIDKey partyIDContextKey = "partyID"

// AuthMiddleware creates a middleware that validates HS256 bearer tokens and
// stores the authenticated party id (the token subject) in the request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				http.Error(w, "Token subject missing", http.StatusUnauthorized)
				return
			}
			partyID, err := uuid.Parse(subject)
			if err != nil {
				http.Error(w, "Token subject is not a valid party id", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), partyIDKey, partyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPartyID retrieves the authenticated party id from the request context.
func GetPartyID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(partyIDKey).(uuid.UUID)
	return id, ok
}

// InternalAPIKeyMiddleware guards service-to-service endpoints with a shared
// static key carried in the X-Internal-Api-Key header.
func InternalAPIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get("X-Internal-Api-Key"))
			if apiKey == "" || provided != apiKey {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
