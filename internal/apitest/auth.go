package apitest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

type ctxKey struct{}

// Claims are the claims of tokens issued by the fake API.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenTTL is the lifetime of tokens issued on login and signup.
const TokenTTL = time.Hour

// IssueToken signs a token for u that expires at exp.
func (s *Server) IssueToken(u domain.User, exp time.Time) string {
	now := time.Now().UTC()
	claims := &Claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "apitest",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}
	return signed
}

// TokenFor signs a valid token for u.
func (s *Server) TokenFor(u domain.User) string {
	return s.IssueToken(u, time.Now().Add(TokenTTL))
}

func (s *Server) validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := s.validate(parts[1])
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, domain.ID(claims.Subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) domain.ID {
	id, _ := r.Context().Value(ctxKey{}).(domain.ID)
	return id
}
