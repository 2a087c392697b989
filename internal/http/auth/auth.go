package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey struct{}

// Claims are the token fields the API relies on. Tokens are issued by the identity
// provider; the API only verifies them.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and admits only allow-listed emails.
type Authenticator struct {
	secret  []byte
	allowed map[string]struct{}
	parser  *jwt.Parser
}

func New(secret string, allowedEmails []string) *Authenticator {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	return &Authenticator{
		secret:  []byte(secret),
		allowed: allowed,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

var (
	errMissingToken = errors.New("missing bearer token")
	errNotAllowed   = errors.New("email not allowed")
)

// Verify parses raw and checks the email claim against the allow-list.
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	var claims Claims

	_, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if _, ok := a.allowed[strings.ToLower(claims.Email)]; !ok {
		return nil, errNotAllowed
	}

	return &claims, nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.fromRequest(r)
		if err != nil {
			slog.Info("rejected request", "path", r.URL.Path, "reason", err)

			if errors.Is(err, errNotAllowed) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.Email)))
	})
}

func (a *Authenticator) fromRequest(r *http.Request) (*Claims, error) {
	h := r.Header.Get("Authorization")

	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || raw == "" {
		return nil, errMissingToken
	}

	return a.Verify(raw)
}

// Email returns the authenticated caller, if any.
func Email(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ctxKey{}).(string)
	return email, ok
}
