package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/comanda/internal/http/auth"
)

const secret = "test-secret"

func sign(t *testing.T, key, email string, exp time.Time) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	s, err := tok.SignedString([]byte(key))
	require.NoError(t, err)

	return s
}

func TestMiddleware(t *testing.T) {
	a := auth.New(secret, []string{"Dona@Salao.com"})

	var seen string

	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.Email(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	later := time.Now().Add(time.Hour)

	type testCase struct {
		name       string
		method     string
		header     string
		wantStatus int
	}

	tests := []testCase{
		{name: "Allowed", header: "Bearer " + sign(t, secret, "dona@salao.com", later), wantStatus: http.StatusNoContent},
		{name: "NotAllowListed", header: "Bearer " + sign(t, secret, "intruso@x.com", later), wantStatus: http.StatusForbidden},
		{name: "Expired", header: "Bearer " + sign(t, secret, "dona@salao.com", time.Now().Add(-time.Minute)), wantStatus: http.StatusUnauthorized},
		{name: "WrongKey", header: "Bearer " + sign(t, "other", "dona@salao.com", later), wantStatus: http.StatusUnauthorized},
		{name: "Missing", wantStatus: http.StatusUnauthorized},
		{name: "NotBearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "Preflight", method: http.MethodOptions, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""

			method := tt.method
			if method == "" {
				method = http.MethodGet
			}

			req := httptest.NewRequest(method, "/api/v1/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.name == "Allowed" {
				assert.Equal(t, "dona@salao.com", seen)
			}
		})
	}
}
