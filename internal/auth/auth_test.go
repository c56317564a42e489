package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/techshop-orders/internal/models"
)

func newTestTokens(now time.Time) *Tokens {
	tokens := NewTokens("test-secret", time.Hour)
	tokens.now = func() time.Time { return now }
	return tokens
}

func TestIssueAndVerify(t *testing.T) {
	tokens := newTestTokens(time.Now())

	raw, err := tokens.Issue(7, "a@example.com", models.RoleAdmin)
	require.NoError(t, err)

	identity, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), identity.UserID)
	assert.Equal(t, "a@example.com", identity.Email)
	assert.True(t, identity.IsAdmin())
}

func TestVerifyRejections(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	expired, err := newTestTokens(issuedAt).Issue(1, "x@example.com", models.RoleUser)
	require.NoError(t, err)

	tokens := newTestTokens(time.Now())

	_, err = tokens.Verify(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	foreign, err := NewTokens("other-secret", time.Hour).Issue(1, "x@example.com", models.RoleUser)
	require.NoError(t, err)
	_, err = tokens.Verify(foreign)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	disabled, err := tokens.Issue(1, "x@example.com", models.RoleDisabled)
	require.NoError(t, err)
	_, err = tokens.Verify(disabled)
	assert.ErrorIs(t, err, ErrAccountLocked)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Verify(none)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	anonymous, err := tokens.Issue(0, "", models.RoleUser)
	require.NoError(t, err)
	_, err = tokens.Verify(anonymous)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIdentityCanView(t *testing.T) {
	owner := &Identity{UserID: 3, Role: models.RoleUser}
	admin := &Identity{UserID: 1, Role: models.RoleAdmin}
	var nobody *Identity

	assert.True(t, owner.CanView(3))
	assert.False(t, owner.CanView(4))
	assert.True(t, admin.CanView(4))
	assert.False(t, nobody.CanView(3))
}

func TestMiddleware(t *testing.T) {
	tokens := newTestTokens(time.Now())
	authn := NewAuthenticator(tokens, nil)

	var seen *Identity
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	userChain := authn.RequireAuth(final)
	adminChain := authn.RequireAuth(authn.RequireAdmin(final))

	userToken, err := tokens.Issue(5, "u@example.com", models.RoleCustomer)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(1, "root@example.com", models.RoleAdmin)
	require.NoError(t, err)
	disabledToken, err := tokens.Issue(6, "d@example.com", models.RoleDisabled)
	require.NoError(t, err)

	cases := []struct {
		name    string
		handler http.Handler
		header  string
		status  int
	}{
		{"missing token", userChain, "", http.StatusUnauthorized},
		{"wrong scheme", userChain, "Basic " + userToken, http.StatusUnauthorized},
		{"garbage", userChain, "Bearer nope", http.StatusUnauthorized},
		{"disabled", userChain, "Bearer " + disabledToken, http.StatusForbidden},
		{"user ok", userChain, "Bearer " + userToken, http.StatusNoContent},
		{"user on admin route", adminChain, "Bearer " + userToken, http.StatusForbidden},
		{"admin ok", adminChain, "bearer " + adminToken, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusNoContent {
				require.NotNil(t, seen)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestRequireAdminWithoutIdentity(t *testing.T) {
	authn := NewAuthenticator(newTestTokens(time.Now()), nil)
	rec := httptest.NewRecorder()
	authn.RequireAdmin(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
