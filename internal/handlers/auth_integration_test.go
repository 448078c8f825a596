package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRegisterVerifyLoginRefreshFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.doJSON(t, http.MethodPost, "/api/auth/register",
		`{"username":"writer42","email":"writer@example.com","password":"Sup3rSecret!","full_name":"Alex Writer"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "writer@example.com", created["email"])
	require.EqualValues(t, 15, created["expires_in_minutes"])

	// Login is rejected until the email is verified.
	rec = f.doLogin(t, "writer@example.com", "Sup3rSecret!")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "ACCOUNT_NOT_ACTIVATED", decodeBody(t, rec.Body.Bytes())["code"])

	code := f.mailer.lastCode(t)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, true, decodeBody(t, rec.Body.Bytes())["email_verified"])

	rec = f.doLogin(t, "writer@example.com", "Sup3rSecret!")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	login := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "bearer", login["token_type"])
	require.EqualValues(t, 1800, login["expires_in"])
	require.NotEmpty(t, login["access_token"])
	require.NotEmpty(t, login["refresh_token"])

	user, ok := login["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "writer42", user["username"])
	role, ok := user["role"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "user", role["name"])
	loginRank, ok := user["rank"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "newbie", loginRank["name"])

	access := login["access_token"].(string)
	refresh := login["refresh_token"].(string)

	rec = f.doJSON(t, http.MethodGet, "/api/auth/me", "", map[string]string{
		"Authorization": "Bearer " + access,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "writer@example.com", me["email"])
	rank, ok := me["rank"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "newbie", rank["name"])

	// Refresh rotates the pair. The clock moves so the new tokens differ.
	f.clock.Advance(time.Second)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+refresh+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rotated := decodeBody(t, rec.Body.Bytes())
	require.NotEmpty(t, rotated["access_token"])
	require.NotEqual(t, access, rotated["access_token"])
	require.NotEqual(t, refresh, rotated["refresh_token"])

	rec = f.doJSON(t, http.MethodPost, "/api/auth/logout", "", map[string]string{
		"Authorization": "Bearer " + rotated["access_token"].(string),
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFailuresAndLockout(t *testing.T) {
	f := newFixture(t)
	f.registerAndVerify(t, "writer42", "writer@example.com", "Sup3rSecret!")

	// Unknown email and wrong password read identically.
	rec := f.doLogin(t, "nobody@example.com", "whatever1!A")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", decodeBody(t, rec.Body.Bytes())["code"])

	for i := 0; i < 4; i++ {
		rec = f.doLogin(t, "writer@example.com", "WrongPass1!")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// The fifth failure trips the lock.
	rec = f.doLogin(t, "writer@example.com", "WrongPass1!")
	require.Equal(t, http.StatusLocked, rec.Code)

	// The account is now locked even for the correct password.
	rec = f.doLogin(t, "writer@example.com", "Sup3rSecret!")
	require.Equal(t, http.StatusLocked, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	require.Equal(t, "ACCOUNT_LOCKED", body["code"])
	require.Contains(t, body["detail"], "locked")

	// The lock expires on its own.
	f.clock.Advance(31 * time.Minute)
	rec = f.doLogin(t, "writer@example.com", "Sup3rSecret!")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRefreshRejectsWrongTokenType(t *testing.T) {
	f := newFixture(t)
	f.registerAndVerify(t, "writer42", "writer@example.com", "Sup3rSecret!")

	rec := f.doLogin(t, "writer@example.com", "Sup3rSecret!")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody(t, rec.Body.Bytes())
	access := login["access_token"].(string)
	refresh := login["refresh_token"].(string)

	// An access token is not accepted at the refresh endpoint.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+access+`"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TOKEN_INVALID", decodeBody(t, rec.Body.Bytes())["code"])

	// A refresh token is not accepted at resource endpoints.
	rec = f.doJSON(t, http.MethodGet, "/api/auth/me", "", map[string]string{
		"Authorization": "Bearer " + refresh,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expired refresh tokens report TOKEN_EXPIRED so clients re-login.
	f.clock.Advance(8 * 24 * time.Hour)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+refresh+`"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TOKEN_EXPIRED", decodeBody(t, rec.Body.Bytes())["code"])
}

func TestVerifyEmailRejections(t *testing.T) {
	f := newFixture(t)

	rec := f.doJSON(t, http.MethodPost, "/api/auth/register",
		`{"username":"writer42","email":"writer@example.com","password":"Sup3rSecret!"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	code := f.mailer.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+wrong+`"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// The correct code still works after a failed guess.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Verifying twice reports the address as already verified.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "EMAIL_ALREADY_VERIFIED", decodeBody(t, rec.Body.Bytes())["code"])
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	f := newFixture(t)

	rec := f.doJSON(t, http.MethodPost, "/api/auth/register",
		`{"username":"writer42","email":"writer@example.com","password":"Sup3rSecret!"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	code := f.mailer.lastCode(t)

	f.clock.Advance(16 * time.Minute)

	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody(t, rec.Body.Bytes())["detail"], "expired")

	// Resend issues a fresh code that verifies.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/resend-verification",
		`{"email":"writer@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	code = f.mailer.lastCode(t)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegisterValidationErrorShape(t *testing.T) {
	f := newFixture(t)

	rec := f.doJSON(t, http.MethodPost, "/api/auth/register",
		`{"username":"w","email":"not-an-email","password":"Sup3rSecret!"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec.Body.Bytes())
	detail, ok := body["detail"].([]any)
	require.True(t, ok, rec.Body.String())
	require.Len(t, detail, 2)

	fields := map[string]bool{}
	for _, item := range detail {
		entry, ok := item.(map[string]any)
		require.True(t, ok)
		fields[entry["field"].(string)] = true
		require.NotEmpty(t, entry["message"])
	}
	require.True(t, fields["username"])
	require.True(t, fields["email"])
}

func TestPasswordResetEndpoints(t *testing.T) {
	f := newFixture(t)
	f.registerAndVerify(t, "writer42", "writer@example.com", "Sup3rSecret!")

	// Unknown emails get the same response as known ones.
	rec := f.doJSON(t, http.MethodPost, "/api/auth/password-reset/request",
		`{"email":"nobody@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.doJSON(t, http.MethodPost, "/api/auth/password-reset/request",
		`{"email":"writer@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	token := f.mailer.lastResetToken(t)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/password-reset/confirm",
		`{"token":"`+token+`","new_password":"N3wSecret!pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.doLogin(t, "writer@example.com", "N3wSecret!pass")
	require.Equal(t, http.StatusOK, rec.Code)

	// The token is single use.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/password-reset/confirm",
		`{"token":"`+token+`","new_password":"An0ther!pass"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.doJSON(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec.Body.Bytes())["status"])
}

func TestRegisterRepeatBeforeVerification(t *testing.T) {
	f := newFixture(t)

	body := `{"username":"writer42","email":"writer@example.com","password":"Sup3rSecret!"}`
	rec := f.doJSON(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 1, f.mailer.sentCount())

	// Registering the same unverified address again issues a fresh code and
	// answers exactly like a first registration.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 2, f.mailer.sentCount())
	require.Equal(t, "writer@example.com", decodeBody(t, rec.Body.Bytes())["email"])

	// The latest code is the live one.
	code := f.mailer.lastCode(t)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"writer@example.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Once verified, the same registration is a hard conflict.
	rec = f.doJSON(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "CONFLICT", decodeBody(t, rec.Body.Bytes())["code"])
}
