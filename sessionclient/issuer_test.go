package sessionclient_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/labtrack/labtrack-auth/sessionclient"
	"github.com/stretchr/testify/require"
)

const (
	issuerUsername = "alice"
	issuerPassword = "Password123"
	issuerRemember = "remember-token-value"
	issuerCode     = "4242"
)

// fakeIssuer is an in-process stand-in for the token issuer, just enough
// endpoint behaviour to drive the client through every session transition.
type fakeIssuer struct {
	t      *testing.T
	server *httptest.Server

	lock        sync.Mutex
	validTokens map[string]bool
	tokenSeq    int

	// knobs
	rejectRemember  bool          // auto-login always answers 401
	rejectEquipment bool          // equipment always answers 401, any token
	autoLoginDelay  time.Duration // hold the auto-login response open
	recoveryLocked  bool          // verify/reset answer 429

	// counters
	totalCalls     int
	loginCalls     int
	autoLoginCalls int
	meCalls        int
	logoutCalls    int
	equipmentCalls int
	forgotCalls    int
	verifyCalls    int
	resetCalls     int
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	f := &fakeIssuer{t: t, validTokens: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("POST /auth/auto-login", f.handleAutoLogin)
	mux.HandleFunc("GET /auth/me", f.handleMe)
	mux.HandleFunc("POST /auth/logout", f.handleLogout)
	mux.HandleFunc("POST /auth/register", f.handleRegister)
	mux.HandleFunc("POST /auth/forgot-password", f.handleForgot)
	mux.HandleFunc("POST /auth/verify-recovery-code", f.handleVerify)
	mux.HandleFunc("POST /auth/reset-password", f.handleReset)
	mux.HandleFunc("GET /equipments", f.handleEquipments)
	mux.HandleFunc("POST /equipments", f.handleEquipments)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lock.Lock()
		f.totalCalls++
		f.lock.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// newClient builds a session client pointed at the fake issuer.
func (f *fakeIssuer) newClient(t *testing.T, options ...sessionclient.ClientOption) *sessionclient.Client {
	t.Helper()
	client, err := sessionclient.New(f.server.URL, options...)
	require.NoError(t, err)
	return client
}

// mintToken registers and returns a fresh valid access token.
func (f *fakeIssuer) mintToken() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.mintTokenLocked()
}

func (f *fakeIssuer) mintTokenLocked() string {
	f.tokenSeq++
	token := fmt.Sprintf("access-token-%d", f.tokenSeq)
	f.validTokens[token] = true
	return token
}

// seedRememberCookies injects the remember token and marker cookies into the
// client's jar, as if a remembered login happened in an earlier process run.
func (f *fakeIssuer) seedRememberCookies(t *testing.T, client *sessionclient.Client) {
	t.Helper()
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	client.HTTPClient().Jar.SetCookies(u, []*http.Cookie{
		{Name: "remember_token", Value: issuerRemember, Path: "/"},
		{Name: sessionclient.RememberMarkerCookie, Value: "1", Path: "/"},
	})
}

func (f *fakeIssuer) calls(counter *int) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return *counter
}

func (f *fakeIssuer) bearerValid(r *http.Request) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	return f.validTokens[header[len(prefix):]]
}

func issuerUser() map[string]any {
	return map[string]any{
		"id":        "user-1",
		"username":  issuerUsername,
		"email":     "alice@example.com",
		"full_name": "Alice Liddell",
	}
}

func writeTestJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeTestError(w http.ResponseWriter, status int, detail string) {
	writeTestJSON(w, status, map[string]string{"detail": detail})
}

func (f *fakeIssuer) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.loginCalls++
	f.lock.Unlock()

	var body struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeTestError(w, http.StatusBadRequest, "bad request")
		return
	}
	if body.Username != issuerUsername || body.Password != issuerPassword {
		writeTestError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	if body.RememberMe {
		http.SetCookie(w, &http.Cookie{Name: "remember_token", Value: issuerRemember, Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: sessionclient.RememberMarkerCookie, Value: "1", Path: "/"})
	}
	writeTestJSON(w, http.StatusOK, map[string]any{
		"access_token": f.mintToken(),
		"token_type":   "bearer",
		"user":         issuerUser(),
	})
}

func (f *fakeIssuer) handleAutoLogin(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.autoLoginCalls++
	delay := f.autoLoginDelay
	reject := f.rejectRemember
	f.lock.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	cookie, err := r.Cookie("remember_token")
	if reject || err != nil || cookie.Value != issuerRemember {
		writeTestError(w, http.StatusUnauthorized, "invalid remember token")
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]any{
		"access_token": f.mintToken(),
		"token_type":   "bearer",
		"user":         issuerUser(),
	})
}

func (f *fakeIssuer) handleMe(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.meCalls++
	f.lock.Unlock()

	if !f.bearerValid(r) {
		writeTestError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	writeTestJSON(w, http.StatusOK, issuerUser())
}

func (f *fakeIssuer) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.logoutCalls++
	f.lock.Unlock()
	writeTestJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (f *fakeIssuer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeTestError(w, http.StatusBadRequest, "bad request")
		return
	}
	writeTestJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":        "user-2",
			"username":  body.Username,
			"email":     body.Email,
			"full_name": body.FullName,
		},
		"recovery_code": issuerCode,
	})
}

func (f *fakeIssuer) handleForgot(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.forgotCalls++
	f.lock.Unlock()
	writeTestJSON(w, http.StatusOK, map[string]string{"message": "if the email exists, a code has been sent"})
}

func (f *fakeIssuer) handleVerify(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.verifyCalls++
	locked := f.recoveryLocked
	f.lock.Unlock()

	if locked {
		writeTestError(w, http.StatusTooManyRequests, "too many attempts")
		return
	}
	var body struct {
		RecoveryCode string `json:"recovery_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RecoveryCode != issuerCode {
		writeTestError(w, http.StatusBadRequest, "invalid recovery code")
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]string{"message": "code valid"})
}

func (f *fakeIssuer) handleReset(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.resetCalls++
	locked := f.recoveryLocked
	f.lock.Unlock()

	if locked {
		writeTestError(w, http.StatusTooManyRequests, "too many attempts")
		return
	}
	var body struct {
		RecoveryCode       string `json:"recovery_code"`
		NewPassword        string `json:"new_password"`
		ConfirmNewPassword string `json:"confirm_new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RecoveryCode != issuerCode {
		writeTestError(w, http.StatusBadRequest, "invalid recovery code")
		return
	}
	if body.NewPassword != body.ConfirmNewPassword {
		writeTestError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (f *fakeIssuer) handleEquipments(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.equipmentCalls++
	reject := f.rejectEquipment
	f.lock.Unlock()

	if reject || !f.bearerValid(r) {
		writeTestError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	writeTestJSON(w, http.StatusOK, []map[string]any{
		{"id": "eq-1", "code": "MICRO-001", "name": "Microscope"},
	})
}
