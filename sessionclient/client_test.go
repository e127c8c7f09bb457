package sessionclient_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"testing"

	"github.com/labtrack/labtrack-auth/sessionclient"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := sessionclient.New("not-a-url")
	require.Error(t, err)

	_, err = sessionclient.New("/just/a/path")
	require.Error(t, err)
}

func TestLoginEstablishesSession(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	var notified []*sessionclient.User
	client.Subscribe(func(u *sessionclient.User) { notified = append(notified, u) })

	user, err := client.Login(context.Background(), issuerUsername, issuerPassword, false)
	require.NoError(t, err)
	require.Equal(t, issuerUsername, user.Username)

	status := client.Status()
	require.True(t, status.IsAuthenticated)
	require.False(t, status.IsLoading)
	require.Equal(t, sessionclient.StateAuthenticated, client.State())

	creds, err := store.Load()
	require.NoError(t, err)
	require.NotEmpty(t, creds.AccessToken)
	require.Equal(t, issuerUsername, creds.User.Username)

	require.Len(t, notified, 1)
	require.Equal(t, issuerUsername, notified[0].Username)
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	issuer := newFakeIssuer(t)
	client := issuer.newClient(t)

	_, err := client.Login(context.Background(), issuerUsername, "WrongPass1", false)
	require.ErrorIs(t, err, sessionclient.ErrInvalidCredentials)

	require.False(t, client.Status().IsAuthenticated)
	require.Nil(t, client.CurrentUser())
	// A failed login must never trigger auto-login recovery
	require.Equal(t, 0, issuer.calls(&issuer.autoLoginCalls))
}

func TestInitWithValidPersistedToken(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	require.NoError(t, store.Save(sessionclient.Credentials{
		AccessToken: issuer.mintToken(),
		User:        &sessionclient.User{ID: "user-1", Username: issuerUsername},
	}))
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	status := client.Init(context.Background())
	require.True(t, status.IsAuthenticated)
	require.False(t, status.IsLoading)
	require.Equal(t, issuerUsername, status.User.Username)

	require.Equal(t, 1, issuer.calls(&issuer.meCalls))
	require.Equal(t, 0, issuer.calls(&issuer.autoLoginCalls))
}

func TestInitWithoutCredentialsOrMarkerStaysOffline(t *testing.T) {
	issuer := newFakeIssuer(t)
	client := issuer.newClient(t)

	status := client.Init(context.Background())
	require.False(t, status.IsAuthenticated)
	require.False(t, status.IsLoading)
	require.Equal(t, sessionclient.StateUnauthenticated, client.State())

	// Nothing to verify and nothing to recover with: zero network traffic
	require.Equal(t, 0, issuer.calls(&issuer.totalCalls))
}

func TestInitClearsStaleUserWithoutToken(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	require.NoError(t, store.Save(sessionclient.Credentials{
		User: &sessionclient.User{ID: "user-1", Username: issuerUsername},
	}))
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	status := client.Init(context.Background())
	require.False(t, status.IsAuthenticated)
	require.Equal(t, 0, issuer.calls(&issuer.totalCalls))

	creds, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, creds.User)
}

func TestInitHealsExpiredTokenThroughAutoLogin(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	require.NoError(t, store.Save(sessionclient.Credentials{
		AccessToken: "expired-access-token",
		User:        &sessionclient.User{ID: "user-1", Username: issuerUsername},
		RememberMe:  true,
	}))
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))
	issuer.seedRememberCookies(t, client)

	status := client.Init(context.Background())
	require.True(t, status.IsAuthenticated)
	require.Equal(t, issuerUsername, status.User.Username)
	require.Equal(t, 1, issuer.calls(&issuer.autoLoginCalls))

	// The fresh token replaced the expired one in the store
	creds, err := store.Load()
	require.NoError(t, err)
	require.NotEmpty(t, creds.AccessToken)
	require.NotEqual(t, "expired-access-token", creds.AccessToken)
}

func TestInitExpiredTokenWithoutMarkerSettlesUnauthenticated(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	require.NoError(t, store.Save(sessionclient.Credentials{
		AccessToken: "expired-access-token",
		User:        &sessionclient.User{ID: "user-1", Username: issuerUsername},
	}))
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	status := client.Init(context.Background())
	require.False(t, status.IsAuthenticated)
	require.Equal(t, 0, issuer.calls(&issuer.autoLoginCalls))

	creds, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, creds.AccessToken)
}

func TestInitRunsOnceAcrossGoroutines(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	require.NoError(t, store.Save(sessionclient.Credentials{
		AccessToken: issuer.mintToken(),
		User:        &sessionclient.User{ID: "user-1", Username: issuerUsername},
	}))
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	const goroutines = 8
	var wg sync.WaitGroup
	statuses := make([]sessionclient.Status, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = client.Init(context.Background())
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, issuer.calls(&issuer.meCalls))
	for _, status := range statuses {
		require.True(t, status.IsAuthenticated)
	}
}

func TestLogoutPurgesEverythingLocally(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	_, err := client.Login(context.Background(), issuerUsername, issuerPassword, true)
	require.NoError(t, err)
	require.True(t, client.Status().IsAuthenticated)

	result := client.Logout(context.Background())
	require.True(t, result.RevokedRemotely)
	require.NoError(t, result.RevokeErr)

	require.False(t, client.Status().IsAuthenticated)
	require.Equal(t, sessionclient.StateUnauthenticated, client.State())
	require.Nil(t, client.CurrentUser())

	creds, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, creds.AccessToken)
	require.Nil(t, creds.User)

	// The remember cookies are gone with the rest
	u, err := url.Parse(issuer.server.URL)
	require.NoError(t, err)
	require.Empty(t, client.HTTPClient().Jar.Cookies(u))
}

func TestLogoutKeepsConfiguredCookieJar(t *testing.T) {
	issuer := newFakeIssuer(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := issuer.newClient(t, sessionclient.WithCookieJar(jar))

	_, err = client.Login(context.Background(), issuerUsername, issuerPassword, true)
	require.NoError(t, err)

	u, err := url.Parse(issuer.server.URL)
	require.NoError(t, err)
	require.NotEmpty(t, jar.Cookies(u))

	result := client.Logout(context.Background())
	require.True(t, result.RevokedRemotely)

	// The caller's jar stays wired in, emptied rather than replaced
	require.Same(t, http.CookieJar(jar), client.HTTPClient().Jar)
	require.Empty(t, jar.Cookies(u))
}

func TestSetUserNilPurgesSession(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	_, err := client.Login(context.Background(), issuerUsername, issuerPassword, false)
	require.NoError(t, err)
	require.True(t, client.Status().IsAuthenticated)

	client.SetUser(nil)

	require.False(t, client.Status().IsAuthenticated)
	require.Equal(t, sessionclient.StateUnauthenticated, client.State())
	require.Nil(t, client.CurrentUser())

	// No token-without-user shape may reach the store
	creds, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, creds.AccessToken)
	require.Nil(t, creds.User)
}

func TestLogoutOfflineStillPurges(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewMemoryStore()
	client := issuer.newClient(t, sessionclient.WithCredentialStore(store))

	_, err := client.Login(context.Background(), issuerUsername, issuerPassword, true)
	require.NoError(t, err)

	issuer.server.Close()

	result := client.Logout(context.Background())
	require.False(t, result.RevokedRemotely)
	require.Error(t, result.RevokeErr)

	require.False(t, client.Status().IsAuthenticated)
	creds, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, creds.AccessToken)
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	issuer := newFakeIssuer(t)
	client := issuer.newClient(t)

	result, err := client.Register(context.Background(), "bob", "bob@example.com", "Bob", "Password123")
	require.NoError(t, err)
	require.Equal(t, "bob", result.User.Username)
	require.NotEmpty(t, result.RecoveryCode)

	// Registration hands back a recovery code but never a session
	require.False(t, client.Status().IsAuthenticated)
	require.Nil(t, client.CurrentUser())
}

func TestSetUserNotifiesSubscribersInOrder(t *testing.T) {
	client, err := sessionclient.New("http://localhost:1")
	require.NoError(t, err)

	var order []string
	client.Subscribe(func(u *sessionclient.User) { order = append(order, "first") })
	unsubscribe := client.Subscribe(func(u *sessionclient.User) { order = append(order, "second") })

	client.SetUser(&sessionclient.User{ID: "user-1", Username: issuerUsername})
	require.Equal(t, []string{"first", "second"}, order)

	unsubscribe()
	unsubscribe() // idempotent
	client.SetUser(nil)
	require.Equal(t, []string{"first", "second", "first"}, order)
}

func TestSetUserWithoutTokenIsNotAuthenticated(t *testing.T) {
	client, err := sessionclient.New("http://localhost:1")
	require.NoError(t, err)

	client.SetUser(&sessionclient.User{ID: "user-1", Username: issuerUsername})
	require.NotNil(t, client.CurrentUser())
	require.False(t, client.Status().IsAuthenticated)
	require.NotEqual(t, sessionclient.StateAuthenticated, client.State())
}

func TestHasPermission(t *testing.T) {
	client, err := sessionclient.New("http://localhost:1")
	require.NoError(t, err)

	require.False(t, client.HasPermission("equipment:issue"))
	client.SetUser(&sessionclient.User{ID: "user-1", Username: issuerUsername})
	require.True(t, client.HasPermission("equipment:issue"))
}

func TestSessionSurvivesRestart(t *testing.T) {
	issuer := newFakeIssuer(t)
	store := sessionclient.NewFileStore(t.TempDir() + "/session.json")

	first := issuer.newClient(t, sessionclient.WithCredentialStore(store))
	_, err := first.Login(context.Background(), issuerUsername, issuerPassword, false)
	require.NoError(t, err)

	// A new client over the same store is a process restart
	second := issuer.newClient(t, sessionclient.WithCredentialStore(store))
	status := second.Init(context.Background())
	require.True(t, status.IsAuthenticated)
	require.Equal(t, issuerUsername, status.User.Username)
	require.Equal(t, 0, issuer.calls(&issuer.autoLoginCalls))
}
