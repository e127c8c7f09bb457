package sessionclient

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// RememberMarkerCookie is the non-HTTP-only cookie whose presence tells the
// client a remember token exists. The token cookie itself is HTTP-only and
// never read here.
const RememberMarkerCookie = "remember_marker"

// Client owns the session for one running instance of the app.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	api     *api
	store   CredentialStore
	log     zerolog.Logger

	lock         sync.RWMutex
	state        State
	user         *User
	token        string
	rememberPref bool

	initOnce sync.Once

	events    *broadcaster
	autoGroup singleflight.Group
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithCredentialStore sets where the access token and user survive restarts.
// Defaults to an in-memory store.
func WithCredentialStore(store CredentialStore) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithCookieJar sets the jar holding the remember cookies. Supply a
// persistent jar when the remember token should survive process restarts;
// the default jar is in-memory. The client clears cookies on purge but
// never replaces the jar instance.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *Client) {
		c.http.Jar = jar
	}
}

// WithLogger sets the client logger
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithBaseTransport sets the transport the intercepting round tripper
// delegates to (primarily for testing).
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.http.Transport.(*authTransport).next = rt
	}
}

// New creates a session client for the issuer at baseURL. The returned
// client starts UNINITIALIZED; call Init before rendering anything guarded
// by authentication.
func New(baseURL string, options ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[sessionclient.New] parse base URL")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("[sessionclient.New] base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[sessionclient.New] cookie jar")
	}

	c := &Client{
		baseURL: parsed,
		store:   NewMemoryStore(),
		log:     zerolog.Nop(),
		state:   StateUninitialized,
		events:  newBroadcaster(),
	}
	c.http = &http.Client{
		Jar:       jar,
		Transport: &authTransport{client: c, next: http.DefaultTransport},
	}
	c.api = &api{baseURL: parsed, http: c.http}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Init resolves the session to AUTHENTICATED or UNAUTHENTICATED. Safe to
// call from any number of goroutines: the verification work runs at most
// once per client lifetime and later calls return the settled status.
//
// Order of attempts: a persisted access token is verified with the issuer;
// if that fails (or no token exists), auto-login runs when the remember
// marker cookie is present; otherwise the session settles UNAUTHENTICATED
// without any network call.
func (c *Client) Init(ctx context.Context) Status {
	c.initOnce.Do(func() {
		c.setState(StateInitializing)
		c.initialize(ctx)
	})
	return c.Status()
}

func (c *Client) initialize(ctx context.Context) {
	creds, err := c.store.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("credential store unreadable, starting clean")
		creds = Credentials{}
	}

	if creds.AccessToken == "" {
		// A user without a token is stale state, never a session
		if creds.User != nil {
			_ = c.store.Clear()
		}
		c.tryAutoLogin(ctx)
		return
	}

	c.lock.Lock()
	c.token = creds.AccessToken
	c.rememberPref = creds.RememberMe
	c.lock.Unlock()

	// Verify the persisted token. The transport heals an expired token by
	// auto-logging in and retrying, so a success here may already carry a
	// fresh token.
	user, err := c.api.me(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("persisted token rejected")
		c.tryAutoLogin(ctx)
		return
	}
	c.setSession(user, c.accessToken())
}

// tryAutoLogin attempts silent re-authentication, settling the session
// either way. No network call is made when the marker cookie is absent.
func (c *Client) tryAutoLogin(ctx context.Context) {
	if !c.hasRememberMarker() {
		c.purgeLocal()
		return
	}
	if _, err := c.coalescedAutoLogin(ctx); err != nil {
		c.log.Debug().Err(err).Msg("auto-login failed")
		// coalescedAutoLogin has already purged
	}
}

// coalescedAutoLogin runs one auto-login no matter how many callers need it
// concurrently; everyone waits on the same flight and shares its outcome.
// On success the new session is installed; on failure local state is purged.
func (c *Client) coalescedAutoLogin(ctx context.Context) (string, error) {
	result, err, _ := c.autoGroup.Do("auto-login", func() (any, error) {
		resp, err := c.api.autoLogin(ctx)
		if err != nil {
			c.purgeLocal()
			return nil, err
		}
		c.setSession(resp.User, resp.AccessToken)
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Login authenticates with the issuer. On failure the session state is left
// untouched; invalid credentials are distinguishable from transport errors
// via errors.Is(err, ErrInvalidCredentials).
func (c *Client) Login(ctx context.Context, username, password string, rememberMe bool) (*User, error) {
	resp, err := c.api.login(ctx, username, password, rememberMe)
	if err != nil {
		return nil, err
	}

	c.lock.Lock()
	c.rememberPref = rememberMe
	c.lock.Unlock()
	c.setSession(resp.User, resp.AccessToken)
	return resp.User, nil
}

// Logout ends the session. The server-side revoke is best-effort: local
// state and cookies are purged whether or not it succeeds, so a transient
// network failure can never leave the client stuck logged in.
func (c *Client) Logout(ctx context.Context) LogoutResult {
	err := c.api.logout(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("remote logout failed, purging locally anyway")
	}
	c.purgeLocal()
	return LogoutResult{RevokedRemotely: err == nil, RevokeErr: err}
}

// Register creates a new account. Registration does not log the user in.
func (c *Client) Register(ctx context.Context, username, email, fullName, password string) (*RegisterResult, error) {
	return c.api.register(ctx, username, email, fullName, password)
}

// SetUser installs the user synchronously, persists it, and notifies all
// subscribers before returning. The authenticated invariant still requires
// an access token to be present. A nil user is a logout-equivalent
// transition: everything local is purged so no token-without-user (or the
// reverse) shape can ever be persisted.
func (c *Client) SetUser(user *User) {
	if user == nil {
		c.purgeLocal()
		return
	}

	c.lock.Lock()
	c.user = user
	token := c.token
	if token != "" {
		c.state = StateAuthenticated
	}
	rememberPref := c.rememberPref
	c.lock.Unlock()

	if err := c.store.Save(Credentials{AccessToken: token, User: user, RememberMe: rememberPref}); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist user")
	}
	c.events.notify(user)
}

// Subscribe registers a listener for session changes and returns its
// unsubscribe function. The listener is called with the current user (nil
// when logged out) on every change, synchronously, in subscription order.
func (c *Client) Subscribe(fn Listener) func() {
	return c.events.subscribe(fn)
}

// Status returns a snapshot of the session.
func (c *Client) Status() Status {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return Status{
		IsAuthenticated: c.user != nil && c.token != "",
		User:            c.user,
		IsLoading:       c.state == StateUninitialized || c.state == StateInitializing,
	}
}

// State returns the lifecycle state of the session.
func (c *Client) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// CurrentUser returns the logged-in user, or nil.
func (c *Client) CurrentUser() *User {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.user
}

// HTTPClient returns the intercepted HTTP client. Requests made through it
// carry the bearer token and get 401 healing for free.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// HasPermission reports whether the logged-in user may perform the action.
// There is no role model: any authenticated user is allowed everything.
// Kept as the seam where one would go.
func (c *Client) HasPermission(permission string) bool {
	return c.CurrentUser() != nil
}

// NewRecoveryFlow starts a password recovery conversation.
func (c *Client) NewRecoveryFlow() *RecoveryFlow {
	return &RecoveryFlow{client: c, step: StepRequestCode}
}

// setSession installs an authenticated session and notifies subscribers.
func (c *Client) setSession(user *User, token string) {
	c.lock.Lock()
	c.user = user
	c.token = token
	c.state = StateAuthenticated
	rememberPref := c.rememberPref
	c.lock.Unlock()

	if err := c.store.Save(Credentials{AccessToken: token, User: user, RememberMe: rememberPref}); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist credentials")
	}
	c.events.notify(user)
}

// purgeLocal drops every trace of the session on this client: token, user,
// remember preference, persisted credentials, and all cookies.
func (c *Client) purgeLocal() {
	c.lock.Lock()
	c.user = nil
	c.token = ""
	c.rememberPref = false
	c.state = StateUnauthenticated
	c.lock.Unlock()

	if err := c.store.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear credential store")
	}
	c.expireCookies()
	c.events.notify(nil)
}

// expireCookies removes every issuer cookie from the configured jar. The
// jar instance itself stays wired in, so a persistent jar installed with
// WithCookieJar keeps working across purges.
func (c *Client) expireCookies() {
	jar := c.http.Jar
	if jar == nil {
		return
	}
	for _, cookie := range jar.Cookies(c.baseURL) {
		jar.SetCookies(c.baseURL, []*http.Cookie{{
			Name:   cookie.Name,
			Path:   "/",
			MaxAge: -1,
		}})
	}
}

func (c *Client) setState(state State) {
	c.lock.Lock()
	c.state = state
	c.lock.Unlock()
}

func (c *Client) accessToken() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.token
}

// hasRememberMarker reports whether the marker cookie exists in the jar.
// Only existence matters; the remember token itself is HTTP-only.
func (c *Client) hasRememberMarker() bool {
	if c.http.Jar == nil {
		return false
	}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == RememberMarkerCookie {
			return true
		}
	}
	return false
}

// ErrInvalidCredentials reports a rejected username/password pair.
var ErrInvalidCredentials = apperrors.ErrInvalidCredentials
