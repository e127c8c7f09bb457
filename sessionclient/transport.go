package sessionclient

import (
	"net/http"

	"github.com/pkg/errors"
)

// authTransport is the request/response interceptor. Outbound, it attaches
// the current access token as a bearer credential. Inbound, a 401 on a
// bearer-authenticated endpoint triggers one silent auto-login followed by
// exactly one retry of the failing request; the caller sees only the final
// outcome.
//
// The retry bound lives here structurally: the retried response is returned
// directly, never re-inspected, and the auth endpoints that cannot carry a
// bearer token are exempt from interception entirely. Nothing is ever
// recorded on the request object itself.
type authTransport struct {
	client *Client
	next   http.RoundTripper
}

var _ http.RoundTripper = (*authTransport)(nil)

// Endpoints that authenticate by something other than a bearer token
// (credentials, remember cookie, recovery code). A 401 from these is a
// definitive answer, not an expired access token.
var uninterceptedPaths = map[string]struct{}{
	pathLogin:              {},
	pathAutoLogin:          {},
	pathLogout:             {},
	pathRegister:           {},
	pathForgotPassword:     {},
	pathVerifyRecoveryCode: {},
	pathResetPassword:      {},
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	outbound := req
	if token := t.client.accessToken(); token != "" {
		outbound = req.Clone(req.Context())
		outbound.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.next.RoundTrip(outbound)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if _, exempt := uninterceptedPaths[req.URL.Path]; exempt {
		return resp, nil
	}

	// Without the marker cookie there is no remember token to recover with:
	// purge and hand the original 401 back.
	if !t.client.hasRememberMarker() {
		t.client.purgeLocal()
		return resp, nil
	}

	// A request whose body cannot be replayed cannot be retried safely.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	newToken, loginErr := t.client.coalescedAutoLogin(req.Context())
	if loginErr != nil {
		// State already purged; the auto-login failure supersedes the
		// original 401 so the caller knows recovery itself failed.
		resp.Body.Close()
		return nil, loginErr
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			// The session was healed but this request cannot be replayed;
			// the stale 401 would misreport that, so surface the failure.
			resp.Body.Close()
			return nil, errors.Wrap(bodyErr, "[authTransport.RoundTrip] replay request body")
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+newToken)

	resp.Body.Close()
	return t.next.RoundTrip(retry)
}
