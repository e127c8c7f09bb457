// Package sessionclient owns the client-side authentication session for the
// LabTrack presentation tier.
//
// A Client holds the session state machine (who is logged in, whether the
// initial check has finished), persists the access token between runs,
// attaches it to every outbound request, and transparently heals an expired
// token mid-request by auto-logging in with the remember cookie and retrying
// the failed request exactly once. UI surfaces observe authentication changes
// through Subscribe rather than polling.
//
// There is no package-level singleton: construct a Client with New and hand
// it to whatever needs it.
package sessionclient
