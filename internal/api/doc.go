// Package api wraps the Wavecast platform's REST endpoints behind a typed
// client.
//
// Every endpoint returns the uniform {success, data, code, message} envelope;
// the client normalizes it so UI code never branches on transport errors:
//
//   - UNAUTHORIZED envelopes publish [events.EventUnauthorized] (the session
//     store reacts by invalidating itself) and surface as
//     [shared.ErrNotAuthenticated].
//   - Credential failures on login/register are per-category result flags,
//     never errors.
//   - Other non-success envelopes become [APIError], unwrapping to
//     [shared.ErrAPIRequest].
//
// Calls are rate limited client-side and bounded by a fixed default timeout
// of ten seconds unless configured otherwise.
package api
