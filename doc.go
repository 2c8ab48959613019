// Package ayushya provides passwordless authentication (one-time codes,
// JWT issuance, stateful sessions) plus lifecycle extension points for the
// Ayushya wellness backend.
//
// Login flow:
//   - RequestChallenge issues a short-lived numeric code for a contact point
//     and hands it to a Notifier for delivery. Repeat requests supersede any
//     pending code for the same contact point.
//   - CompleteVerification checks the code against the pending challenge,
//     provisions the account on first login, mints a JWT, and opens a session
//     record in the same transaction that consumes the challenge.
//
// Token authority is split:
//   - VerifyToken checks only the token itself (signature, expiry, issuer,
//     audience) and never touches storage.
//   - Authorize and AuthorizeSession additionally consult the account status
//     and the session store, so revocation and deactivation take effect
//     before the token expires.
//
// User lifecycle:
//   - Users carry a UserStatus field that is persisted via Bun. Statuses cover
//     pending, active, deactivated, and archived flows. UserStateMachine
//     centralizes the transition graph, timestamp handling, hooks, and
//     persistence; deactivation revokes the account's sessions through an
//     after-transition hook.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     state machine to describe challenge, login, logout, session, and
//     lifecycle events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package ayushya
