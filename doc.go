// Package auth provides account authentication and credential lifecycle
// primitives for a content-publishing backend: sign-up, two-identifier
// sign-in, bcrypt password storage, JWT issuance, and stateless token
// revocation.
//
// Revocation model:
//   - Accounts carry a token_version counter persisted via Bun. Every
//     issued token snapshots the counter in its tkv claim; Verify compares
//     the snapshot against the stored counter on each request. Advancing
//     the counter (Revoker.RevokeAll, or a password change) instantly
//     invalidates every outstanding token without a server-side session
//     store or revocation list. The price is one account-store read per
//     verification.
//   - Counter updates happen inside the database (UPDATE ... SET
//     token_version = token_version + 1 RETURNING ...) so concurrent
//     revocations never lose increments.
//
// Identifiers:
//   - An account is reachable by email or phone. Sign-in accepts exactly
//     one of the two; supplying both, or neither, fails validation. Phone
//     numbers are normalized to E.164 before storage and lookup.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to
//     describe sign-up, sign-in, password change, and revocation events.
//     Sinks run best-effort (errors are logged) and are the hook for
//     compromise detection: a sink that flags an account calls RevokeAll.
package auth
