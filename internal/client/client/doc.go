// Package client contains the client-side building blocks for talking to
// the blog backend.
//
// # Overview
//
// The package provides:
//  1. Transport-agnostic API contracts (AuthAPI, BlogAPI, combined in Client).
//  2. HTTPClient, a JSON-over-HTTP implementation. Every request goes through
//     one Interceptor, which applies the configured Credentials and turns an
//     unexpected 401 into ErrSessionExpired after notifying the
//     unauthorized handler exactly once per response.
//  3. Credentials: cookie mode (a PersistentJar backed by the local store)
//     or bearer mode (a token kept under the "token" key). The mode is chosen
//     once per client.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database with embedded goose migrations.
//
// # Error Handling
//
// HTTP statuses are mapped to sentinel errors that callers match with
// errors.Is: ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict,
// ErrBadRequest, ErrUnavailable and ErrSessionExpired. Non-2xx responses
// are returned as *APIError, which carries the server message and unwraps
// to the sentinel.
//
// A 401 only reaches the caller as ErrUnauthorized on the endpoints where
// it is an expected answer: the profile check, the credential endpoints and
// logout. Everywhere else the session is treated as gone.
package client
