// Package session keeps the client's view of the server-issued session
// expiry.
//
// A Timer persists the absolute expiry under a fixed store key so it
// survives restarts, fires a warning shortly before the expiry and fires the
// expiry itself exactly once. Every reschedule cancels the previous handles
// first and bumps a generation counter, so a callback that was already in
// flight for an older schedule is dropped.
//
// A periodic drift check re-reads the store and compares against wall-clock
// time. It catches sleeps and suspends that delay the runtime timers, and
// it notices another client process clearing or extending the shared
// session. StoreWatcher triggers the same check as soon as the store file
// changes on disk.
package session
