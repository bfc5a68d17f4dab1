// Package cli provides the interactive blog command-line client.
//
// App wires the auth and blog services into a line-oriented REPL. The
// session lifecycle runs underneath it: a warning is printed shortly before
// the session expires, navigations requested by the auth service are
// rendered as banners, and the session is re-checked when the process
// resumes (SIGCONT) or the user returns after an idle period.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
