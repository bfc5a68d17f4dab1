package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	resume(ctx context.Context)

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Guest(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Whoami(ctx context.Context, args []string) error
	ProfileEdit(ctx context.Context, args []string) error
	Extend(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Passwd(ctx context.Context, args []string) error
	TwoFactor(ctx context.Context, args []string) error
	Resend(ctx context.Context, args []string) error
	Forgot(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error

	Posts(ctx context.Context, args []string) error
	Post(ctx context.Context, args []string) error
	NewPost(ctx context.Context, args []string) error
	EditPost(ctx context.Context, args []string) error
	DeletePost(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	DeleteComment(ctx context.Context, args []string) error
	Vote(ctx context.Context, args []string, up bool) error
	Users(ctx context.Context, args []string) error
	User(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, resend [user], login, forgot [email], reset [code], guest, " +
		"posts, post <id>, users, user <name>, status, exit"
	helpLoggedIn = "Available commands: posts, post <id>, newpost, editpost <id>, delpost <id>, comment <id>, " +
		"delcomment <post> <id>, up <id>, down <id>, users, user <name>, whoami, profile-edit, passwd, " +
		"2fa on|off, extend, status, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a,
// writing prompts and reports to out. out is shared with background
// callbacks and must be safe for concurrent use. The loop exits on EOF, on
// "exit"/"quit", or when ctx is cancelled.
//
// Command errors are reported and the loop continues. ErrSessionExpired is
// not reported: the session-expired banner has already been rendered.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	report := func(err error) {
		if err == nil || errors.Is(err, client.ErrSessionExpired) {
			return
		}
		fmt.Fprintln(out, "Error:", client.Message(err))
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "blog %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(out, "Bye!")
			return
		}

		a.resume(ctx)

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, helpLoggedIn)
			} else {
				fmt.Fprintln(out, helpLoggedOut)
			}
		case "register":
			report(a.Register(ctx, args))
		case "login":
			report(a.Login(ctx, args))
		case "guest":
			report(a.Guest(ctx, args))
		case "logout":
			report(a.Logout(ctx, args))
		case "whoami":
			report(a.Whoami(ctx, args))
		case "profile-edit":
			report(a.ProfileEdit(ctx, args))
		case "extend":
			report(a.Extend(ctx, args))
		case "status":
			report(a.Status(ctx, args))
		case "passwd":
			report(a.Passwd(ctx, args))
		case "2fa":
			report(a.TwoFactor(ctx, args))
		case "resend":
			report(a.Resend(ctx, args))
		case "forgot":
			report(a.Forgot(ctx, args))
		case "reset":
			report(a.Reset(ctx, args))
		case "posts", "l":
			report(a.Posts(ctx, args))
		case "post":
			report(a.Post(ctx, args))
		case "newpost":
			report(a.NewPost(ctx, args))
		case "editpost":
			report(a.EditPost(ctx, args))
		case "delpost":
			report(a.DeletePost(ctx, args))
		case "comment":
			report(a.Comment(ctx, args))
		case "delcomment":
			report(a.DeleteComment(ctx, args))
		case "up":
			report(a.Vote(ctx, args, true))
		case "down":
			report(a.Vote(ctx, args, false))
		case "users":
			report(a.Users(ctx, args))
		case "user":
			report(a.User(ctx, args))
		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }
