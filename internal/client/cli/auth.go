package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
)

// Prompt indirections, swapped out in tests.
var (
	promptLine     = PromptLine
	promptBody     = PromptBody
	promptPassword = PromptPassword
	promptSecret   = PromptSecret
	confirm        = Confirm
)

var errPasswordMismatch = errors.New("passwords do not match")

// Register creates an account. The server mails a verification code; when
// the user enters it the account is verified and signed in right away.
func (a *App) Register(ctx context.Context, _ []string) error {
	username, err := promptLine(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := promptLine(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	msg, err := a.auth.Register(ctx, models.Registration{Username: username, Email: email, Password: string(password)})
	if err != nil {
		return err
	}
	if msg != "" {
		fmt.Fprintln(a.out, msg)
	}

	code, err := promptLine(a.reader, "Enter the verification code (empty to verify later)", a.out)
	if err != nil || code == "" {
		return err
	}
	u, err := a.auth.VerifyRegistration(ctx, email, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Username)
	return nil
}

// Login checks credentials and, when the account has two-factor
// authentication enabled, asks for the emailed code.
func (a *App) Login(ctx context.Context, args []string) error {
	var identifier string
	if len(args) > 0 {
		identifier = args[0]
	} else {
		var err error
		if identifier, err = promptLine(a.reader, "Enter username or email", a.out); err != nil {
			return err
		}
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.auth.SignIn(ctx, identifier, string(password))
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.log.Debug(ctx, "login rejected", "identifier", identifier)
		}
		return err
	}

	user := res.User
	if res.Requires2FA {
		code, err := promptLine(a.reader, fmt.Sprintf("Enter the code sent to %s", res.Email), a.out)
		if err != nil {
			return err
		}
		if user, err = a.auth.Verify2FA(ctx, res.Email, code); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", user.Username)
	return nil
}

func (a *App) Guest(ctx context.Context, _ []string) error {
	if err := a.auth.ContinueAsGuest(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Browsing as guest. Log in to post, comment or vote.")
	return nil
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	a.auth.Logout(ctx, false)
	return nil
}

func (a *App) Whoami(_ context.Context, _ []string) error {
	st := a.auth.State()
	switch {
	case st.IsAuthenticated && st.User != nil:
		u := st.User
		fmt.Fprintf(a.out, "%s <%s> (id %d)", u.Username, u.Email, u.ID)
		if u.Verified() {
			fmt.Fprint(a.out, " verified")
		}
		if u.TwoFactor() {
			fmt.Fprint(a.out, " 2fa")
		}
		fmt.Fprintln(a.out)
	case st.IsGuest:
		fmt.Fprintln(a.out, "guest")
	default:
		fmt.Fprintln(a.out, "not logged in")
	}
	return nil
}

// ProfileEdit changes username and email. Empty answers keep the current
// value.
func (a *App) ProfileEdit(ctx context.Context, _ []string) error {
	st := a.auth.State()
	if !st.IsAuthenticated || st.User == nil {
		return errors.New("log in first")
	}
	username, err := promptLine(a.reader, fmt.Sprintf("Username [%s]", st.User.Username), a.out)
	if err != nil {
		return err
	}
	email, err := promptLine(a.reader, fmt.Sprintf("Email [%s]", st.User.Email), a.out)
	if err != nil {
		return err
	}
	in := models.ProfileUpdate{Username: st.User.Username, Email: st.User.Email}
	if username != "" {
		in.Username = username
	}
	if email != "" {
		in.Email = email
	}

	u, err := a.auth.UpdateProfile(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated: %s <%s>\n", u.Username, u.Email)
	return nil
}

func (a *App) Extend(ctx context.Context, _ []string) error {
	exp, err := a.auth.ExtendSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Session extended until %s\n", exp.Local().Format("15:04:05"))
	return nil
}

// Status prints the session state and whether the server answers.
func (a *App) Status(ctx context.Context, _ []string) error {
	st := a.auth.State()
	switch {
	case st.IsAuthenticated && st.User != nil:
		fmt.Fprintf(a.out, "Logged in as %s\n", st.User.Username)
		if snap := a.auth.Session(); snap.Active() {
			fmt.Fprintf(a.out, "Session expires at %s (%s left)\n",
				snap.ExpiresAt.Local().Format("15:04:05"), formatRemaining(snap.Remaining))
		}
	case st.IsGuest:
		fmt.Fprintln(a.out, "Guest")
	default:
		fmt.Fprintln(a.out, "Not logged in")
	}

	if err := a.auth.Ping(ctx); err != nil {
		fmt.Fprintln(a.out, "Server: unreachable")
		a.log.Debug(ctx, "ping failed", "error", err)
	} else {
		fmt.Fprintln(a.out, "Server: online")
	}
	return nil
}

// Passwd changes the account password. The server ends every session of
// the account, this one included, so the user logs in again afterwards.
func (a *App) Passwd(ctx context.Context, _ []string) error {
	if !a.isLoggedIn() {
		return errors.New("log in first")
	}
	current, err := promptSecret(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	return a.auth.ChangePassword(ctx, string(current), string(next))
}

// TwoFactor switches emailed login codes on or off.
func (a *App) TwoFactor(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return usageError("2fa on|off")
	}
	on, err := a.auth.SetTwoFactor(ctx, args[0] == "on")
	if err != nil {
		return err
	}
	if on {
		fmt.Fprintln(a.out, "Two-factor authentication enabled. Logins now ask for an emailed code.")
	} else {
		fmt.Fprintln(a.out, "Two-factor authentication disabled.")
	}
	return nil
}

// Resend mails a fresh verification code to an unverified account and lets
// the user enter it right away.
func (a *App) Resend(ctx context.Context, args []string) error {
	identifier, err := a.argOrPrompt(args, "Enter username or email")
	if err != nil {
		return err
	}
	msg, err := a.auth.ResendVerification(ctx, identifier)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)

	code, err := promptLine(a.reader, "Enter the verification code (empty to verify later)", a.out)
	if err != nil || code == "" {
		return err
	}
	email := identifier
	if !strings.Contains(email, "@") {
		if email, err = promptLine(a.reader, "Enter the account email", a.out); err != nil {
			return err
		}
	}
	u, err := a.auth.VerifyRegistration(ctx, email, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Username)
	return nil
}

// Forgot asks the server to mail a password reset code. The answer is the
// same whether or not the email belongs to an account.
func (a *App) Forgot(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "Enter your email")
	if err != nil {
		return err
	}
	msg, err := a.auth.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)

	code, err := promptLine(a.reader, "Enter the reset code (empty to reset later)", a.out)
	if err != nil || code == "" {
		return err
	}
	return a.resetWith(ctx, code)
}

// Reset sets a new password using a code mailed by forgot.
func (a *App) Reset(ctx context.Context, args []string) error {
	code, err := a.argOrPrompt(args, "Enter the reset code")
	if err != nil {
		return err
	}
	return a.resetWith(ctx, code)
}

func (a *App) resetWith(ctx context.Context, code string) error {
	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	msg, err := a.auth.ResetPassword(ctx, code, string(password))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// newPassword asks for a new password twice.
func (a *App) newPassword() ([]byte, error) {
	next, err := promptSecret(a.out, "New password")
	if err != nil {
		return nil, err
	}
	again, err := promptSecret(a.out, "Confirm new password")
	if err != nil {
		common.WipeByteArray(next)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(next, again) {
		common.WipeByteArray(next)
		return nil, errPasswordMismatch
	}
	return next, nil
}

func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	v, err := promptLine(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", errors.New("a value is required")
	}
	return v, nil
}
