package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/config"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/services"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/session"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

// ------------ fakes ------------

type fakeAuth struct {
	services.AuthService

	state services.State
	snap  session.Snapshot

	signIn      *services.SignInResult
	signInErr   error
	lastSignIn  []string
	verified    []string
	revalidates int
	revalErr    error
	logouts     int
	updated     *models.ProfileUpdate
	extendAt    time.Time
	pingErr     error

	changed    []string
	changeErr  error
	twoFA      *bool
	account    []string
	accountErr error
}

func (f *fakeAuth) State() services.State    { return f.state }
func (f *fakeAuth) Session() session.Snapshot { return f.snap }

func (f *fakeAuth) SignIn(_ context.Context, id, pw string) (*services.SignInResult, error) {
	f.lastSignIn = []string{id, pw}
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if f.signIn.User != nil {
		f.state = services.State{User: f.signIn.User, IsAuthenticated: true}
	}
	return f.signIn, nil
}

func (f *fakeAuth) Verify2FA(_ context.Context, email, code string) (*models.User, error) {
	f.verified = []string{email, code}
	u := &models.User{ID: 1, Username: "alice"}
	f.state = services.State{User: u, IsAuthenticated: true}
	return u, nil
}

func (f *fakeAuth) Logout(context.Context, bool) {
	f.logouts++
	f.state = services.State{}
}

func (f *fakeAuth) Revalidate(context.Context) error {
	f.revalidates++
	return f.revalErr
}

func (f *fakeAuth) UpdateProfile(_ context.Context, in models.ProfileUpdate) (*models.User, error) {
	f.updated = &in
	return &models.User{ID: 1, Username: in.Username, Email: in.Email}, nil
}

func (f *fakeAuth) ChangePassword(_ context.Context, current, next string) error {
	f.changed = []string{current, next}
	if f.changeErr != nil {
		return f.changeErr
	}
	f.state = services.State{}
	return nil
}

func (f *fakeAuth) SetTwoFactor(_ context.Context, enable bool) (bool, error) {
	f.twoFA = &enable
	return enable, nil
}

func (f *fakeAuth) ResendVerification(_ context.Context, identifier string) (string, error) {
	f.account = append(f.account, "resend "+identifier)
	return "Verification email sent.", f.accountErr
}

func (f *fakeAuth) VerifyRegistration(ctx context.Context, email, code string) (*models.User, error) {
	return f.Verify2FA(ctx, email, code)
}

func (f *fakeAuth) ForgotPassword(_ context.Context, email string) (string, error) {
	f.account = append(f.account, "forgot "+email)
	return "If that email exists, a password reset code has been sent.", f.accountErr
}

func (f *fakeAuth) ResetPassword(_ context.Context, token, password string) (string, error) {
	f.account = append(f.account, "reset "+token+" "+password)
	return "Password has been reset successfully", f.accountErr
}

func (f *fakeAuth) ExtendSession(context.Context) (time.Time, error) { return f.extendAt, nil }
func (f *fakeAuth) Ping(context.Context) error                       { return f.pingErr }

type fakeBlog struct {
	services.BlogService

	filter    services.PostFilter
	posts     []models.Post
	post      *models.Post
	updated   []string
	voteUp    *bool
	usersArgs []any
	deleted   []int64
	err       error
}

func (f *fakeBlog) DeletePost(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeBlog) Posts(_ context.Context, flt services.PostFilter) ([]models.Post, error) {
	f.filter = flt
	return f.posts, f.err
}

func (f *fakeBlog) Post(_ context.Context, id int64) (*models.Post, []models.Comment, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.post, []models.Comment{{ID: 1, Username: "bob", Content: "hi"}}, nil
}

func (f *fakeBlog) UpdatePost(_ context.Context, id int64, title, content, tags string) (*models.Post, error) {
	f.updated = []string{title, content, tags}
	return &models.Post{ID: id}, nil
}

func (f *fakeBlog) Vote(_ context.Context, id int64, up bool) (*models.VoteCounts, error) {
	f.voteUp = &up
	return &models.VoteCounts{Upvotes: 2, Downvotes: 1}, f.err
}

func (f *fakeBlog) Users(_ context.Context, search string, page int) (*models.UsersPage, error) {
	f.usersArgs = []any{search, page}
	return &models.UsersPage{Users: []models.User{{ID: 1, Username: "ann"}}, Total: 1, Pages: 1, CurrentPage: page}, nil
}

// ------------ helpers ------------

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func newTestApp(auth *fakeAuth, blog *fakeBlog, r *bufio.Reader) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return &App{
		config: cfg,
		auth:   auth,
		blog:   blog,
		reader: r,
		out:    &out,
		log:    logging.Discard(),
		clock:  clockwork.NewFakeClock(),
	}, &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := promptPassword
	promptPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { promptPassword = orig })
}

// stubSecrets answers hidden prompts with values in order and records the
// labels asked for.
func stubSecrets(t *testing.T, values ...string) *[]string {
	t.Helper()
	var labels []string
	orig := promptSecret
	promptSecret = func(_ io.Writer, label string) ([]byte, error) {
		labels = append(labels, label)
		if len(values) == 0 {
			return nil, io.EOF
		}
		v := values[0]
		values = values[1:]
		return []byte(v), nil
	}
	t.Cleanup(func() { promptSecret = orig })
	return &labels
}

// ------------ tests ------------

func TestLogin_Plain(t *testing.T) {
	stubPassword(t, "pw")
	auth := &fakeAuth{signIn: &services.SignInResult{User: &models.User{ID: 1, Username: "alice"}}}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines())

	require.NoError(t, app.Login(context.Background(), []string{"alice"}))
	assert.Equal(t, []string{"alice", "pw"}, auth.lastSignIn)
	assert.Contains(t, out.String(), "Welcome, alice!")
	assert.True(t, app.isLoggedIn())
}

func TestLogin_TwoFactor(t *testing.T) {
	stubPassword(t, "pw")
	auth := &fakeAuth{signIn: &services.SignInResult{Requires2FA: true, Email: "a@x"}}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines("alice", "123456"))

	require.NoError(t, app.Login(context.Background(), nil))
	assert.Equal(t, []string{"a@x", "123456"}, auth.verified)
	assert.Contains(t, out.String(), "Enter the code sent to a@x")
	assert.Contains(t, out.String(), "Welcome, alice!")
}

func TestLogin_Rejected(t *testing.T) {
	stubPassword(t, "bad")
	auth := &fakeAuth{signInErr: &client.APIError{Status: 401, Message: "Invalid credentials"}}
	app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines("alice"))

	err := app.Login(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, "Invalid credentials", client.Message(err))
}

func TestLogout(t *testing.T) {
	auth := &fakeAuth{state: services.State{IsAuthenticated: true, User: &models.User{Username: "a"}}}
	app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines())

	require.NoError(t, app.Logout(context.Background(), nil))
	require.Equal(t, 1, auth.logouts)
	require.False(t, app.isLoggedIn())
}

func TestGetStatus(t *testing.T) {
	auth := &fakeAuth{}
	app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines())
	assert.Equal(t, "", app.getStatus())

	auth.state = services.State{IsGuest: true}
	assert.Equal(t, "(guest)", app.getStatus())

	auth.state = services.State{IsAuthenticated: true, User: &models.User{Username: "alice"}}
	assert.Equal(t, "(alice)", app.getStatus())

	auth.snap = session.Snapshot{ExpiresAt: time.Now().Add(time.Hour), Remaining: 90*time.Minute + 30*time.Second}
	assert.Equal(t, "(alice 1h30m0s)", app.getStatus())
}

func TestProfileEdit_KeepsEmptyAnswers(t *testing.T) {
	auth := &fakeAuth{state: services.State{IsAuthenticated: true, User: &models.User{ID: 1, Username: "alice", Email: "a@x"}}}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines("", "new@x"))

	require.NoError(t, app.ProfileEdit(context.Background(), nil))
	assert.Equal(t, models.ProfileUpdate{Username: "alice", Email: "new@x"}, *auth.updated)
	assert.Contains(t, out.String(), "Profile updated: alice <new@x>")
}

func TestProfileEdit_RequiresLogin(t *testing.T) {
	app, _ := newTestApp(&fakeAuth{}, &fakeBlog{}, readerFromLines())
	require.Error(t, app.ProfileEdit(context.Background(), nil))
}

func TestStatus_ReportsServer(t *testing.T) {
	auth := &fakeAuth{pingErr: client.ErrUnavailable}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines())

	require.NoError(t, app.Status(context.Background(), nil))
	assert.Contains(t, out.String(), "Not logged in")
	assert.Contains(t, out.String(), "Server: unreachable")
}

func TestPosts_ParsesSortAndSearch(t *testing.T) {
	blog := &fakeBlog{posts: []models.Post{{ID: 2, Title: "Hello", Author: "ann", Upvotes: 3}}}
	app, out := newTestApp(&fakeAuth{}, blog, readerFromLines())

	require.NoError(t, app.Posts(context.Background(), []string{"Popular", "go", "tips"}))
	assert.Equal(t, services.PostFilter{Sort: services.SortPopular, Search: "go tips"}, blog.filter)
	assert.Contains(t, out.String(), "Hello by ann")

	require.NoError(t, app.Posts(context.Background(), []string{"golang"}))
	assert.Equal(t, services.PostFilter{Sort: services.SortNewest, Search: "golang"}, blog.filter)
}

func TestPosts_Empty(t *testing.T) {
	app, out := newTestApp(&fakeAuth{}, &fakeBlog{}, readerFromLines())
	require.NoError(t, app.Posts(context.Background(), nil))
	assert.Contains(t, out.String(), "No posts found.")
}

func TestPost_ShowsComments(t *testing.T) {
	tags := "go,testing"
	blog := &fakeBlog{post: &models.Post{ID: 3, Title: "T", Content: "body", TopicTags: &tags, UserID: 7}}
	app, out := newTestApp(&fakeAuth{}, blog, readerFromLines())

	require.NoError(t, app.Post(context.Background(), []string{"3"}))
	s := out.String()
	assert.Contains(t, s, "#3 T")
	assert.Contains(t, s, "by user 7")
	assert.Contains(t, s, "tags: go, testing")
	assert.Contains(t, s, "1 comment(s)")
	assert.Contains(t, s, "bob")
}

func TestPost_Usage(t *testing.T) {
	app, _ := newTestApp(&fakeAuth{}, &fakeBlog{}, readerFromLines())

	for _, args := range [][]string{nil, {"abc"}, {"-1"}} {
		err := app.Post(context.Background(), args)
		var ue usageError
		require.True(t, errors.As(err, &ue), "args %v", args)
		require.Equal(t, "usage: post <id>", err.Error())
	}
}

func TestEditPost_KeepsCurrentValues(t *testing.T) {
	tags := "go"
	blog := &fakeBlog{post: &models.Post{ID: 4, Title: "Old", Content: "old body", TopicTags: &tags}}
	app, _ := newTestApp(&fakeAuth{}, blog, readerFromLines("New title", "", ""))

	require.NoError(t, app.EditPost(context.Background(), []string{"4"}))
	assert.Equal(t, []string{"New title", "old body", "go"}, blog.updated)
}

func TestEditPost_SessionExpiredShortCircuits(t *testing.T) {
	blog := &fakeBlog{err: client.ErrSessionExpired}
	app, _ := newTestApp(&fakeAuth{}, blog, readerFromLines("never read"))

	err := app.EditPost(context.Background(), []string{"4"})
	require.ErrorIs(t, err, client.ErrSessionExpired)
	require.Nil(t, blog.updated)
}

func TestVote(t *testing.T) {
	blog := &fakeBlog{}
	app, out := newTestApp(&fakeAuth{}, blog, readerFromLines())

	require.NoError(t, app.Vote(context.Background(), []string{"5"}, false))
	require.NotNil(t, blog.voteUp)
	assert.False(t, *blog.voteUp)
	assert.Contains(t, out.String(), "Post #5: +2/-1")

	err := app.Vote(context.Background(), nil, true)
	assert.EqualError(t, err, "usage: up <id>")
}

func TestUsers_PageArgument(t *testing.T) {
	blog := &fakeBlog{}
	app, out := newTestApp(&fakeAuth{}, blog, readerFromLines())

	require.NoError(t, app.Users(context.Background(), []string{"ann", "lee", "3"}))
	assert.Equal(t, []any{"ann lee", 3}, blog.usersArgs)
	assert.Contains(t, out.String(), "page 3 of 1 (1 users)")

	require.NoError(t, app.Users(context.Background(), nil))
	assert.Equal(t, []any{"", 1}, blog.usersArgs)
}

func TestWarnPrintsRemaining(t *testing.T) {
	app, out := newTestApp(&fakeAuth{}, &fakeBlog{}, readerFromLines())
	app.warn(5 * time.Minute)
	assert.Contains(t, out.String(), "Your session expires in 5m0s")
}

func TestDeletePost_AsksFirst(t *testing.T) {
	blog := &fakeBlog{}
	app, out := newTestApp(&fakeAuth{}, blog, readerFromLines("n", "y"))

	require.NoError(t, app.DeletePost(context.Background(), []string{"8"}))
	assert.Empty(t, blog.deleted)
	assert.Contains(t, out.String(), "Cancelled")

	require.NoError(t, app.DeletePost(context.Background(), []string{"8"}))
	assert.Equal(t, []int64{8}, blog.deleted)
	assert.Contains(t, out.String(), "Deleted post #8")
}

func TestPasswd(t *testing.T) {
	loggedIn := services.State{IsAuthenticated: true, User: &models.User{ID: 1, Username: "alice"}}

	t.Run("changes password and ends the session", func(t *testing.T) {
		labels := stubSecrets(t, "old-secret", "new-secret", "new-secret")
		auth := &fakeAuth{state: loggedIn}
		app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines())

		require.NoError(t, app.Passwd(context.Background(), nil))
		assert.Equal(t, []string{"old-secret", "new-secret"}, auth.changed)
		assert.Equal(t, []string{"Current password", "New password", "Confirm new password"}, *labels)
		assert.False(t, app.isLoggedIn())
	})

	t.Run("mismatched confirmation never reaches the server", func(t *testing.T) {
		stubSecrets(t, "old-secret", "new-secret", "typo")
		auth := &fakeAuth{state: loggedIn}
		app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines())

		require.ErrorIs(t, app.Passwd(context.Background(), nil), errPasswordMismatch)
		assert.Nil(t, auth.changed)
	})

	t.Run("server rejection is reported", func(t *testing.T) {
		stubSecrets(t, "wrong", "new-secret", "new-secret")
		auth := &fakeAuth{state: loggedIn, changeErr: &client.APIError{Status: 400, Message: "Current password is incorrect"}}
		app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines())

		err := app.Passwd(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, "Current password is incorrect", client.Message(err))
		assert.True(t, app.isLoggedIn())
	})

	t.Run("requires login", func(t *testing.T) {
		labels := stubSecrets(t)
		app, _ := newTestApp(&fakeAuth{}, &fakeBlog{}, readerFromLines())

		require.Error(t, app.Passwd(context.Background(), nil))
		assert.Empty(t, *labels)
	})
}

func TestTwoFactorCommand(t *testing.T) {
	auth := &fakeAuth{}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines())

	require.NoError(t, app.TwoFactor(context.Background(), []string{"on"}))
	require.NotNil(t, auth.twoFA)
	assert.True(t, *auth.twoFA)
	assert.Contains(t, out.String(), "Two-factor authentication enabled")

	require.NoError(t, app.TwoFactor(context.Background(), []string{"off"}))
	assert.False(t, *auth.twoFA)
	assert.Contains(t, out.String(), "Two-factor authentication disabled")

	for _, args := range [][]string{nil, {"yes"}, {"on", "off"}} {
		assert.EqualError(t, app.TwoFactor(context.Background(), args), "usage: 2fa on|off", "args %v", args)
	}
}

func TestWhoami_ShowsTwoFactor(t *testing.T) {
	on := true
	auth := &fakeAuth{state: services.State{IsAuthenticated: true, User: &models.User{ID: 1, Username: "alice", Email: "a@x", TwoFAEnabled: &on}}}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines())

	require.NoError(t, app.Whoami(context.Background(), nil))
	assert.Equal(t, "alice <a@x> (id 1) 2fa\n", out.String())
}

func TestForgot_ThenResetRightAway(t *testing.T) {
	stubSecrets(t, "new-secret", "new-secret")
	auth := &fakeAuth{}
	app, out := newTestApp(auth, &fakeBlog{}, readerFromLines("tok-1"))

	require.NoError(t, app.Forgot(context.Background(), []string{"a@x"}))
	assert.Equal(t, []string{"forgot a@x", "reset tok-1 new-secret"}, auth.account)
	assert.Contains(t, out.String(), "password reset code has been sent")
	assert.Contains(t, out.String(), "Password has been reset successfully")
}

func TestForgot_ResetLater(t *testing.T) {
	labels := stubSecrets(t)
	auth := &fakeAuth{}
	app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines("a@x", ""))

	require.NoError(t, app.Forgot(context.Background(), nil))
	assert.Equal(t, []string{"forgot a@x"}, auth.account)
	assert.Empty(t, *labels)
}

func TestReset(t *testing.T) {
	stubSecrets(t, "new-secret", "new-secret")
	auth := &fakeAuth{accountErr: &client.APIError{Status: 400, Message: "Invalid or expired reset token"}}
	app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines("stale"))

	err := app.Reset(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired reset token", client.Message(err))
	assert.Equal(t, []string{"reset stale new-secret"}, auth.account)
}

func TestResend(t *testing.T) {
	t.Run("verify later", func(t *testing.T) {
		auth := &fakeAuth{}
		app, out := newTestApp(auth, &fakeBlog{}, readerFromLines(""))

		require.NoError(t, app.Resend(context.Background(), []string{"alice"}))
		assert.Equal(t, []string{"resend alice"}, auth.account)
		assert.Contains(t, out.String(), "Verification email sent.")
		assert.Nil(t, auth.verified)
	})

	t.Run("email identifier verifies right away", func(t *testing.T) {
		auth := &fakeAuth{}
		app, out := newTestApp(auth, &fakeBlog{}, readerFromLines("a@x", "654321"))

		require.NoError(t, app.Resend(context.Background(), nil))
		assert.Equal(t, []string{"resend a@x"}, auth.account)
		assert.Equal(t, []string{"a@x", "654321"}, auth.verified)
		assert.Contains(t, out.String(), "Welcome, alice!")
	})

	t.Run("username asks for the email", func(t *testing.T) {
		auth := &fakeAuth{}
		app, _ := newTestApp(auth, &fakeBlog{}, readerFromLines("654321", "a@x"))

		require.NoError(t, app.Resend(context.Background(), []string{"alice"}))
		assert.Equal(t, []string{"a@x", "654321"}, auth.verified)
	})
}
