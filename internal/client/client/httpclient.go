package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

const maxBody = 4 << 20

// HTTPClient talks JSON to the blog backend. It is safe for concurrent use.
type HTTPClient struct {
	base  *url.URL
	hc    *http.Client
	creds Credentials
	ic    *Interceptor
	log   logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for baseURL. transport may be nil.
func NewHTTPClient(baseURL string, creds Credentials, timeout time.Duration, transport http.RoundTripper, log logging.Logger) (*HTTPClient, error) {
	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	ic := NewInterceptor(transport, creds, base.Path)
	return &HTTPClient{
		base:  base,
		hc:    &http.Client{Transport: ic, Timeout: timeout},
		creds: creds,
		ic:    ic,
		log:   log.With("module", "httpclient"),
	}, nil
}

// ParseBaseURL validates an API base URL such as http://localhost:5000/api.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: want http(s)://host[/path]", raw)
	}
	return u, nil
}

func (c *HTTPClient) OnUnauthorized(fn func(ctx context.Context)) { c.ic.OnUnauthorized(fn) }

func (c *HTTPClient) Credentials() Credentials { return c.creds }

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, nil, nil, nil, "health")
}

/*************
 * Auth
 *************/

func (c *HTTPClient) Login(ctx context.Context, in models.Credentials) (*models.AuthResponse, error) {
	return c.authenticate(ctx, in, "login")
}

func (c *HTTPClient) Verify2FA(ctx context.Context, in models.TwoFactorCode) (*models.AuthResponse, error) {
	return c.authenticate(ctx, in, "verify-2fa")
}

func (c *HTTPClient) VerifyRegistration(ctx context.Context, in models.TwoFactorCode) (*models.AuthResponse, error) {
	return c.authenticate(ctx, in, "verify-registration")
}

func (c *HTTPClient) ExtendSession(ctx context.Context) (*models.AuthResponse, error) {
	return c.authenticate(ctx, nil, "auth", "extend-session")
}

func (c *HTTPClient) authenticate(ctx context.Context, in any, path ...string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, nil, in, &out, path...); err != nil {
		return nil, err
	}
	if err := c.creds.Remember(ctx, out.AccessToken); err != nil {
		c.log.Warn(ctx, "failed to remember access token", "error", err)
	}
	return &out, nil
}

func (c *HTTPClient) Register(ctx context.Context, in models.Registration) (string, error) {
	return c.message(ctx, in, "register")
}

func (c *HTTPClient) ResendVerification(ctx context.Context, identifier string) (string, error) {
	return c.message(ctx, models.VerificationResend{Identifier: identifier}, "resend-verification")
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.message(ctx, models.PasswordForgot{Email: email}, "forgot-password")
}

func (c *HTTPClient) ResetPassword(ctx context.Context, in models.PasswordReset) (string, error) {
	return c.message(ctx, in, "reset-password")
}

func (c *HTTPClient) ChangePassword(ctx context.Context, in models.PasswordChange) (string, error) {
	return c.message(ctx, in, "change-password")
}

func (c *HTTPClient) SetTwoFactor(ctx context.Context, enable bool) (*models.TwoFactorStatus, error) {
	var out models.TwoFactorStatus
	if err := c.do(ctx, http.MethodPost, nil, models.TwoFactorToggle{Enable: enable}, &out, "toggle-2fa"); err != nil {
		return nil, err
	}
	return &out, nil
}

// message POSTs in and returns the acknowledgement text.
func (c *HTTPClient) message(ctx context.Context, in any, path ...string) (string, error) {
	var out models.MessageResponse
	if err := c.do(ctx, http.MethodPost, nil, in, &out, path...); err != nil {
		return "", err
	}
	return out.Text(), nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, nil, nil, nil, "logout")
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, nil, nil, &u, "profile"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, in models.ProfileUpdate) error {
	return c.do(ctx, http.MethodPut, nil, in, nil, "profile")
}

func (c *HTTPClient) DeleteProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, nil, nil, nil, "profile")
}

/*************
 * Blog
 *************/

func (c *HTTPClient) ListPosts(ctx context.Context) ([]models.Post, error) {
	var out []models.Post
	if err := c.do(ctx, http.MethodGet, nil, nil, &out, "posts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodGet, nil, nil, &out, "posts", itoa(id)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPost, nil, in, &out, "posts"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPut, nil, in, &out, "posts", itoa(id)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeletePost(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, nil, nil, nil, "posts", itoa(id))
}

func (c *HTTPClient) Upvote(ctx context.Context, id int64) (*models.VoteCounts, error) {
	return c.vote(ctx, id, "upvote")
}

func (c *HTTPClient) Downvote(ctx context.Context, id int64) (*models.VoteCounts, error) {
	return c.vote(ctx, id, "downvote")
}

func (c *HTTPClient) vote(ctx context.Context, id int64, kind string) (*models.VoteCounts, error) {
	var out models.VoteCounts
	if err := c.do(ctx, http.MethodPost, nil, nil, &out, "posts", itoa(id), kind); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	var out []models.Comment
	if err := c.do(ctx, http.MethodGet, nil, nil, &out, "posts", itoa(postID), "comments"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	var out models.Comment
	in := models.CommentInput{Content: content}
	if err := c.do(ctx, http.MethodPost, nil, in, &out, "posts", itoa(postID), "comments"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteComment(ctx context.Context, postID, commentID int64) error {
	return c.do(ctx, http.MethodDelete, nil, nil, nil, "posts", itoa(postID), "comments", itoa(commentID))
}

func (c *HTTPClient) ListUsers(ctx context.Context, search string, page, perPage int) (*models.UsersPage, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 100
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out models.UsersPage
	if err := c.do(ctx, http.MethodGet, q, nil, &out, "users"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, username string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, nil, nil, &out, "users", username); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UserPosts(ctx context.Context, username string) ([]models.Post, error) {
	var out []models.Post
	if err := c.do(ctx, http.MethodGet, nil, nil, &out, "users", username, "posts"); err != nil {
		return nil, err
	}
	return out, nil
}

/*************
 * Plumbing
 *************/

func (c *HTTPClient) do(ctx context.Context, method string, query url.Values, in, out any, path ...string) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.base.JoinPath(path...)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return c.transportError(ctx, method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %v", ErrUnavailable, method, u.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, u.Path, err)
	}
	return nil
}

func (c *HTTPClient) transportError(ctx context.Context, method string, u *url.URL, err error) error {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return ErrSessionExpired
	case errors.Is(err, ErrCredentialsReplaced):
		return ErrCredentialsReplaced
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.log.Debug(ctx, "request failed", "method", method, "path", u.Path, "error", err)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
