package httpapi

import (
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

type credentialsRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type identifierRequest struct {
	Identifier string `json:"identifier"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type toggle2FARequest struct {
	Enable bool `json:"enable"`
}

type postRequest struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	TopicTags *string `json:"topic_tags"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type userResponse struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	IsVerified   bool      `json:"is_verified"`
	TwoFAEnabled *bool     `json:"twofa_enabled,omitempty"`
}

// authResponse answers every route that may open a session.
// SessionExpiresAt is in Unix seconds.
type authResponse struct {
	User             *userResponse `json:"user,omitempty"`
	Message          string        `json:"message"`
	SessionExpiresAt int64         `json:"sessionExpiresAt,omitempty"`
	AccessToken      string        `json:"access_token,omitempty"`
	Requires2FA      bool          `json:"requires_2fa,omitempty"`
	Email            string        `json:"email,omitempty"`
}

type usersPageResponse struct {
	Users       []userResponse `json:"users"`
	Total       int            `json:"total"`
	Pages       int            `json:"pages"`
	CurrentPage int            `json:"current_page"`
}

type postResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	TopicTags *string   `json:"topic_tags"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author"`
}

type commentResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

type voteResponse struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// privateUser includes the email and the 2FA setting and is only returned
// to the account owner.
func privateUser(u *models.User) *userResponse {
	twofa := u.TwoFAEnabled
	return &userResponse{
		ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt,
		IsVerified: u.IsVerified, TwoFAEnabled: &twofa,
	}
}

func publicUser(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt, IsVerified: u.IsVerified}
}

func toPost(p *models.Post) postResponse {
	return postResponse{
		ID: p.ID, Title: p.Title, Content: p.Content, TopicTags: p.TopicTags,
		Upvotes: p.Upvotes, Downvotes: p.Downvotes, CreatedAt: p.CreatedAt,
		UserID: p.UserID, Author: p.Author,
	}
}

func toPosts(ps []models.Post) []postResponse {
	out := make([]postResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toPost(&ps[i]))
	}
	return out
}

func toComment(c *models.Comment) commentResponse {
	return commentResponse{ID: c.ID, Content: c.Content, UserID: c.UserID, Username: c.Username, PostID: c.PostID, CreatedAt: c.CreatedAt}
}
