package models

import (
	"strings"
	"time"
)

// Post is a blog post. TopicTags is the raw comma separated tag list.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	TopicTags *string   `json:"topic_tags,omitempty"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author,omitempty"`
}

// Tags splits TopicTags, trimming blanks.
func (p *Post) Tags() []string {
	if p.TopicTags == nil {
		return nil
	}
	return TagsFromString(*p.TopicTags)
}

// Score is upvotes minus downvotes.
func (p *Post) Score() int {
	return p.Upvotes - p.Downvotes
}

// PostInput is the body of POST /posts and PUT /posts/{id}.
type PostInput struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	TopicTags *string `json:"topic_tags"`
}

// NewPostInput builds a PostInput, normalising the tag list. An empty tag
// list is sent as null.
func NewPostInput(title, content, tags string) PostInput {
	in := PostInput{Title: strings.TrimSpace(title), Content: content}
	if t := TagsToString(TagsFromString(tags)); t != "" {
		in.TopicTags = &t
	}
	return in
}

// VoteCounts is returned by the up/down vote endpoints.
type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Comment belongs to a post.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentInput is the body of POST /posts/{id}/comments.
type CommentInput struct {
	Content string `json:"content"`
}

func TagsFromString(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func TagsToString(tags []string) string {
	return strings.Join(tags, ",")
}
