package models

import "time"

// Post is a blog post. TopicTags is the comma separated tag list, nil when
// the post has no tags. Author is filled in by queries that join users.
type Post struct {
	ID        int64
	UserID    int64
	Title     string
	Content   string
	TopicTags *string
	Upvotes   int
	Downvotes int
	CreatedAt time.Time
	Author    string
}

type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Username  string
	Content   string
	CreatedAt time.Time
}

// VoteKind is the direction of a vote.
type VoteKind string

const (
	Upvote   VoteKind = "upvote"
	Downvote VoteKind = "downvote"
)

type Vote struct {
	UserID int64
	PostID int64
	Kind   VoteKind
}
