package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/repomanager"
)

const (
	maxTitleLen   = 200
	maxContentLen = 10000
	maxCommentLen = 2000
	maxTags       = 8
	maxTagLen     = 30
)

var (
	errPostNotFound    = common.WithMessage(common.ErrorNotFound, "Post not found")
	errCommentNotFound = common.WithMessage(common.ErrorNotFound, "Comment not found")
)

// BlogService owns posts, votes and comments. Writes check authorship;
// the caller has already authenticated userID.
type BlogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewBlogService(db *sql.DB, m repomanager.RepositoryManager) *BlogService {
	return &BlogService{db: db, repomanager: m}
}

// PostInput is a validated-on-use post body. TopicTags nil means no tags.
type PostInput struct {
	Title     string
	Content   string
	TopicTags *string
}

func (s *BlogService) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.repomanager.Posts(s.db).List(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return posts, nil
}

func (s *BlogService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := s.repomanager.Posts(s.db).Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errPostNotFound)
	}
	return p, nil
}

// UserPosts lists the posts written by username.
func (s *BlogService) UserPosts(ctx context.Context, username string) ([]models.Post, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, common.WithMessage(common.ErrorNotFound, "User not found"))
	}
	posts, err := s.repomanager.Posts(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return posts, nil
}

func (s *BlogService) CreatePost(ctx context.Context, userID int64, in PostInput) (*models.Post, error) {
	in, err := normalizePost(in)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)
		created, err := repo.Create(ctx, &models.Post{UserID: userID, Title: in.Title, Content: in.Content, TopicTags: in.TopicTags})
		if err != nil {
			return err
		}
		post, err = repo.Get(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", common.ErrorInternal)
	}
	return post, nil
}

func (s *BlogService) UpdatePost(ctx context.Context, userID, postID int64, in PostInput) (*models.Post, error) {
	in, err := normalizePost(in)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)
		p, err := repo.Get(ctx, postID)
		if err != nil {
			return notFoundOr(err, errPostNotFound)
		}
		if p.UserID != userID {
			return common.WithMessage(common.ErrorForbidden, "You are not authorized to edit this post")
		}
		p.Title, p.Content, p.TopicTags = in.Title, in.Content, in.TopicTags
		if err := repo.Update(ctx, p); err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, passKnown(err)
	}
	return post, nil
}

func (s *BlogService) DeletePost(ctx context.Context, userID, postID int64) error {
	repo := s.repomanager.Posts(s.db)
	p, err := repo.Get(ctx, postID)
	if err != nil {
		return notFoundOr(err, errPostNotFound)
	}
	if p.UserID != userID {
		return common.WithMessage(common.ErrorForbidden, "You are not authorized to delete this post")
	}
	if err := repo.Delete(ctx, postID); err != nil {
		return notFoundOr(err, errPostNotFound)
	}
	return nil
}

// Vote toggles the caller's vote. Repeating a vote removes it; voting the
// other way flips it. The new totals are returned.
func (s *BlogService) Vote(ctx context.Context, userID, postID int64, kind models.VoteKind) (up, down int, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		posts := s.repomanager.Posts(tx)
		votes := s.repomanager.Votes(tx)

		if _, err := posts.Get(ctx, postID); err != nil {
			return notFoundOr(err, errPostNotFound)
		}

		prev, err := votes.Get(ctx, userID, postID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		du, dd := delta(kind, 1)
		switch {
		case prev == nil:
			err = votes.Put(ctx, models.Vote{UserID: userID, PostID: postID, Kind: kind})
		case prev.Kind == kind:
			du, dd = delta(kind, -1)
			err = votes.Delete(ctx, userID, postID)
		default:
			pu, pd := delta(prev.Kind, -1)
			du, dd = du+pu, dd+pd
			err = votes.Put(ctx, models.Vote{UserID: userID, PostID: postID, Kind: kind})
		}
		if err != nil {
			return err
		}

		up, down, err = posts.AdjustVotes(ctx, postID, du, dd)
		return err
	})
	if err != nil {
		return 0, 0, passKnown(err)
	}
	return up, down, nil
}

func (s *BlogService) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	if _, err := s.repomanager.Posts(s.db).Get(ctx, postID); err != nil {
		return nil, notFoundOr(err, errPostNotFound)
	}
	comments, err := s.repomanager.Comments(s.db).ListByPost(ctx, postID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return comments, nil
}

func (s *BlogService) CreateComment(ctx context.Context, userID, postID int64, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.WithMessage(common.ErrorValidation, "Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, common.WithMessage(common.ErrorValidation, "Comment must be 2,000 characters or less")
	}

	if _, err := s.repomanager.Posts(s.db).Get(ctx, postID); err != nil {
		return nil, notFoundOr(err, errPostNotFound)
	}
	c, err := s.repomanager.Comments(s.db).Create(ctx, &models.Comment{PostID: postID, UserID: userID, Content: content})
	if err != nil {
		return nil, common.ErrorInternal
	}
	return c, nil
}

func (s *BlogService) DeleteComment(ctx context.Context, userID, postID, commentID int64) error {
	repo := s.repomanager.Comments(s.db)
	c, err := repo.Get(ctx, commentID)
	if err != nil {
		return notFoundOr(err, errCommentNotFound)
	}
	if c.PostID != postID {
		return common.WithMessage(common.ErrorValidation, "Comment does not belong to this post")
	}
	if c.UserID != userID {
		return common.WithMessage(common.ErrorForbidden, "You are not authorized to delete this comment")
	}
	if err := repo.Delete(ctx, commentID); err != nil {
		return notFoundOr(err, errCommentNotFound)
	}
	return nil
}

// --- helpers below ---

func normalizePost(in PostInput) (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	switch {
	case in.Title == "":
		return in, common.WithMessage(common.ErrorValidation, "Title is required")
	case len(in.Title) > maxTitleLen:
		return in, common.WithMessage(common.ErrorValidation, "Title must be 200 characters or less")
	case in.Content == "":
		return in, common.WithMessage(common.ErrorValidation, "Content is required")
	case len(in.Content) > maxContentLen:
		return in, common.WithMessage(common.ErrorValidation, "Content must be 10,000 characters or less")
	}

	if in.TopicTags == nil {
		return in, nil
	}
	raw := strings.TrimSpace(*in.TopicTags)
	if raw == "" {
		in.TopicTags = nil
		return in, nil
	}
	tags := strings.Split(raw, ",")
	if len(tags) > maxTags {
		return in, common.WithMessage(common.ErrorValidation, "Maximum 8 tags allowed")
	}
	for i, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return in, common.WithMessage(common.ErrorValidation, "Empty tags are not allowed")
		}
		if len(tag) > maxTagLen {
			return in, common.WithMessage(common.ErrorValidation, "Each tag must be 30 characters or less")
		}
		tags[i] = tag
	}
	joined := strings.Join(tags, ",")
	in.TopicTags = &joined
	return in, nil
}

func delta(kind models.VoteKind, n int) (up, down int) {
	if kind == models.Upvote {
		return n, 0
	}
	return 0, n
}

// notFoundOr replaces a repository not-found with nf and hides anything else.
func notFoundOr(err, nf error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return nf
	}
	return common.ErrorInternal
}

// passKnown lets errors that already carry a message through a transaction.
func passKnown(err error) error {
	if common.MessageOf(err) != "" {
		return err
	}
	return common.ErrorInternal
}
