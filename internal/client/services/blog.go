package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
)

type PostSort string

const (
	SortNewest  PostSort = "newest"
	SortOldest  PostSort = "oldest"
	SortPopular PostSort = "popular"
)

// PostFilter narrows the post list on the client. Search matches the title
// or the tag list, case-insensitively.
type PostFilter struct {
	Search string
	Sort   PostSort
}

// BlogService wraps the blog endpoints. Requests go through the same
// interceptor as the auth endpoints, so a dead session surfaces here as
// client.ErrSessionExpired.
type BlogService interface {
	Posts(ctx context.Context, f PostFilter) ([]models.Post, error)
	Post(ctx context.Context, id int64) (*models.Post, []models.Comment, error)
	CreatePost(ctx context.Context, title, content, tags string) (*models.Post, error)
	UpdatePost(ctx context.Context, id int64, title, content, tags string) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	Vote(ctx context.Context, id int64, up bool) (*models.VoteCounts, error)

	Comment(ctx context.Context, postID int64, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID int64) error

	Users(ctx context.Context, search string, page int) (*models.UsersPage, error)
	UserProfile(ctx context.Context, username string) (*models.User, []models.Post, error)
}

const usersPerPage = 20

type blogService struct {
	api client.BlogAPI
}

func NewBlogService(api client.BlogAPI) BlogService {
	return &blogService{api: api}
}

func (b *blogService) Posts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	posts, err := b.api.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts error: %w", err)
	}
	return FilterPosts(posts, f), nil
}

// FilterPosts applies f to posts without modifying the input.
func FilterPosts(posts []models.Post, f PostFilter) []models.Post {
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if needle != "" {
			tags := ""
			if p.TopicTags != nil {
				tags = strings.ToLower(*p.TopicTags)
			}
			if !strings.Contains(strings.ToLower(p.Title), needle) && !strings.Contains(tags, needle) {
				continue
			}
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortOldest:
		slices.SortStableFunc(out, func(x, y models.Post) int { return x.CreatedAt.Compare(y.CreatedAt) })
	case SortPopular:
		slices.SortStableFunc(out, func(x, y models.Post) int { return y.Score() - x.Score() })
	default:
		slices.SortStableFunc(out, func(x, y models.Post) int { return y.CreatedAt.Compare(x.CreatedAt) })
	}
	return out
}

func (b *blogService) Post(ctx context.Context, id int64) (*models.Post, []models.Comment, error) {
	p, err := b.api.GetPost(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get post error: %w", err)
	}
	comments, err := b.api.ListComments(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list comments error: %w", err)
	}
	return p, comments, nil
}

func (b *blogService) CreatePost(ctx context.Context, title, content, tags string) (*models.Post, error) {
	in, err := postInput(title, content, tags)
	if err != nil {
		return nil, err
	}
	p, err := b.api.CreatePost(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create post error: %w", err)
	}
	return p, nil
}

func (b *blogService) UpdatePost(ctx context.Context, id int64, title, content, tags string) (*models.Post, error) {
	in, err := postInput(title, content, tags)
	if err != nil {
		return nil, err
	}
	p, err := b.api.UpdatePost(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update post error: %w", err)
	}
	return p, nil
}

func (b *blogService) DeletePost(ctx context.Context, id int64) error {
	if err := b.api.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post error: %w", err)
	}
	return nil
}

func (b *blogService) Vote(ctx context.Context, id int64, up bool) (*models.VoteCounts, error) {
	var (
		v   *models.VoteCounts
		err error
	)
	if up {
		v, err = b.api.Upvote(ctx, id)
	} else {
		v, err = b.api.Downvote(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("vote error: %w", err)
	}
	return v, nil
}

func (b *blogService) Comment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment is empty", common.ErrorValidation)
	}
	c, err := b.api.CreateComment(ctx, postID, content)
	if err != nil {
		return nil, fmt.Errorf("comment error: %w", err)
	}
	return c, nil
}

func (b *blogService) DeleteComment(ctx context.Context, postID, commentID int64) error {
	if err := b.api.DeleteComment(ctx, postID, commentID); err != nil {
		return fmt.Errorf("delete comment error: %w", err)
	}
	return nil
}

func (b *blogService) Users(ctx context.Context, search string, page int) (*models.UsersPage, error) {
	p, err := b.api.ListUsers(ctx, strings.TrimSpace(search), page, usersPerPage)
	if err != nil {
		return nil, fmt.Errorf("list users error: %w", err)
	}
	return p, nil
}

func (b *blogService) UserProfile(ctx context.Context, username string) (*models.User, []models.Post, error) {
	u, err := b.api.GetUser(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("get user error: %w", err)
	}
	posts, err := b.api.UserPosts(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("user posts error: %w", err)
	}
	return u, FilterPosts(posts, PostFilter{}), nil
}

func postInput(title, content, tags string) (models.PostInput, error) {
	in := models.NewPostInput(title, content, tags)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" {
		return models.PostInput{}, fmt.Errorf("%w: title and content are required", common.ErrorValidation)
	}
	return in, nil
}
