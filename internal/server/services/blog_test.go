package services

import (
	"context"
	"strings"
	"testing"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blogHarness struct {
	svc   *BlogService
	store *fakeStore
	mock  sqlmock.Sqlmock
	ann   *models.User
	bob   *models.User
}

func newBlogHarness(t *testing.T) *blogHarness {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := newFakeStore()
	users := &fakeUsers{store}
	ann, err := users.Create(context.Background(), &models.User{Username: "ann", Email: "ann@example.com"})
	require.NoError(t, err)
	bob, err := users.Create(context.Background(), &models.User{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	return &blogHarness{svc: NewBlogService(db, &fakeRepoManager{store}), store: store, mock: mock, ann: ann, bob: bob}
}

func (h *blogHarness) post(t *testing.T, userID int64, title string) *models.Post {
	t.Helper()
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
	p, err := h.svc.CreatePost(context.Background(), userID, PostInput{Title: title, Content: "body"})
	require.NoError(t, err)
	return p
}

func strp(s string) *string { return &s }

func TestCreatePost_NormalisesAndReturnsAuthor(t *testing.T) {
	h := newBlogHarness(t)
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	p, err := h.svc.CreatePost(context.Background(), h.ann.ID, PostInput{Title: "  Hello ", Content: " body ", TopicTags: strp(" go , sql ")})
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, "body", p.Content)
	require.NotNil(t, p.TopicTags)
	assert.Equal(t, "go,sql", *p.TopicTags)
	assert.Equal(t, "ann", p.Author)
}

func TestCreatePost_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   PostInput
		msg  string
	}{
		{"no title", PostInput{Title: " ", Content: "c"}, "Title is required"},
		{"long title", PostInput{Title: strings.Repeat("t", 201), Content: "c"}, "Title must be 200 characters or less"},
		{"no content", PostInput{Title: "t"}, "Content is required"},
		{"long content", PostInput{Title: "t", Content: strings.Repeat("c", 10001)}, "Content must be 10,000 characters or less"},
		{"too many tags", PostInput{Title: "t", Content: "c", TopicTags: strp("a,b,c,d,e,f,g,h,i")}, "Maximum 8 tags allowed"},
		{"empty tag", PostInput{Title: "t", Content: "c", TopicTags: strp("a,,b")}, "Empty tags are not allowed"},
		{"long tag", PostInput{Title: "t", Content: "c", TopicTags: strp(strings.Repeat("x", 31))}, "Each tag must be 30 characters or less"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newBlogHarness(t)
			_, err := h.svc.CreatePost(context.Background(), h.ann.ID, tt.in)
			require.ErrorIs(t, err, common.ErrorValidation)
			assert.Equal(t, tt.msg, common.MessageOf(err))
		})
	}
}

func TestCreatePost_BlankTagsBecomeNil(t *testing.T) {
	h := newBlogHarness(t)
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	p, err := h.svc.CreatePost(context.Background(), h.ann.ID, PostInput{Title: "t", Content: "c", TopicTags: strp("  ")})
	require.NoError(t, err)
	assert.Nil(t, p.TopicTags)
}

func TestCreatePost_StorageFailure(t *testing.T) {
	h := newBlogHarness(t)
	h.store.failPosts = true
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()

	_, err := h.svc.CreatePost(context.Background(), h.ann.ID, PostInput{Title: "t", Content: "c"})
	require.ErrorIs(t, err, common.ErrorInternal)
}

func TestUpdatePost_OnlyAuthor(t *testing.T) {
	ctx := context.Background()
	h := newBlogHarness(t)
	p := h.post(t, h.ann.ID, "orig")

	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
	_, err := h.svc.UpdatePost(ctx, h.bob.ID, p.ID, PostInput{Title: "x", Content: "y"})
	require.ErrorIs(t, err, common.ErrorForbidden)
	assert.Equal(t, "You are not authorized to edit this post", common.MessageOf(err))

	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
	_, err = h.svc.UpdatePost(ctx, h.ann.ID, 999, PostInput{Title: "x", Content: "y"})
	require.ErrorIs(t, err, common.ErrorNotFound)

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
	got, err := h.svc.UpdatePost(ctx, h.ann.ID, p.ID, PostInput{Title: "new", Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)

	stored, err := h.svc.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "text", stored.Content)
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	h := newBlogHarness(t)
	p := h.post(t, h.ann.ID, "p")

	require.ErrorIs(t, h.svc.DeletePost(ctx, h.bob.ID, p.ID), common.ErrorForbidden)
	require.NoError(t, h.svc.DeletePost(ctx, h.ann.ID, p.ID))

	err := h.svc.DeletePost(ctx, h.ann.ID, p.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, "Post not found", common.MessageOf(err))
}

func TestVote_TogglesAndFlips(t *testing.T) {
	ctx := context.Background()
	h := newBlogHarness(t)
	p := h.post(t, h.ann.ID, "p")

	steps := []struct {
		user     int64
		kind     models.VoteKind
		up, down int
	}{
		{h.bob.ID, models.Upvote, 1, 0},
		{h.ann.ID, models.Upvote, 2, 0},
		{h.bob.ID, models.Downvote, 1, 1},
		{h.bob.ID, models.Downvote, 1, 0},
		{h.ann.ID, models.Upvote, 0, 0},
	}
	for i, s := range steps {
		h.mock.ExpectBegin()
		h.mock.ExpectCommit()
		up, down, err := h.svc.Vote(ctx, s.user, p.ID, s.kind)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, s.up, up, "step %d upvotes", i)
		assert.Equal(t, s.down, down, "step %d downvotes", i)
	}
}

func TestVote_MissingPost(t *testing.T) {
	h := newBlogHarness(t)
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()

	_, _, err := h.svc.Vote(context.Background(), h.ann.ID, 404, models.Upvote)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	h := newBlogHarness(t)
	p := h.post(t, h.ann.ID, "p")
	other := h.post(t, h.ann.ID, "other")

	_, err := h.svc.CreateComment(ctx, h.bob.ID, p.ID, "   ")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = h.svc.CreateComment(ctx, h.bob.ID, p.ID, strings.Repeat("c", 2001))
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = h.svc.CreateComment(ctx, h.bob.ID, 404, "hi")
	require.ErrorIs(t, err, common.ErrorNotFound)

	c, err := h.svc.CreateComment(ctx, h.bob.ID, p.ID, " hi ")
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Content)
	assert.Equal(t, "bob", c.Username)

	list, err := h.svc.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = h.svc.ListComments(ctx, 404)
	require.ErrorIs(t, err, common.ErrorNotFound)

	err = h.svc.DeleteComment(ctx, h.bob.ID, other.ID, c.ID)
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, "Comment does not belong to this post", common.MessageOf(err))

	require.ErrorIs(t, h.svc.DeleteComment(ctx, h.ann.ID, p.ID, c.ID), common.ErrorForbidden)
	require.NoError(t, h.svc.DeleteComment(ctx, h.bob.ID, p.ID, c.ID))
	require.ErrorIs(t, h.svc.DeleteComment(ctx, h.bob.ID, p.ID, c.ID), common.ErrorNotFound)
}

func TestListAndUserPosts(t *testing.T) {
	ctx := context.Background()
	h := newBlogHarness(t)
	h.post(t, h.ann.ID, "a1")
	h.post(t, h.bob.ID, "b1")
	h.post(t, h.ann.ID, "a2")

	all, err := h.svc.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a2", all[0].Title)

	mine, err := h.svc.UserPosts(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, mine, 2)

	_, err = h.svc.UserPosts(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)

	h.store.failPosts = true
	_, err = h.svc.ListPosts(ctx)
	require.ErrorIs(t, err, common.ErrorInternal)
}
