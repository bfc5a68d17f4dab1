package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	commentsrepo "github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/comments"
	postsrepo "github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/posts"
	usersrepo "github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/users"
	votesrepo "github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/votes"
)

var errDB = errors.New("db down")

type code struct {
	value string
	exp   time.Time
}

// fakeStore backs every fake repository with plain maps.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	codes    map[int64]code
	resets   map[int64]code
	posts    map[int64]*models.Post
	comments map[int64]*models.Comment
	votes    map[[2]int64]models.VoteKind

	failUsers bool
	failPosts bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]*models.User{},
		codes:    map[int64]code{},
		resets:   map[int64]code{},
		posts:    map[int64]*models.Post{},
		comments: map[int64]*models.Comment{},
		votes:    map[[2]int64]models.VoteKind{},
	}
}

func (s *fakeStore) id() int64 { s.nextID++; return s.nextID }

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return &fakeUsers{m.s} }
func (m *fakeRepoManager) Posts(dbx.DBTX) postsrepo.Repository          { return &fakePosts{m.s} }
func (m *fakeRepoManager) Comments(dbx.DBTX) commentsrepo.Repository    { return &fakeComments{m.s} }
func (m *fakeRepoManager) Votes(dbx.DBTX) votesrepo.Repository          { return &fakeVotes{m.s} }

type fakeUsers struct{ s *fakeStore }

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers {
		return nil, errDB
	}
	for _, o := range f.s.users {
		if o.Username == u.Username || o.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = f.s.id()
	cp := *u
	f.s.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers {
		return nil, errDB
	}
	for _, u := range f.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == login || u.Email == login })
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cur, ok := f.s.users[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	for _, o := range f.s.users {
		if o.ID != u.ID && (o.Username == u.Username || o.Email == u.Email) {
			return common.ErrorAlreadyExists
		}
	}
	cur.Username, cur.Email, cur.IsVerified, cur.TwoFAEnabled = u.Username, u.Email, u.IsVerified, u.TwoFAEnabled
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.users, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, flt models.UserFilter) (*models.UsersPage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUsers {
		return nil, errDB
	}
	var all []models.User
	for _, u := range f.s.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(flt.Search)) {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	page := &models.UsersPage{Users: []models.User{}, Total: len(all), Page: flt.Page}
	page.Pages = (len(all) + flt.PerPage - 1) / flt.PerPage
	for i := (flt.Page - 1) * flt.PerPage; i < len(all) && i < flt.Page*flt.PerPage; i++ {
		page.Users = append(page.Users, all[i])
	}
	return page, nil
}

func (f *fakeUsers) SetCode(_ context.Context, id int64, c string, exp time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	f.s.codes[id] = code{c, exp}
	return nil
}

func (f *fakeUsers) ConsumeCode(_ context.Context, email, c string, now time.Time) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, u := range f.s.users {
		if u.Email != email {
			continue
		}
		got, ok := f.s.codes[id]
		if !ok || got.value != c || !got.exp.After(now) {
			return nil, common.ErrorNotFound
		}
		delete(f.s.codes, id)
		cp := *u
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) SetPassword(_ context.Context, id int64, hash []byte) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	delete(f.s.resets, id)
	return nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, id int64, tokenHash string, exp time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	f.s.resets[id] = code{tokenHash, exp}
	return nil
}

func (f *fakeUsers) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, r := range f.s.resets {
		if r.value != tokenHash || !r.exp.After(now) {
			continue
		}
		delete(f.s.resets, id)
		cp := *f.s.users[id]
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

type fakePosts struct{ s *fakeStore }

func (f *fakePosts) withAuthor(p models.Post) models.Post {
	if u, ok := f.s.users[p.UserID]; ok {
		p.Author = u.Username
	}
	return p
}

func (f *fakePosts) List(context.Context) ([]models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failPosts {
		return nil, errDB
	}
	out := []models.Post{}
	for _, p := range f.s.posts {
		out = append(out, f.withAuthor(*p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakePosts) ListByUser(_ context.Context, userID int64) ([]models.Post, error) {
	all, err := f.List(context.Background())
	out := []models.Post{}
	for _, p := range all {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, err
}

func (f *fakePosts) Get(_ context.Context, id int64) (*models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failPosts {
		return nil, errDB
	}
	p, ok := f.s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := f.withAuthor(*p)
	return &cp, nil
}

func (f *fakePosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failPosts {
		return nil, errDB
	}
	p.ID = f.s.id()
	cp := *p
	f.s.posts[p.ID] = &cp
	return p, nil
}

func (f *fakePosts) Update(_ context.Context, p *models.Post) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cur, ok := f.s.posts[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.Title, cur.Content, cur.TopicTags = p.Title, p.Content, p.TopicTags
	return nil
}

func (f *fakePosts) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.posts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.posts, id)
	return nil
}

func (f *fakePosts) AdjustVotes(_ context.Context, id int64, up, down int) (int, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.posts[id]
	if !ok {
		return 0, 0, common.ErrorNotFound
	}
	p.Upvotes += up
	p.Downvotes += down
	return p.Upvotes, p.Downvotes, nil
}

type fakeComments struct{ s *fakeStore }

func (f *fakeComments) ListByPost(_ context.Context, postID int64) ([]models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []models.Comment{}
	for _, c := range f.s.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeComments) Get(_ context.Context, id int64) (*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.comments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeComments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c.ID = f.s.id()
	if u, ok := f.s.users[c.UserID]; ok {
		c.Username = u.Username
	}
	cp := *c
	f.s.comments[c.ID] = &cp
	return c, nil
}

func (f *fakeComments) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.comments[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.comments, id)
	return nil
}

type fakeVotes struct{ s *fakeStore }

func (f *fakeVotes) Get(_ context.Context, userID, postID int64) (*models.Vote, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	k, ok := f.s.votes[[2]int64{userID, postID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.Vote{UserID: userID, PostID: postID, Kind: k}, nil
}

func (f *fakeVotes) Put(_ context.Context, v models.Vote) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.votes[[2]int64{v.UserID, v.PostID}] = v.Kind
	return nil
}

func (f *fakeVotes) Delete(_ context.Context, userID, postID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.votes, [2]int64{userID, postID})
	return nil
}

type fakeCodeSender struct {
	mu    sync.Mutex
	sent  map[string]string
	err   error
	calls int
}

func (f *fakeCodeSender) SendCode(_ context.Context, email, c string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[email] = c
	return nil
}

func (f *fakeCodeSender) last(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[email]
}
