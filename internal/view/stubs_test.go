package view

import (
	"context"
	"sync"
	"time"

	"footballsocial/internal/models"
	"footballsocial/internal/repository"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	listFn       func(context.Context) ([]models.Post, error)
	getByIDFn    func(context.Context, uint) (*models.Post, error)
	createFn     func(context.Context, repository.PostInput) error
	updateFn     func(context.Context, *models.Post) error
	setUpvotesFn func(context.Context, uint, int) error
	deleteFn     func(context.Context, uint) error
}

func (s *postRepoStub) List(ctx context.Context) ([]models.Post, error) {
	return s.listFn(ctx)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, input repository.PostInput) error {
	return s.createFn(ctx, input)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) SetUpvotes(ctx context.Context, id uint, upvotes int) error {
	return s.setUpvotesFn(ctx, id, upvotes)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	listByPostFn   func(context.Context, uint) ([]models.Comment, error)
	createFn       func(context.Context, models.Comment) error
	deleteByPostFn func(context.Context, uint) error
}

func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Create(ctx context.Context, comment models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) DeleteByPost(ctx context.Context, postID uint) error {
	return s.deleteByPostFn(ctx, postID)
}

func fixturePost(id uint, upvotes int) *models.Post {
	return &models.Post{
		ID:        id,
		Title:     "Derby day",
		Content:   "Who starts up front?",
		ImageURL:  "https://x/a.jpg",
		Upvotes:   upvotes,
		CreatedAt: time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
	}
}

func noopPostRepo(post *models.Post) *postRepoStub {
	return &postRepoStub{
		listFn: func(context.Context) ([]models.Post, error) { return nil, nil },
		getByIDFn: func(context.Context, uint) (*models.Post, error) {
			p := *post
			return &p, nil
		},
		createFn:     func(context.Context, repository.PostInput) error { return nil },
		updateFn:     func(context.Context, *models.Post) error { return nil },
		setUpvotesFn: func(context.Context, uint, int) error { return nil },
		deleteFn:     func(context.Context, uint) error { return nil },
	}
}

func noopCommentRepo(comments ...models.Comment) *commentRepoStub {
	return &commentRepoStub{
		listByPostFn: func(context.Context, uint) ([]models.Comment, error) {
			return append([]models.Comment{}, comments...), nil
		},
		createFn:       func(context.Context, models.Comment) error { return nil },
		deleteByPostFn: func(context.Context, uint) error { return nil },
	}
}

// navRecorder records navigation targets.
type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navRecorder) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// callLog records the order of remote calls across stubs.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func confirmWith(ok bool) Confirmer {
	return ConfirmerFunc(func(context.Context, string) (bool, error) { return ok, nil })
}
