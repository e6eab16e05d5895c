package view

import (
	"context"
	"errors"
	"testing"

	"footballsocial/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedDetail(t *testing.T, posts *postRepoStub, comments *commentRepoStub, nav Navigator, confirm Confirmer) *Detail {
	t.Helper()
	d := NewDetail(posts, comments, nav, confirm)
	require.NoError(t, d.Load(context.Background(), 5))
	require.Equal(t, StatusReady, d.Snapshot().Status)
	return d
}

func TestDetail_Load(t *testing.T) {
	t.Parallel()
	var fetched []uint
	posts := noopPostRepo(fixturePost(5, 2))
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		fetched = append(fetched, id)
		return fixturePost(id, 2), nil
	}
	comments := noopCommentRepo(models.Comment{ID: 1, PostID: 5, Content: "Up the Toffees"})

	d := NewDetail(posts, comments, nil, nil)
	assert.Equal(t, StatusLoading, d.Snapshot().Status)

	require.NoError(t, d.Load(context.Background(), 5))
	snap := d.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	require.NotNil(t, snap.Post)
	assert.Equal(t, uint(5), snap.Post.ID)
	assert.Len(t, snap.Comments, 1)
	assert.Equal(t, []uint{5}, fetched)
}

func TestDetail_LoadFailures(t *testing.T) {
	t.Parallel()

	t.Run("post", func(t *testing.T) {
		posts := noopPostRepo(fixturePost(5, 0))
		posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("post", 5)
		}
		d := NewDetail(posts, noopCommentRepo(), nil, nil)
		require.Error(t, d.Load(context.Background(), 5))

		snap := d.Snapshot()
		assert.Equal(t, StatusError, snap.Status)
		assert.Equal(t, "Error fetching post details: post with ID 5 not found", snap.Err)
	})

	t.Run("comments discard the post", func(t *testing.T) {
		comments := noopCommentRepo()
		comments.listByPostFn = func(context.Context, uint) ([]models.Comment, error) {
			return nil, errors.New("timeout")
		}
		d := NewDetail(noopPostRepo(fixturePost(5, 0)), comments, nil, nil)
		require.Error(t, d.Load(context.Background(), 5))

		snap := d.Snapshot()
		assert.Equal(t, StatusError, snap.Status)
		assert.Nil(t, snap.Post)
		assert.Nil(t, snap.Comments)
	})
}

func TestDetail_StaleLoadIsDropped(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{})
	posts := noopPostRepo(fixturePost(5, 0))
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		if id == 1 {
			close(started)
			<-release
		}
		return fixturePost(id, int(id)), nil
	}
	d := NewDetail(posts, noopCommentRepo(), nil, nil)

	done := make(chan error, 1)
	go func() { done <- d.Load(context.Background(), 1) }()
	<-started

	require.NoError(t, d.Load(context.Background(), 2))
	close(release)
	require.NoError(t, <-done)

	snap := d.Snapshot()
	require.NotNil(t, snap.Post)
	assert.Equal(t, uint(2), snap.Post.ID)
}

func TestDetail_UpvoteOptimistic(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	var written int
	posts := noopPostRepo(fixturePost(5, 10))
	posts.setUpvotesFn = func(_ context.Context, id uint, n int) error {
		<-release
		written = n
		return nil
	}
	d := loadedDetail(t, posts, noopCommentRepo(), nil, nil)

	require.True(t, d.Upvote(context.Background()))
	assert.Equal(t, 11, d.Snapshot().Post.Upvotes, "shown before the write settles")

	close(release)
	d.Wait()
	assert.Equal(t, 11, written)
	assert.Equal(t, 11, d.Snapshot().Post.Upvotes)
}

func TestDetail_UpvoteRollback(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	posts := noopPostRepo(fixturePost(5, 10))
	posts.setUpvotesFn = func(context.Context, uint, int) error {
		<-release
		return errors.New("permission denied")
	}
	d := loadedDetail(t, posts, noopCommentRepo(), nil, nil)

	d.Upvote(context.Background())
	assert.Equal(t, 11, d.Snapshot().Post.Upvotes)

	close(release)
	d.Wait()
	assert.Equal(t, 10, d.Snapshot().Post.Upvotes)
}

func TestDetail_UpvoteRollbackReversesOnlyItsDelta(t *testing.T) {
	t.Parallel()
	first := make(chan struct{})
	var calls []int
	posts := noopPostRepo(fixturePost(5, 10))
	posts.setUpvotesFn = func(_ context.Context, _ uint, n int) error {
		if n == 11 {
			<-first
			return errors.New("conflict")
		}
		calls = append(calls, n)
		return nil
	}
	d := loadedDetail(t, posts, noopCommentRepo(), nil, nil)

	d.Upvote(context.Background())
	d.Upvote(context.Background())
	assert.Equal(t, 12, d.Snapshot().Post.Upvotes)

	close(first)
	d.Wait()
	assert.Equal(t, 11, d.Snapshot().Post.Upvotes)
	assert.Equal(t, []int{12}, calls)
}

func TestDetail_UpvoteNeedsReady(t *testing.T) {
	t.Parallel()
	d := NewDetail(noopPostRepo(fixturePost(5, 0)), noopCommentRepo(), nil, nil)
	assert.False(t, d.Upvote(context.Background()))
	assert.False(t, d.SubmitComment(context.Background()))
}

func TestDetail_CommentOptimistic(t *testing.T) {
	t.Parallel()
	var inserted []models.Comment
	comments := noopCommentRepo()
	comments.createFn = func(_ context.Context, c models.Comment) error {
		inserted = append(inserted, c)
		return nil
	}
	d := loadedDetail(t, noopPostRepo(fixturePost(5, 0)), comments, nil, nil)

	d.SetCommentInput("Great match!")
	require.True(t, d.SubmitComment(context.Background()))
	snap := d.Snapshot()
	require.Len(t, snap.Comments, 1)
	assert.Equal(t, "Great match!", snap.Comments[0].Content)
	assert.Zero(t, snap.Comments[0].ID)
	assert.Empty(t, snap.CommentInput)

	d.Wait()
	assert.Equal(t, []models.Comment{{PostID: 5, Content: "Great match!"}}, inserted)
	assert.Len(t, d.Snapshot().Comments, 1)
}

func TestDetail_CommentRollback(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	comments := noopCommentRepo()
	comments.createFn = func(context.Context, models.Comment) error {
		<-release
		return errors.New("insert failed")
	}
	d := loadedDetail(t, noopPostRepo(fixturePost(5, 0)), comments, nil, nil)

	d.SetCommentInput("Great match!")
	d.SubmitComment(context.Background())
	assert.Len(t, d.Snapshot().Comments, 1)

	close(release)
	d.Wait()
	assert.Empty(t, d.Snapshot().Comments)
}

func TestDetail_CommentRollbackRemovesEqualContent(t *testing.T) {
	t.Parallel()
	comments := noopCommentRepo(
		models.Comment{ID: 1, PostID: 5, Content: "Great match!"},
		models.Comment{ID: 2, PostID: 5, Content: "Shocking ref"},
	)
	comments.createFn = func(context.Context, models.Comment) error { return errors.New("insert failed") }
	d := loadedDetail(t, noopPostRepo(fixturePost(5, 0)), comments, nil, nil)

	d.SetCommentInput("Great match!")
	d.SubmitComment(context.Background())
	d.Wait()

	snap := d.Snapshot()
	require.Len(t, snap.Comments, 1)
	assert.Equal(t, "Shocking ref", snap.Comments[0].Content)
}

func TestDetail_DisposedIgnoresRollback(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	posts := noopPostRepo(fixturePost(5, 10))
	posts.setUpvotesFn = func(context.Context, uint, int) error {
		<-release
		return errors.New("gone away")
	}
	d := loadedDetail(t, posts, noopCommentRepo(), nil, nil)

	var published int
	d.OnChange(func(DetailState) { published++ })

	d.Upvote(context.Background())
	d.Dispose()
	close(release)
	d.Wait()

	assert.Equal(t, 1, published)
	assert.Equal(t, 11, d.Snapshot().Post.Upvotes)
}

func TestDetail_Edit(t *testing.T) {
	t.Parallel()
	nav := &navRecorder{}
	d := loadedDetail(t, noopPostRepo(fixturePost(5, 0)), noopCommentRepo(), nav, nil)

	d.Edit()
	assert.Equal(t, []string{"/edit-post/5"}, nav.all())

	d.Dispose()
	d.Edit()
	assert.Len(t, nav.all(), 1)
}

func TestDetail_Delete(t *testing.T) {
	t.Parallel()
	calls := &callLog{}
	nav := &navRecorder{}
	posts := noopPostRepo(fixturePost(5, 0))
	posts.deleteFn = func(_ context.Context, id uint) error {
		calls.add("post")
		assert.Equal(t, uint(5), id)
		return nil
	}
	comments := noopCommentRepo(
		models.Comment{ID: 1, PostID: 5, Content: "a"},
		models.Comment{ID: 2, PostID: 5, Content: "b"},
	)
	comments.deleteByPostFn = func(_ context.Context, postID uint) error {
		calls.add("comments")
		assert.Equal(t, uint(5), postID)
		return nil
	}

	var prompt string
	confirm := ConfirmerFunc(func(_ context.Context, msg string) (bool, error) {
		prompt = msg
		return true, nil
	})
	d := loadedDetail(t, posts, comments, nav, confirm)

	require.NoError(t, d.Delete(context.Background()))
	assert.Equal(t, "Are you sure you want to delete this post?", prompt)
	assert.Equal(t, []string{"comments", "post"}, calls.all())
	assert.Equal(t, []string{"/"}, nav.all())
	assert.Equal(t, StatusDeleting, d.Snapshot().Status)
}

func TestDetail_DeleteDeclined(t *testing.T) {
	t.Parallel()
	calls := &callLog{}
	posts := noopPostRepo(fixturePost(5, 0))
	posts.deleteFn = func(context.Context, uint) error { calls.add("post"); return nil }
	comments := noopCommentRepo()
	comments.deleteByPostFn = func(context.Context, uint) error { calls.add("comments"); return nil }
	nav := &navRecorder{}

	d := loadedDetail(t, posts, comments, nav, confirmWith(false))
	require.NoError(t, d.Delete(context.Background()))

	assert.Empty(t, calls.all())
	assert.Empty(t, nav.all())
	assert.Equal(t, StatusReady, d.Snapshot().Status)
}

func TestDetail_DeleteCommentsFailure(t *testing.T) {
	t.Parallel()
	calls := &callLog{}
	nav := &navRecorder{}
	posts := noopPostRepo(fixturePost(5, 0))
	posts.deleteFn = func(context.Context, uint) error { calls.add("post"); return nil }
	comments := noopCommentRepo(
		models.Comment{ID: 1, PostID: 5, Content: "a"},
		models.Comment{ID: 2, PostID: 5, Content: "b"},
	)
	comments.deleteByPostFn = func(context.Context, uint) error {
		calls.add("comments")
		return errors.New("permission denied for table comment")
	}

	d := loadedDetail(t, posts, comments, nav, confirmWith(true))
	before := d.Snapshot()

	require.Error(t, d.Delete(context.Background()))
	assert.Equal(t, []string{"comments"}, calls.all(), "post delete is never issued")
	assert.Empty(t, nav.all())

	snap := d.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, before.Post, snap.Post)
	assert.Len(t, snap.Comments, 2)
	assert.Equal(t, "Failed to delete post. Please try again.", snap.Notice)
}

func TestDetail_DeletePostFailure(t *testing.T) {
	t.Parallel()
	nav := &navRecorder{}
	posts := noopPostRepo(fixturePost(5, 0))
	posts.deleteFn = func(context.Context, uint) error { return errors.New("row locked") }

	d := loadedDetail(t, posts, noopCommentRepo(), nav, confirmWith(true))
	require.Error(t, d.Delete(context.Background()))

	snap := d.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, DeleteFailedMessage, snap.Notice)
	assert.Empty(t, nav.all())
}

func TestDetail_DeleteWhileDeletingIsIgnored(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{})
	var deletes int
	comments := noopCommentRepo()
	comments.deleteByPostFn = func(context.Context, uint) error {
		deletes++
		close(started)
		<-release
		return nil
	}
	d := loadedDetail(t, noopPostRepo(fixturePost(5, 0)), comments, &navRecorder{}, confirmWith(true))

	done := make(chan error, 1)
	go func() { done <- d.Delete(context.Background()) }()
	<-started

	assert.Equal(t, StatusDeleting, d.Snapshot().Status)
	require.NoError(t, d.Delete(context.Background()))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, deletes)
}

func TestDetail_DeleteAfterDisposeFinishesRemotely(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{})
	calls := &callLog{}
	nav := &navRecorder{}
	posts := noopPostRepo(fixturePost(5, 0))
	posts.deleteFn = func(ctx context.Context, _ uint) error {
		calls.add("post")
		return ctx.Err()
	}
	comments := noopCommentRepo()
	comments.deleteByPostFn = func(context.Context, uint) error {
		close(started)
		<-release
		calls.add("comments")
		return nil
	}
	d := loadedDetail(t, posts, comments, nav, confirmWith(true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Delete(ctx) }()
	<-started

	cancel()
	d.Dispose()
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"comments", "post"}, calls.all())
	assert.Empty(t, nav.all())
}

func TestDetail_ConfirmError(t *testing.T) {
	t.Parallel()
	boom := errors.New("session closed")
	d := loadedDetail(t, noopPostRepo(fixturePost(5, 0)), noopCommentRepo(), nil,
		ConfirmerFunc(func(context.Context, string) (bool, error) { return false, boom }))

	assert.ErrorIs(t, d.Delete(context.Background()), boom)
	assert.Equal(t, StatusReady, d.Snapshot().Status)
}
