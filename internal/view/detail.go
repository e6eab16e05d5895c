package view

import (
	"context"

	"footballsocial/internal/models"
	"footballsocial/internal/observability"
	"footballsocial/internal/repository"
	"footballsocial/internal/shell"

	"go.opentelemetry.io/otel/attribute"
)

// DetailStatus is the lifecycle state of the detail view.
type DetailStatus string

const (
	StatusLoading  DetailStatus = "loading"
	StatusReady    DetailStatus = "ready"
	StatusError    DetailStatus = "error"
	StatusDeleting DetailStatus = "deleting"
)

// Messages shown by the detail view.
const (
	DeleteConfirmMessage = "Are you sure you want to delete this post?"
	DeleteFailedMessage  = "Failed to delete post. Please try again."
)

// DetailState is a snapshot of the detail view. Post is nil unless the view
// is ready or deleting.
type DetailState struct {
	Status       DetailStatus
	Post         *models.Post
	Comments     []models.Comment
	CommentInput string
	Err          string // terminal load error
	Notice       string // failure of a delete attempt
}

// Detail shows one post with its comments and runs upvote, comment and
// delete against it.
type Detail struct {
	lifecycle[DetailState]

	posts    repository.PostRepository
	comments repository.CommentRepository
	confirm  Confirmer

	gen          uint64 // bumped by every Load; older loads are dropped
	id           uint
	status       DetailStatus
	post         *models.Post
	list         []models.Comment
	commentInput string
	err          string
	notice       string
}

func NewDetail(posts repository.PostRepository, comments repository.CommentRepository, nav Navigator, confirm Confirmer) *Detail {
	d := &Detail{
		posts:    posts,
		comments: comments,
		confirm:  confirm,
		status:   StatusLoading,
	}
	d.init("detail", nav, d.state)
	return d
}

func (d *Detail) state() DetailState {
	s := DetailState{
		Status:       d.status,
		CommentInput: d.commentInput,
		Err:          d.err,
		Notice:       d.notice,
	}
	if d.post != nil {
		p := *d.post
		s.Post = &p
	}
	if d.list != nil {
		s.Comments = append([]models.Comment{}, d.list...)
	}
	return s
}

// Load fetches the post and its comments. Both must succeed for the view to
// become ready; otherwise it moves to the error state with nothing shown.
func (d *Detail) Load(ctx context.Context, id uint) error {
	ctx, span := observability.StartViewSpan(ctx, "detail", "load")
	defer span.End()
	span.AddAttributes(attribute.Int64("post.id", int64(id)))

	var gen uint64
	if !d.mutate(func() {
		d.gen++
		gen = d.gen
		d.id = id
		d.status = StatusLoading
		d.post, d.list = nil, nil
		d.err, d.notice = "", ""
	}) {
		return nil
	}

	post, err := d.posts.GetByID(ctx, id)
	var comments []models.Comment
	if err == nil {
		comments, err = d.comments.ListByPost(ctx, id)
	}

	d.mutate(func() {
		if d.gen != gen {
			return
		}
		if err != nil {
			d.status = StatusError
			d.err = "Error fetching post details: " + err.Error()
			return
		}
		d.status = StatusReady
		d.post = post
		d.list = comments
		if d.list == nil {
			d.list = []models.Comment{}
		}
	})
	if err != nil {
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, "detail.load", err, map[string]interface{}{"post_id": id})
	}
	return err
}

// Upvote shows the incremented count at once and writes it in the background.
// A failed write takes back exactly the local increment. It reports whether
// an upvote was started.
func (d *Detail) Upvote(ctx context.Context) bool {
	var (
		gen  uint64
		id   uint
		next int
	)
	return d.optimistic(ctx, "upvote", map[string]interface{}{"post_id": d.currentID()},
		func() bool {
			if d.status != StatusReady || d.post == nil {
				return false
			}
			gen, id = d.gen, d.post.ID
			d.post.Upvotes++
			next = d.post.Upvotes
			return true
		},
		func() {
			if d.gen == gen && d.post != nil {
				d.post.Upvotes--
			}
		},
		func(ctx context.Context) error {
			return d.posts.SetUpvotes(ctx, id, next)
		},
	)
}

// SetCommentInput updates the pending comment text.
func (d *Detail) SetCommentInput(text string) {
	d.mutate(func() { d.commentInput = text })
}

// SubmitComment appends the pending comment at once, clears the input and
// inserts it in the background. If the insert fails, every listed comment
// with the same content is removed, since the new one has no id yet.
func (d *Detail) SubmitComment(ctx context.Context) bool {
	var (
		gen       uint64
		candidate models.Comment
	)
	return d.optimistic(ctx, "comment", map[string]interface{}{"post_id": d.currentID()},
		func() bool {
			if d.status != StatusReady || d.post == nil {
				return false
			}
			gen = d.gen
			candidate = models.Comment{PostID: d.post.ID, Content: d.commentInput}
			d.list = append(d.list, candidate)
			d.commentInput = ""
			return true
		},
		func() {
			if d.gen != gen {
				return
			}
			kept := d.list[:0:0]
			for _, c := range d.list {
				if c.Content != candidate.Content {
					kept = append(kept, c)
				}
			}
			d.list = kept
		},
		func(ctx context.Context) error {
			return d.comments.Create(ctx, candidate)
		},
	)
}

// Edit navigates to the edit form of the loaded post.
func (d *Detail) Edit() {
	id := d.currentID()
	if id == 0 {
		return
	}
	d.navigate(shell.EditPost(id))
}

// Delete asks for confirmation, then removes the comments of the post and the
// post itself, in that order, and navigates to the feed. The post is only
// deleted once its comments are gone. Either failure returns the view to
// ready with the last loaded data and a notice; a post whose comments were
// already removed stays as it is. Declining does nothing.
func (d *Detail) Delete(ctx context.Context) error {
	var id uint
	d.mu.Lock()
	ready := !d.disposed && d.status == StatusReady && d.post != nil
	if ready {
		id = d.post.ID
	}
	d.mu.Unlock()
	if !ready {
		return nil
	}

	if d.confirm != nil {
		ok, err := d.confirm.Confirm(ctx, DeleteConfirmMessage)
		if err != nil || !ok {
			return err
		}
	}

	entered := false
	d.mutate(func() {
		if d.status == StatusReady && d.post != nil && d.post.ID == id {
			d.status = StatusDeleting
			d.notice = ""
			entered = true
		}
	})
	if !entered {
		return nil
	}

	ctx, span := observability.StartViewSpan(context.WithoutCancel(ctx), "detail", "delete")
	defer span.End()
	span.AddAttributes(attribute.Int64("post.id", int64(id)))

	fail := func(step string, err error) error {
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, "detail.delete."+step, err, map[string]interface{}{"post_id": id})
		d.mutate(func() {
			if d.status == StatusDeleting {
				d.status = StatusReady
				d.notice = DeleteFailedMessage
			}
		})
		return err
	}

	if err := d.comments.DeleteByPost(ctx, id); err != nil {
		return fail("comments", err)
	}
	if err := d.posts.Delete(ctx, id); err != nil {
		return fail("post", err)
	}
	d.navigate(shell.Home)
	return nil
}

func (d *Detail) currentID() uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.post == nil {
		return 0
	}
	return d.post.ID
}
