package view

import (
	"context"

	"footballsocial/internal/models"
	"footballsocial/internal/observability"
	"footballsocial/internal/repository"
	"footballsocial/internal/shell"
)

// Messages shown by the edit form.
const (
	FetchFailedMessage  = "Failed to fetch post"
	UpdateFailedMessage = "Failed to update post"
)

// EditState is a snapshot of the edit form. Fields hold empty strings until
// the post is loaded.
type EditState struct {
	Loading    bool
	Fields     PostFields
	FetchErr   string // terminal
	Err        string // last submit failure; the form stays usable
	Submitting bool
}

// EditForm edits a local copy of one post and writes the whole copy back.
type EditForm struct {
	lifecycle[EditState]

	posts repository.PostRepository

	id         uint
	gen        uint64
	loading    bool
	post       models.Post
	fetchErr   string
	err        string
	submitting bool
}

func NewEditForm(posts repository.PostRepository, nav Navigator) *EditForm {
	f := &EditForm{posts: posts}
	f.init("edit", nav, f.state)
	return f
}

func (f *EditForm) state() EditState {
	return EditState{
		Loading: f.loading,
		Fields: PostFields{
			Title:    f.post.Title,
			Content:  f.post.Content,
			ImageURL: f.post.ImageURL,
		},
		FetchErr:   f.fetchErr,
		Err:        f.err,
		Submitting: f.submitting,
	}
}

// Load fetches the post into the local copy.
func (f *EditForm) Load(ctx context.Context, id uint) error {
	ctx, span := observability.StartViewSpan(ctx, "edit", "load")
	defer span.End()

	var gen uint64
	if !f.mutate(func() {
		f.gen++
		gen = f.gen
		f.id = id
		f.loading = true
		f.post = models.Post{}
		f.fetchErr, f.err = "", ""
	}) {
		return nil
	}

	post, err := f.posts.GetByID(ctx, id)
	f.mutate(func() {
		if f.gen != gen {
			return
		}
		f.loading = false
		if err != nil {
			f.fetchErr = FetchFailedMessage
			return
		}
		f.post = *post
	})
	if err != nil {
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, "edit.load", err, map[string]interface{}{"post_id": id})
	}
	return err
}

// SetField sets one field of the local copy by name.
func (f *EditForm) SetField(name, value string) error {
	var err error
	f.mutate(func() {
		fields := PostFields{Title: f.post.Title, Content: f.post.Content, ImageURL: f.post.ImageURL}
		if err = fields.set(name, value); err != nil {
			return
		}
		f.post.Title, f.post.Content, f.post.ImageURL = fields.Title, fields.Content, fields.ImageURL
	})
	return err
}

// Submit writes every field of the local copy to the post with the loaded id
// and navigates to its detail page. On failure the edits are kept.
func (f *EditForm) Submit(ctx context.Context) error {
	ctx, span := observability.StartViewSpan(ctx, "edit", "submit")
	defer span.End()

	var local models.Post
	ready := false
	if !f.mutate(func() {
		if f.loading || f.fetchErr != "" || f.id == 0 {
			return
		}
		ready = true
		f.submitting = true
		f.err = ""
		local = f.post
		local.ID = f.id
	}) || !ready {
		return nil
	}

	err := f.posts.Update(ctx, &local)
	f.mutate(func() {
		f.submitting = false
		if err != nil {
			f.err = UpdateFailedMessage
		}
	})
	if err != nil {
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, "edit.submit", err, map[string]interface{}{"post_id": local.ID})
		return err
	}
	f.navigate(shell.Post(local.ID))
	return nil
}
