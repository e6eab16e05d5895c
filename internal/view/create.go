package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"footballsocial/internal/models"
	"footballsocial/internal/observability"
	"footballsocial/internal/repository"
	"footballsocial/internal/shell"
	"footballsocial/internal/tablestore"
)

// Form field names shared by the create and edit forms.
const (
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldImageURL = "image_url"
)

// ErrUnknownField is returned by SetField for names other than the form fields.
var ErrUnknownField = errors.New("view: unknown form field")

// PostFields are the user-editable fields of a post.
type PostFields struct {
	Title    string
	Content  string
	ImageURL string
}

func (p *PostFields) set(name, value string) error {
	switch name {
	case FieldTitle:
		p.Title = value
	case FieldContent:
		p.Content = value
	case FieldImageURL:
		p.ImageURL = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// CreateState is a snapshot of the create form.
type CreateState struct {
	Fields     PostFields
	Err        string
	Submitting bool
}

// CreateForm collects a new post and inserts it.
type CreateForm struct {
	lifecycle[CreateState]

	posts repository.PostRepository

	fields     PostFields
	err        string
	submitting bool
}

func NewCreateForm(posts repository.PostRepository, nav Navigator) *CreateForm {
	f := &CreateForm{posts: posts}
	f.init("create", nav, f.state)
	return f
}

func (f *CreateForm) state() CreateState {
	return CreateState{Fields: f.fields, Err: f.err, Submitting: f.submitting}
}

// SetField sets one form field by name.
func (f *CreateForm) SetField(name, value string) error {
	var err error
	f.mutate(func() { err = f.fields.set(name, value) })
	return err
}

// Submit inserts the post and navigates to the feed. On failure the fields are
// kept and the error payload is shown.
func (f *CreateForm) Submit(ctx context.Context) error {
	ctx, span := observability.StartViewSpan(ctx, "create", "submit")
	defer span.End()

	var input repository.PostInput
	var invalid error
	if !f.mutate(func() {
		f.err = ""
		if strings.TrimSpace(f.fields.Title) == "" {
			invalid = models.NewValidationError("Title is required")
			f.err = invalid.Error()
			return
		}
		f.submitting = true
		input = repository.PostInput(f.fields)
	}) {
		return nil
	}
	if invalid != nil {
		return invalid
	}

	err := f.posts.Create(ctx, input)
	f.mutate(func() {
		f.submitting = false
		if err != nil {
			f.err = "Error submitting post: " + errorPayload(err)
		}
	})
	if err != nil {
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, "create.submit", err, map[string]interface{}{"title": input.Title})
		return err
	}
	f.navigate(shell.Home)
	return nil
}

// errorPayload renders a remote error the way the service sent it. Other
// errors fall back to their message.
func errorPayload(err error) string {
	var apiErr *tablestore.APIError
	if errors.As(err, &apiErr) {
		if b, mErr := json.MarshalIndent(apiErr, "", "  "); mErr == nil {
			return string(b)
		}
	}
	b, _ := json.Marshal(err.Error())
	return string(b)
}
