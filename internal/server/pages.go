package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"footballsocial/internal/models"
	"footballsocial/internal/shell"
	"footballsocial/internal/view"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// page is the data of a full HTML page.
type page struct {
	Title  string
	Links  []shell.Link
	Socket string // view session path, empty for plain forms
	View   any
}

// editPage pairs the edit form state with the post it targets.
type editPage struct {
	ID uint
	view.EditState
}

var templateFuncs = template.FuncMap{
	"fromNow":   func(t time.Time) string { return fromNow(t, time.Now()) },
	"postPath":  shell.Post,
	"editPath":  shell.EditPost,
	"mediaKind": func(url string) string { return view.ClassifyMedia(url).String() },
	"videoType": view.VideoType,
}

func parsePages() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// fromNow describes how long ago t was, in the style of "3 hours ago".
func fromNow(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	const day = 24 * time.Hour

	plural := func(n int, unit string) string {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	switch {
	case d < 45*time.Second:
		return "a few seconds ago"
	case d < 90*time.Second:
		return "a minute ago"
	case d < 45*time.Minute:
		return plural(int((d+30*time.Second)/time.Minute), "minute")
	case d < 90*time.Minute:
		return "an hour ago"
	case d < 22*time.Hour:
		return plural(int((d+30*time.Minute)/time.Hour), "hour")
	case d < 36*time.Hour:
		return "a day ago"
	case d < 26*day:
		return plural(int((d+12*time.Hour)/day), "day")
	case d < 45*day:
		return "a month ago"
	case d < 320*day:
		return plural(int((d+15*day)/(30*day)), "month")
	case d < 548*day:
		return "a year ago"
	default:
		return plural(int(d/(365*day)), "year")
	}
}

func (s *Server) newPage(socket string, data any) page {
	return page{Title: shell.Title, Links: shell.Links, Socket: socket, View: data}
}

func (s *Server) render(c *fiber.Ctx, status int, name string, data page) error {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// fragment renders a named template to a string for view sessions.
func (s *Server) fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// redirect is a Navigator that remembers the last requested path.
type redirect struct {
	path string
}

func (r *redirect) Navigate(path string) { r.path = path }

func (s *Server) setupPageRoutes(app *fiber.App) {
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		MaxAge:     3600,
	}))

	app.Get(shell.RouteFeed, s.FeedPage)
	app.Get(shell.RouteCreate, s.CreatePage)
	app.Post(shell.RouteCreate, s.limiter.Middleware("create_post"), s.CreatePost)
	app.Get(shell.RouteDetail, s.DetailPage)
	app.Get(shell.RouteEdit, s.EditPage)
	app.Post(shell.RouteEdit, s.limiter.Middleware("edit_post"), s.UpdatePost)
}

// parseID reads the post id route parameter. On failure it writes a 400
// response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx) (uint, error) {
	id, ok := shell.ParseID(c.Params(shell.PostIDParam))
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid post ID"))
		return 0, errResponseWritten
	}
	return id, nil
}

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers return nil instead of it.
var errResponseWritten = errors.New("response already written")

// FeedPage renders the feed with the default search and sort.
func (s *Server) FeedPage(c *fiber.Ctx) error {
	feed := view.NewFeed(s.postRepo)
	defer feed.Dispose()

	status := fiber.StatusOK
	if err := feed.Load(c.UserContext()); err != nil {
		status = fiber.StatusBadGateway
	}
	return s.render(c, status, "feed", s.newPage("/ws/feed", feed.Snapshot()))
}

// CreatePage renders the empty create form.
func (s *Server) CreatePage(c *fiber.Ctx) error {
	form := view.NewCreateForm(s.postRepo, nil)
	defer form.Dispose()
	return s.render(c, fiber.StatusOK, "create", s.newPage("", form.Snapshot()))
}

// CreatePost submits the create form and redirects to the feed on success.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	nav := &redirect{}
	form := view.NewCreateForm(s.postRepo, nav)
	defer form.Dispose()

	for _, name := range []string{view.FieldTitle, view.FieldContent, view.FieldImageURL} {
		_ = form.SetField(name, c.FormValue(name))
	}

	if err := form.Submit(c.UserContext()); err != nil {
		return s.render(c, formStatus(err), "create", s.newPage("", form.Snapshot()))
	}
	return c.Redirect(nav.path, fiber.StatusSeeOther)
}

// DetailPage renders a post with its comments. Interaction goes through the
// view session opened by the page.
func (s *Server) DetailPage(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	detail := view.NewDetail(s.postRepo, s.commentRepo, nil, nil)
	defer detail.Dispose()

	status := fiber.StatusOK
	socket := "/ws" + shell.Post(id)
	if err := detail.Load(c.UserContext(), id); err != nil {
		status = loadStatus(err)
		socket = ""
	}
	return s.render(c, status, "detail", s.newPage(socket, detail.Snapshot()))
}

// EditPage renders the edit form pre-filled with the post.
func (s *Server) EditPage(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	form := view.NewEditForm(s.postRepo, nil)
	defer form.Dispose()

	status := fiber.StatusOK
	if err := form.Load(c.UserContext(), id); err != nil {
		status = loadStatus(err)
	}
	return s.render(c, status, "edit", s.newPage("", editPage{ID: id, EditState: form.Snapshot()}))
}

// UpdatePost applies the submitted fields to a fresh copy of the post and
// writes it back.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	nav := &redirect{}
	form := view.NewEditForm(s.postRepo, nav)
	defer form.Dispose()

	if err := form.Load(c.UserContext(), id); err != nil {
		return s.render(c, loadStatus(err), "edit", s.newPage("", editPage{ID: id, EditState: form.Snapshot()}))
	}
	for _, name := range []string{view.FieldTitle, view.FieldContent, view.FieldImageURL} {
		_ = form.SetField(name, c.FormValue(name))
	}

	if err := form.Submit(c.UserContext()); err != nil {
		return s.render(c, formStatus(err), "edit", s.newPage("", editPage{ID: id, EditState: form.Snapshot()}))
	}
	return c.Redirect(nav.path, fiber.StatusSeeOther)
}

// loadStatus maps a failed fetch to the page status.
func loadStatus(err error) int {
	if models.StatusFor(err) == http.StatusNotFound {
		return fiber.StatusNotFound
	}
	return fiber.StatusBadGateway
}

// formStatus maps a failed form submission to the page status.
func formStatus(err error) int {
	if models.StatusFor(err) == http.StatusBadRequest {
		return fiber.StatusBadRequest
	}
	return fiber.StatusBadGateway
}
