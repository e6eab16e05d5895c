package seed

import (
	"context"
	_ "embed"
	"fmt"

	"footballsocial/internal/middleware"
	"footballsocial/internal/models"
	"footballsocial/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yml
var fixturesYAML []byte

// Fixture is a curated post with its comments.
type Fixture struct {
	Title    string   `yaml:"title"`
	Content  string   `yaml:"content"`
	ImageURL string   `yaml:"image_url"`
	Upvotes  int      `yaml:"upvotes"`
	Comments []string `yaml:"comments"`
}

type fixtureFile struct {
	Posts []Fixture `yaml:"posts"`
}

// Fixtures returns the curated posts bundled with the binary.
func Fixtures() ([]Fixture, error) {
	return ParseFixtures(fixturesYAML)
}

// ParseFixtures decodes a fixtures document. Every post needs a title.
func ParseFixtures(data []byte) ([]Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, p := range file.Posts {
		if p.Title == "" {
			return nil, fmt.Errorf("fixture %d has no title", i)
		}
	}
	return file.Posts, nil
}

// Options controls a seeding run.
type Options struct {
	// Clean removes every existing post, comments first, before seeding.
	Clean bool
	// SkipFixtures leaves out the curated posts.
	SkipFixtures bool
	// Posts is the number of generated posts added after the fixtures.
	Posts int
	// MaxComments bounds the comments of each generated post.
	MaxComments int
	// Seed makes generated data reproducible. Zero is random.
	Seed int64
}

// Result counts what a run wrote.
type Result struct {
	Removed  int
	Posts    int
	Comments int
}

// Seeder writes demo data through the post and comment repositories.
type Seeder struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
}

// NewSeeder creates a Seeder.
func NewSeeder(posts repository.PostRepository, comments repository.CommentRepository) *Seeder {
	return &Seeder{posts: posts, comments: comments}
}

// ClearAll deletes every post, removing its comments first.
func (s *Seeder) ClearAll(ctx context.Context) (int, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, p := range posts {
		if err := s.comments.DeleteByPost(ctx, p.ID); err != nil {
			return i, fmt.Errorf("delete comments of post %d: %w", p.ID, err)
		}
		if err := s.posts.Delete(ctx, p.ID); err != nil {
			return i, fmt.Errorf("delete post %d: %w", p.ID, err)
		}
	}
	return len(posts), nil
}

// Run seeds the fixtures and opts.Posts generated posts.
//
// The post insert does not return the new row, so upvotes and comments are
// attached afterwards by matching titles against the posts that did not
// exist before the run.
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	if opts.Clean {
		n, err := s.ClearAll(ctx)
		res.Removed = n
		if err != nil {
			return res, err
		}
	}

	var plan []Fixture
	if !opts.SkipFixtures {
		fixtures, err := Fixtures()
		if err != nil {
			return res, err
		}
		plan = append(plan, fixtures...)
	}
	f := NewFactory(opts.Seed)
	for i := 0; i < opts.Posts; i++ {
		in := f.BuildPost()
		fx := Fixture{Title: in.Title, Content: in.Content, ImageURL: in.ImageURL, Upvotes: f.Upvotes()}
		if opts.MaxComments > 0 {
			for n := f.faker.Number(0, opts.MaxComments); n > 0; n-- {
				fx.Comments = append(fx.Comments, f.BuildComment())
			}
		}
		plan = append(plan, fx)
	}

	existing, err := s.posts.List(ctx)
	if err != nil {
		return res, err
	}
	seen := make(map[uint]bool, len(existing))
	for _, p := range existing {
		seen[p.ID] = true
	}

	pending := make(map[string][]Fixture)
	for _, fx := range plan {
		if err := s.posts.Create(ctx, repository.PostInput{Title: fx.Title, Content: fx.Content, ImageURL: fx.ImageURL}); err != nil {
			return res, fmt.Errorf("create post %q: %w", fx.Title, err)
		}
		res.Posts++
		pending[fx.Title] = append(pending[fx.Title], fx)
	}

	created, err := s.posts.List(ctx)
	if err != nil {
		return res, err
	}
	for _, p := range created {
		queue := pending[p.Title]
		if seen[p.ID] || len(queue) == 0 {
			continue
		}
		fx := queue[0]
		pending[p.Title] = queue[1:]

		n, err := s.decorate(ctx, p, fx)
		res.Comments += n
		if err != nil {
			return res, err
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		"removed", res.Removed,
		"posts", res.Posts,
		"comments", res.Comments,
	)
	return res, nil
}

func (s *Seeder) decorate(ctx context.Context, p models.Post, fx Fixture) (int, error) {
	if fx.Upvotes > 0 {
		if err := s.posts.SetUpvotes(ctx, p.ID, fx.Upvotes); err != nil {
			return 0, fmt.Errorf("upvote post %d: %w", p.ID, err)
		}
	}
	for i, text := range fx.Comments {
		if err := s.comments.Create(ctx, models.Comment{PostID: p.ID, Content: text}); err != nil {
			return i, fmt.Errorf("comment on post %d: %w", p.ID, err)
		}
	}
	return len(fx.Comments), nil
}
