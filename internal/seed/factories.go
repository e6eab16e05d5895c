// Package seed provides helpers to create demo posts and comments for
// development and tests. Everything goes through the repositories, so the
// same seeder works against every data backend.
package seed

import (
	"fmt"

	"footballsocial/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	clubSuffixes = []string{"United", "City", "Rovers", "Athletic", "Wanderers", "Town", "Albion"}

	titleFormats = []string{
		"%s vs %s: player ratings",
		"%s 2-2 %s, what a second half",
		"Is %s's press better than %s's?",
		"%s fans at %s away end",
		"%s sign a striker from %s",
	}

	commentLines = []string{
		"Great match!",
		"Never a penalty.",
		"Our midfield was nowhere today.",
		"Season ticket renewed, no regrets.",
		"That keeper deserves a new contract.",
		"Proper cup football.",
		"VAR strikes again.",
	}

	videoURLs = []string{
		"https://interactive-examples.mdn.mozilla.net/media/cc0-videos/flower.mp4",
		"https://upload.wikimedia.org/wikipedia/commons/transcoded/c/c0/Big_Buck_Bunny_4K.webm/Big_Buck_Bunny_4K.webm.480p.webm",
	}
)

// Factory builds random football-themed posts and comments. Two factories with
// the same seed produce the same sequence.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Club returns a made-up club name.
func (f *Factory) Club() string {
	return f.faker.City() + " " + f.faker.RandomString(clubSuffixes)
}

// BuildPost returns the fields of a new post. Roughly half carry an image,
// some a video and the rest no media.
func (f *Factory) BuildPost() repository.PostInput {
	home, away := f.Club(), f.Club()
	in := repository.PostInput{
		Title:   fmt.Sprintf(f.faker.RandomString(titleFormats), home, away),
		Content: f.faker.Paragraph(1, 3, 12, "\n"),
	}
	switch n := f.faker.Number(0, 9); {
	case n < 5:
		in.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
	case n < 7:
		in.ImageURL = f.faker.RandomString(videoURLs)
	}
	return in
}

// BuildComment returns the text of a comment.
func (f *Factory) BuildComment() string {
	if f.faker.Bool() {
		return f.faker.RandomString(commentLines)
	}
	return f.faker.Sentence(8)
}

// Upvotes returns a plausible upvote count.
func (f *Factory) Upvotes() int {
	return f.faker.Number(0, 150)
}
