package view

import (
	"context"
	"sort"
	"strings"

	"footballsocial/internal/models"
	"footballsocial/internal/observability"
	"footballsocial/internal/repository"
)

// SortMode orders the visible feed.
type SortMode string

const (
	SortNewest      SortMode = "newest"
	SortMostUpvoted SortMode = "most-upvoted"
)

// ParseSortMode maps a user-supplied mode to a SortMode. Unknown values sort
// by recency.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "most-upvoted", "upvotes":
		return SortMostUpvoted
	default:
		return SortNewest
	}
}

// FilterAndSort returns the posts whose title contains term, ignoring case,
// in the order given by mode. posts is not modified.
func FilterAndSort(posts []models.Post, term string, mode SortMode) []models.Post {
	out := make([]models.Post, 0, len(posts))
	needle := strings.ToLower(term)
	for _, p := range posts {
		if needle == "" || strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}

	switch mode {
	case SortMostUpvoted:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Upvotes > out[j].Upvotes })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// FeedState is a snapshot of the feed.
type FeedState struct {
	Loading bool
	Err     string
	Search  string
	Sort    SortMode
	Posts   []models.Post // visible posts after filter and sort
}

// Empty reports whether a loaded feed has nothing to show.
func (s FeedState) Empty() bool {
	return !s.Loading && s.Err == "" && len(s.Posts) == 0
}

// Feed lists every post once and derives the visible list from the search
// term and sort mode.
type Feed struct {
	lifecycle[FeedState]

	posts repository.PostRepository

	loading bool
	err     string
	all     []models.Post
	search  string
	sort    SortMode
}

func NewFeed(posts repository.PostRepository) *Feed {
	f := &Feed{posts: posts, loading: true, sort: SortNewest}
	f.init("feed", nil, f.state)
	return f
}

func (f *Feed) state() FeedState {
	return FeedState{
		Loading: f.loading,
		Err:     f.err,
		Search:  f.search,
		Sort:    f.sort,
		Posts:   FilterAndSort(f.all, f.search, f.sort),
	}
}

// Load fetches all posts, newest first. A failure is terminal for the view.
func (f *Feed) Load(ctx context.Context) error {
	ctx, span := observability.StartViewSpan(ctx, "feed", "load")
	defer span.End()

	posts, err := f.posts.List(ctx)
	f.mutate(func() {
		f.loading = false
		if err != nil {
			f.err = "Error fetching posts: " + err.Error()
			f.all = nil
			return
		}
		f.all = posts
	})
	if err != nil {
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, "feed.load", err, nil)
	}
	return err
}

// SetSearch changes the title filter.
func (f *Feed) SetSearch(term string) {
	f.mutate(func() { f.search = term })
}

// SetSort changes the sort mode.
func (f *Feed) SetSort(mode SortMode) {
	f.mutate(func() { f.sort = mode })
}
