// Package shell is the static navigation of the site: the header and the
// route table.
package shell

import "strconv"

// Title is the header title.
const Title = "Football Social"

// Route paths.
const (
	Home       = "/"
	CreatePost = "/create-post"
)

// Route patterns in fiber syntax.
const (
	RouteFeed   = Home
	RouteCreate = CreatePost
	RouteDetail = "/post/:postId"
	RouteEdit   = "/edit-post/:postId"
	PostIDParam = "postId"
)

// Link is a header navigation entry.
type Link struct {
	Label string
	Path  string
}

// Links are the header links, in display order.
var Links = []Link{
	{Label: "Home", Path: Home},
	{Label: "Create Post", Path: CreatePost},
}

// Post is the detail path of a post.
func Post(id uint) string {
	return "/post/" + strconv.FormatUint(uint64(id), 10)
}

// EditPost is the edit path of a post.
func EditPost(id uint) string {
	return "/edit-post/" + strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a post identifier from a route parameter.
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
