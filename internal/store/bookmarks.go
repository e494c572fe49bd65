package store

import (
	"strings"

	"github.com/normanking/aide/pkg/types"
)

const bookmarksKey = "bookmarks"

// BookmarkPatch is a merge patch for a bookmark. Nil fields are unchanged.
type BookmarkPatch struct {
	Title       *string   `json:"title,omitempty"`
	URL         *string   `json:"url,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Favicon     *string   `json:"favicon,omitempty"`
}

func (p BookmarkPatch) apply(b *types.Bookmark) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Tags != nil {
		b.Tags = *p.Tags
	}
	if p.Favicon != nil {
		b.Favicon = *p.Favicon
	}
}

// Bookmarks is the bookmark collection.
type Bookmarks struct {
	c *collection[types.Bookmark]
}

// NewBookmarks binds the bookmark collection to its blob.
func NewBookmarks(blobs *Blobs) *Bookmarks {
	return &Bookmarks{c: newCollection(blobs, bookmarksKey, func(b *types.Bookmark) *string {
		return &b.ID
	})}
}

// List returns all bookmarks in insertion order.
func (b *Bookmarks) List() []types.Bookmark {
	return b.c.List()
}

// Add stores a new bookmark, assigning its ID and stamping CreatedAt.
// URL validation (scheme defaulting) is the caller's concern.
func (b *Bookmarks) Add(bm types.Bookmark) types.Bookmark {
	if bm.CreatedAt == 0 {
		bm.CreatedAt = types.NowMillis()
	}
	return b.c.Add(bm)
}

// Update merge-patches the bookmark with the given id.
func (b *Bookmarks) Update(id string, patch BookmarkPatch) (types.Bookmark, bool) {
	return b.c.Update(id, patch.apply)
}

// Delete removes the bookmark with the given id.
func (b *Bookmarks) Delete(id string) bool {
	return b.c.Delete(id)
}

// Search returns bookmarks whose title, description, URL, category, or any
// tag contains the query, case-insensitively. An empty query returns all.
func (b *Bookmarks) Search(query string) []types.Bookmark {
	all := b.c.List()
	if query == "" {
		return all
	}

	q := strings.ToLower(query)
	var out []types.Bookmark
	for _, bm := range all {
		if matchBookmark(bm, q) {
			out = append(out, bm)
		}
	}
	return out
}

func matchBookmark(bm types.Bookmark, q string) bool {
	if strings.Contains(strings.ToLower(bm.Title), q) ||
		strings.Contains(strings.ToLower(bm.Description), q) ||
		strings.Contains(strings.ToLower(bm.URL), q) ||
		strings.Contains(strings.ToLower(bm.Category), q) {
		return true
	}
	for _, tag := range bm.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
