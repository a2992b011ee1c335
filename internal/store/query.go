package store

import (
	"sort"
	"strings"

	"github.com/linkstash/linkstash/internal/schema"
)

// Sort keys accepted by Query.SortBy.
const (
	SortByDateAdded = "dateAdded"
	SortByPlatform  = "platform"
)

// Sort directions accepted by Query.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Query configures GetAllPosts.
//
// The zero value returns every post, newest first.
type Query struct {
	// Limit restricts the number of results (0 = no limit)
	Limit int
	// Offset skips the first N results (for pagination)
	Offset int
	// SortBy selects the sort key: dateAdded (default) or platform
	SortBy string
	// SortOrder selects the direction: desc (default) or asc
	SortOrder string
	// FilterTags keeps only posts carrying ALL listed tags
	FilterTags []string
	// SearchTerm keeps posts whose url, title, description, or any tag
	// contains the term, case-insensitively
	SearchTerm string
	// Platform keeps only posts on the given platform
	Platform schema.Platform
}

// apply runs the query pipeline over the full candidate set:
// platform filter, tag filter (AND), search filter (OR across fields),
// sort, then pagination.
func (q Query) apply(posts []*schema.Post) []*schema.Post {
	out := make([]*schema.Post, 0, len(posts))
	for _, p := range posts {
		if q.Platform != "" && p.Platform != q.Platform {
			continue
		}
		if !hasAllTags(p, q.FilterTags) {
			continue
		}
		if q.SearchTerm != "" && !matchesSearch(p, q.SearchTerm) {
			continue
		}
		out = append(out, p)
	}

	q.sortPosts(out)

	return paginate(out, q.Offset, q.Limit)
}

// hasAllTags reports whether the post's tags are a superset of want.
func hasAllTags(p *schema.Post, want []string) bool {
	for _, tag := range want {
		if !p.HasTag(tag) {
			return false
		}
	}
	return true
}

// matchesSearch reports whether term case-insensitively matches the
// post's url, title, description, or any tag.
func matchesSearch(p *schema.Post, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.URL), term) ||
		strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// sortPosts orders posts in place by the query's sort key and direction.
// The sort is stable so pagination slices are consistent across calls.
func (q Query) sortPosts(posts []*schema.Post) {
	desc := q.SortOrder != SortAsc

	var less func(a, b *schema.Post) bool
	switch q.SortBy {
	case SortByPlatform:
		less = func(a, b *schema.Post) bool {
			return a.Platform < b.Platform
		}
	default:
		less = func(a, b *schema.Post) bool {
			return a.DateAdded.Before(b.DateAdded)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if desc {
			return less(posts[j], posts[i])
		}
		return less(posts[i], posts[j])
	})
}

// paginate slices [offset, offset+limit) with bounds clamping.
func paginate(posts []*schema.Post, offset, limit int) []*schema.Post {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return []*schema.Post{}
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}
