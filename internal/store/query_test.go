package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/linkstash/linkstash/internal/schema"
)

// queryFixture builds posts with staggered timestamps: post i is added
// i minutes after the base time, so ascending dateAdded order is by index.
func queryFixture() []*schema.Post {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []struct {
		platform schema.Platform
		title    string
		tags     []string
	}{
		{schema.PlatformTwitter, "Go 1.23 released", []string{"go", "release"}},
		{schema.PlatformYouTube, "Kubernetes deep dive", []string{"k8s", "video"}},
		{schema.PlatformTwitter, "Thread on databases", []string{"db", "go"}},
		{schema.PlatformWebsite, "Cooking with Rust", []string{"rust", "recipes"}},
		{schema.PlatformInstagram, "Travel photos", []string{"travel"}},
	}

	posts := make([]*schema.Post, len(rows))
	for i, row := range rows {
		added := base.Add(time.Duration(i) * time.Minute)
		posts[i] = &schema.Post{
			ID:        fmt.Sprintf("post-%d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Platform:  row.platform,
			Title:     row.title,
			Tags:      row.tags,
			DateAdded: added,
			UpdatedAt: added,
		}
	}
	return posts
}

// ids extracts post IDs in order.
func ids(posts []*schema.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func assertIDs(t *testing.T, got []*schema.Post, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("got %v, want %v", gotIDs, want)
		}
	}
}

// TestQuery_DefaultNewestFirst tests the zero-value query
func TestQuery_DefaultNewestFirst(t *testing.T) {
	got := Query{}.apply(queryFixture())
	assertIDs(t, got, "post-4", "post-3", "post-2", "post-1", "post-0")
}

// TestQuery_SortAscending tests the asc direction
func TestQuery_SortAscending(t *testing.T) {
	got := Query{SortOrder: SortAsc}.apply(queryFixture())
	assertIDs(t, got, "post-0", "post-1", "post-2", "post-3", "post-4")
}

// TestQuery_FilterTagsAND tests that all listed tags must match
func TestQuery_FilterTagsAND(t *testing.T) {
	got := Query{FilterTags: []string{"go", "release"}}.apply(queryFixture())
	assertIDs(t, got, "post-0")

	got = Query{FilterTags: []string{"go"}}.apply(queryFixture())
	assertIDs(t, got, "post-2", "post-0")

	got = Query{FilterTags: []string{"go", "nope"}}.apply(queryFixture())
	assertIDs(t, got)
}

// TestQuery_SearchOR tests matching across url, title, description, tags
func TestQuery_SearchOR(t *testing.T) {
	// Case-insensitive title match.
	got := Query{SearchTerm: "KUBERNETES"}.apply(queryFixture())
	assertIDs(t, got, "post-1")

	// Tag substring match.
	got = Query{SearchTerm: "recipe"}.apply(queryFixture())
	assertIDs(t, got, "post-3")

	// URL match hits every fixture post.
	got = Query{SearchTerm: "example.com"}.apply(queryFixture())
	if len(got) != 5 {
		t.Errorf("url search matched %d posts, want 5", len(got))
	}
}

// TestQuery_PlatformFilter tests platform restriction
func TestQuery_PlatformFilter(t *testing.T) {
	got := Query{Platform: schema.PlatformTwitter}.apply(queryFixture())
	assertIDs(t, got, "post-2", "post-0")
}

// TestQuery_Pagination tests limit and offset clamping
func TestQuery_Pagination(t *testing.T) {
	got := Query{Limit: 2}.apply(queryFixture())
	assertIDs(t, got, "post-4", "post-3")

	got = Query{Limit: 2, Offset: 2}.apply(queryFixture())
	assertIDs(t, got, "post-2", "post-1")

	// Offset beyond the result set yields empty, not a panic.
	got = Query{Offset: 99}.apply(queryFixture())
	assertIDs(t, got)

	// Limit beyond the result set is clamped.
	got = Query{Limit: 99, Offset: 4}.apply(queryFixture())
	assertIDs(t, got, "post-0")
}

// TestQuery_CombinedPipeline tests filters, sort, and pagination together
func TestQuery_CombinedPipeline(t *testing.T) {
	got := Query{
		Platform:  schema.PlatformTwitter,
		SortOrder: SortAsc,
		Limit:     1,
	}.apply(queryFixture())
	assertIDs(t, got, "post-0")
}

// TestQuery_SortByPlatform tests the secondary sort key
func TestQuery_SortByPlatform(t *testing.T) {
	got := Query{SortBy: SortByPlatform, SortOrder: SortAsc}.apply(queryFixture())
	// Alphabetical: instagram, twitter, twitter, website, youtube.
	// The sort is stable, so equal platforms keep input order.
	assertIDs(t, got, "post-4", "post-0", "post-2", "post-3", "post-1")
}
