package schema

import (
	"strings"
	"testing"
	"time"
)

// validPost returns a post that passes Validate.
func validPost() *Post {
	now := time.Now().UTC()
	return &Post{
		ID:        "post-test1",
		URL:       "https://example.com/a",
		Platform:  PlatformWebsite,
		Tags:      []string{"go", "news"},
		DateAdded: now,
		UpdatedAt: now,
	}
}

// TestValidate_Success tests a fully populated post
func TestValidate_Success(t *testing.T) {
	if err := validPost().Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

// TestValidate_MissingFields tests each required field
func TestValidate_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Post)
	}{
		{"no id", func(p *Post) { p.ID = "" }},
		{"no url", func(p *Post) { p.URL = "" }},
		{"no platform", func(p *Post) { p.Platform = "" }},
		{"no dateAdded", func(p *Post) { p.DateAdded = time.Time{} }},
		{"no updatedAt", func(p *Post) { p.UpdatedAt = time.Time{} }},
		{"empty tag", func(p *Post) { p.Tags = []string{""} }},
		{"duplicate tag", func(p *Post) { p.Tags = []string{"go", "go"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPost()
			tc.mutate(p)
			if err := p.Validate(); err == nil {
				t.Errorf("Validate() succeeded, want error")
			}
		})
	}
}

// TestSetDefaults tests generated fields on a bare post
func TestSetDefaults(t *testing.T) {
	p := &Post{URL: "https://youtu.be/abc123"}
	p.SetDefaults()

	if !strings.HasPrefix(p.ID, "post-") {
		t.Errorf("ID = %q, want post- prefix", p.ID)
	}
	if p.Platform != PlatformYouTube {
		t.Errorf("Platform = %q, want %q", p.Platform, PlatformYouTube)
	}
	if p.DateAdded.IsZero() {
		t.Error("DateAdded not set")
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() after SetDefaults failed: %v", err)
	}
}

// TestSetDefaults_PreservesDateAdded tests that an existing creation time survives
func TestSetDefaults_PreservesDateAdded(t *testing.T) {
	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Post{URL: "https://example.com", DateAdded: added}
	p.SetDefaults()

	if !p.DateAdded.Equal(added) {
		t.Errorf("DateAdded = %v, want %v", p.DateAdded, added)
	}
	if !p.UpdatedAt.After(added) {
		t.Errorf("UpdatedAt = %v, want after %v", p.UpdatedAt, added)
	}
}

// TestNewID tests uniqueness and shape of generated IDs
func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if !strings.HasPrefix(id, "post-") {
			t.Fatalf("NewID() = %q, want post- prefix", id)
		}
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}
}

// TestNormalizeTags tests trimming, dedup, and order preservation
func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" go ", "news", "go", "", "  ", "ai"})
	want := []string{"go", "news", "ai"}

	if len(got) != len(want) {
		t.Fatalf("NormalizeTags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeTags()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestDetectPlatform tests host to platform mapping
func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want Platform
	}{
		{"https://twitter.com/user/status/1", PlatformTwitter},
		{"https://x.com/user/status/1", PlatformTwitter},
		{"https://www.instagram.com/p/abc/", PlatformInstagram},
		{"https://www.youtube.com/watch?v=abc", PlatformYouTube},
		{"https://youtu.be/abc", PlatformYouTube},
		{"https://www.linkedin.com/posts/abc", PlatformLinkedIn},
		{"https://blog.example.com/article", PlatformWebsite},
		{"not a url", PlatformWebsite},
		{"", PlatformWebsite},
	}

	for _, tc := range cases {
		if got := DetectPlatform(tc.url); got != tc.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

// TestClone tests that tag slices are independent
func TestClone(t *testing.T) {
	p := validPost()
	c := p.Clone()

	c.Tags[0] = "changed"
	if p.Tags[0] == "changed" {
		t.Error("Clone() shares the tags slice with the original")
	}
}

// TestHasTag tests tag membership
func TestHasTag(t *testing.T) {
	p := validPost()
	if !p.HasTag("go") {
		t.Error("HasTag(go) = false, want true")
	}
	if p.HasTag("missing") {
		t.Error("HasTag(missing) = true, want false")
	}
}
