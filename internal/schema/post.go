// Package schema provides the record types stored by linkstash.
package schema

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Platform identifies where a saved post lives.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformWebsite   Platform = "website"
)

// Platforms lists all known platforms, in display order.
var Platforms = []Platform{
	PlatformTwitter,
	PlatformInstagram,
	PlatformYouTube,
	PlatformLinkedIn,
	PlatformWebsite,
}

// Post is a saved reference to a social post or web page.
//
// Timestamps follow last-write-wins semantics: DateAdded is set once at
// creation and never changes, UpdatedAt is refreshed on every mutation and
// is the field compared during sync reconciliation.
type Post struct {
	// ===== Core Identification =====
	ID string `json:"id"`

	// ===== Saved Reference =====
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`

	// ===== Metadata =====
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// ===== Tags & Classification =====
	Tags []string `json:"tags,omitempty"` // insertion order preserved, no duplicates

	// ===== Timestamps (conflict resolution) =====
	DateAdded time.Time `json:"dateAdded"`
	UpdatedAt time.Time `json:"updatedAt"`

	// ===== Assignment & Ownership =====
	Owner string `json:"owner,omitempty"` // user ID for remote rows
}

// Validate checks if the Post has valid field values.
func (p *Post) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.URL == "" {
		return fmt.Errorf("url is required")
	}
	if p.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if p.DateAdded.IsZero() {
		return fmt.Errorf("dateAdded is required")
	}
	if p.UpdatedAt.IsZero() {
		return fmt.Errorf("updatedAt is required")
	}
	seen := make(map[string]bool, len(p.Tags))
	for _, tag := range p.Tags {
		if tag == "" {
			return fmt.Errorf("tags must not be empty strings")
		}
		if seen[tag] {
			return fmt.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
	return nil
}

// SetDefaults applies default values for optional fields.
// This ensures consistent behavior when fields are omitted.
func (p *Post) SetDefaults() {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.Platform == "" {
		p.Platform = DetectPlatform(p.URL)
	}
	p.Tags = NormalizeTags(p.Tags)
	if p.DateAdded.IsZero() {
		p.DateAdded = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	return &c
}

// HasTag reports whether the post carries the given tag.
func (p *Post) HasTag(name string) bool {
	for _, tag := range p.Tags {
		if tag == name {
			return true
		}
	}
	return false
}

// NewID generates an opaque unique post identifier.
func NewID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a timestamp so callers still get a usable ID.
		return fmt.Sprintf("post-%d", time.Now().UnixNano())
	}
	return "post-" + hex.EncodeToString(buf)
}

// NormalizeTags trims whitespace and removes empty and duplicate entries
// while preserving the insertion order of first occurrences.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// DetectPlatform guesses the platform from the URL host.
// Unknown or unparseable URLs map to PlatformWebsite.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return PlatformWebsite
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	switch {
	case host == "twitter.com" || host == "x.com" || strings.HasSuffix(host, ".twitter.com"):
		return PlatformTwitter
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return PlatformInstagram
	case host == "youtube.com" || host == "youtu.be" || strings.HasSuffix(host, ".youtube.com"):
		return PlatformYouTube
	case host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com"):
		return PlatformLinkedIn
	default:
		return PlatformWebsite
	}
}
