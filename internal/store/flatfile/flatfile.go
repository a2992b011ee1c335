// Package flatfile implements the fallback store backend.
//
// The whole store lives in one JSON document {posts, tags, settings} at a
// fixed path. Every mutation clones the in-memory document, applies the
// change to the clone, writes the clone atomically (temp file + rename),
// and only then swaps it in. A failed write leaves both the file and the
// visible in-memory state untouched, so a post mutation and its tag-count
// adjustments can never be observed half-applied.
//
// Unlike the sqlite backend, URL uniqueness is enforced explicitly here
// and reported as store.ErrDuplicateURL.
package flatfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/store"
)

// FileName is the document filename created under the data directory.
const FileName = "linkstash.json"

func init() {
	store.Register(store.KindFlatfile, func(dataDir string) (store.Backend, error) {
		return Open(filepath.Join(dataDir, FileName))
	})
}

// document is the on-disk layout of the fallback store.
type document struct {
	Posts    []*schema.Post `json:"posts"`
	Tags     []*schema.Tag  `json:"tags"`
	Settings map[string]any `json:"settings"`
}

func emptyDocument() *document {
	return &document{
		Posts:    []*schema.Post{},
		Tags:     []*schema.Tag{},
		Settings: map[string]any{},
	}
}

// clone deep-copies the document so mutations can be staged without
// touching the visible state.
func (d *document) clone() *document {
	next := &document{
		Posts:    make([]*schema.Post, len(d.Posts)),
		Tags:     make([]*schema.Tag, len(d.Tags)),
		Settings: make(map[string]any, len(d.Settings)),
	}
	for i, post := range d.Posts {
		next.Posts[i] = post.Clone()
	}
	for i, tag := range d.Tags {
		t := *tag
		next.Tags[i] = &t
	}
	for k, v := range d.Settings {
		next.Settings[k] = v
	}
	return next
}

// incrementTag bumps a tag's count, creating the record at count=1.
func (d *document) incrementTag(name string) {
	for _, tag := range d.Tags {
		if tag.Name == name {
			tag.Count++
			return
		}
	}
	d.Tags = append(d.Tags, &schema.Tag{Name: name, Count: 1})
}

// decrementTag lowers a tag's count, deleting the record at zero.
func (d *document) decrementTag(name string) {
	for i, tag := range d.Tags {
		if tag.Name == name {
			tag.Count--
			if tag.Count <= 0 {
				d.Tags = append(d.Tags[:i], d.Tags[i+1:]...)
			}
			return
		}
	}
}

// Store implements store.Backend over a single JSON document.
type Store struct {
	path string

	mu     sync.Mutex
	doc    *document
	closed bool
}

// Open loads the document at path, seeding an empty one only when the
// file does not exist yet. Existing data survives restarts untouched.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.doc = emptyDocument()
		if err := s.save(s.doc); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}
	if doc.Posts == nil {
		doc.Posts = []*schema.Post{}
	}
	if doc.Tags == nil {
		doc.Tags = []*schema.Tag{}
	}
	if doc.Settings == nil {
		doc.Settings = map[string]any{}
	}
	s.doc = &doc
	return s, nil
}

// Kind implements store.Backend.
func (s *Store) Kind() store.Kind {
	return store.KindFlatfile
}

// Close implements store.Backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// save writes doc atomically via temp file + rename.
// Callers must hold s.mu.
func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store document: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// AddPost implements store.Backend.
// Rejects with store.ErrDuplicateURL when another post holds the URL.
func (s *Store) AddPost(ctx context.Context, post *schema.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	for _, existing := range s.doc.Posts {
		if existing.URL == post.URL {
			return fmt.Errorf("%w: %s", store.ErrDuplicateURL, post.URL)
		}
	}

	next := s.doc.clone()
	next.Posts = append(next.Posts, post.Clone())
	for _, tag := range post.Tags {
		next.incrementTag(tag)
	}

	if err := s.save(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// GetPost implements store.Backend.
func (s *Store) GetPost(ctx context.Context, id string) (*schema.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	for _, post := range s.doc.Posts {
		if post.ID == id {
			return post.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

// UpdatePost implements store.Backend.
func (s *Store) UpdatePost(ctx context.Context, post *schema.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	idx := -1
	for i, existing := range s.doc.Posts {
		if existing.ID == post.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}

	oldTags := s.doc.Posts[idx].Tags
	next := s.doc.clone()
	next.Posts[idx] = post.Clone()

	oldSet := make(map[string]bool, len(oldTags))
	for _, t := range oldTags {
		oldSet[t] = true
	}
	newSet := make(map[string]bool, len(post.Tags))
	for _, t := range post.Tags {
		newSet[t] = true
	}
	for _, t := range post.Tags {
		if !oldSet[t] {
			next.incrementTag(t)
		}
	}
	for _, t := range oldTags {
		if !newSet[t] {
			next.decrementTag(t)
		}
	}

	if err := s.save(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// DeletePost implements store.Backend.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	idx := -1
	for i, existing := range s.doc.Posts {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}

	tags := s.doc.Posts[idx].Tags
	next := s.doc.clone()
	next.Posts = append(next.Posts[:idx], next.Posts[idx+1:]...)
	for _, t := range tags {
		next.decrementTag(t)
	}

	if err := s.save(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// ListPosts implements store.Backend.
func (s *Store) ListPosts(ctx context.Context) ([]*schema.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	posts := make([]*schema.Post, 0, len(s.doc.Posts))
	for _, post := range s.doc.Posts {
		posts = append(posts, post.Clone())
	}
	return posts, nil
}

// ListTags implements store.Backend.
func (s *Store) ListTags(ctx context.Context) ([]*schema.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	tags := make([]*schema.Tag, 0, len(s.doc.Tags))
	for _, tag := range s.doc.Tags {
		t := *tag
		tags = append(tags, &t)
	}
	return tags, nil
}

// PutSetting implements store.Backend.
func (s *Store) PutSetting(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	next := s.doc.clone()
	next.Settings[key] = value

	if err := s.save(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// GetSetting implements store.Backend.
func (s *Store) GetSetting(ctx context.Context, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, store.ErrClosed
	}

	value, ok := s.doc.Settings[key]
	return value, ok, nil
}
