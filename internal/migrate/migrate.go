// Package migrate moves posts in and out of the local store.
//
// Export writes one post per line as JSONL (or a single YAML document);
// Import reads the same formats back, upserting through the store's
// import path so timestamps are preserved and no sync mutations are
// queued. This covers backups and backend-to-backend moves (flatfile to
// sqlite and back).
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/store"
)

// Format identifies an export/import encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ImportOptions contains configuration for an import.
type ImportOptions struct {
	Path   string // input file path
	Format Format // defaults to jsonl
	DryRun bool   // parse and validate without writing
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	PostsRead    int
	PostsWritten int
	Errors       []string
}

// FromJSONL reads a JSONL stream and returns the parsed posts.
func FromJSONL(r io.Reader) ([]*schema.Post, error) {
	var posts []*schema.Post
	decoder := json.NewDecoder(r)
	lineNum := 0

	for {
		var post schema.Post
		if err := decoder.Decode(&post); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid JSON at record %d: %w", lineNum+1, err)
		}
		lineNum++
		posts = append(posts, &post)
	}

	return posts, nil
}

// ToJSONL writes posts one per line.
func ToJSONL(w io.Writer, posts []*schema.Post) error {
	encoder := json.NewEncoder(w)
	for _, post := range posts {
		if err := encoder.Encode(post); err != nil {
			return fmt.Errorf("failed to encode post %s: %w", post.ID, err)
		}
	}
	return nil
}

// FromYAML reads a YAML document holding a list of posts.
func FromYAML(r io.Reader) ([]*schema.Post, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	var posts []*schema.Post
	if err := yaml.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return posts, nil
}

// ToYAML writes posts as one YAML list.
func ToYAML(w io.Writer, posts []*schema.Post) error {
	data, err := yaml.Marshal(posts)
	if err != nil {
		return fmt.Errorf("failed to encode posts: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Export writes all posts from the store to path in the given format.
// The file is written atomically via temp file + rename.
func Export(ctx context.Context, st *store.Store, path string, format Format) (int, error) {
	posts := st.GetAllPosts(ctx, store.Query{SortBy: store.SortByDateAdded, SortOrder: store.SortAsc})

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}

	switch format {
	case FormatYAML:
		err = ToYAML(f, posts)
	default:
		err = ToJSONL(f, posts)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to rename export file: %w", err)
	}
	return len(posts), nil
}

// Import reads posts from opts.Path and upserts them into the store.
//
// Individual record failures are collected, not fatal; the import
// continues with the remaining records.
func Import(ctx context.Context, st *store.Store, opts ImportOptions) (*ImportResult, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	var posts []*schema.Post
	switch opts.Format {
	case FormatYAML:
		posts, err = FromYAML(f)
	default:
		posts, err = FromJSONL(f)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{PostsRead: len(posts)}
	for _, post := range posts {
		if post.ID == "" {
			post.ID = schema.NewID()
		}
		if post.Platform == "" {
			post.Platform = schema.DetectPlatform(post.URL)
		}
		if post.DateAdded.IsZero() {
			post.DateAdded = time.Now().UTC()
		}
		if post.UpdatedAt.IsZero() {
			post.UpdatedAt = post.DateAdded
		}

		if opts.DryRun {
			if err := post.Validate(); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invalid post %s: %v", post.ID, err))
			}
			continue
		}

		if err := st.ImportPost(ctx, post); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import post %s: %v", post.ID, err))
			continue
		}
		result.PostsWritten++
	}

	return result, nil
}
