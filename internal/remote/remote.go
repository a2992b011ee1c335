// Package remote provides the cloud-side post store used by sync.
//
// The remote is a Turso/libSQL database reached over the network. Rows are
// scoped by owner: every operation targets the posts of a single
// authenticated user, and a post is keyed by (owner, id).
//
// Remote failures are considered transient and are surfaced to the sync
// layer, which logs and swallows them; nothing here retries.
package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/linkstash/linkstash/internal/schema"
)

// Store is the remote tabular interface consumed by the sync layer.
// Implementations must scope every operation to the given owner.
type Store interface {
	// InsertPost creates a remote row for the post, tagged with owner.
	InsertPost(ctx context.Context, owner string, post *schema.Post) error

	// UpdatePost replaces the remote row matching (owner, post.ID).
	UpdatePost(ctx context.Context, owner string, post *schema.Post) error

	// DeletePost removes the remote row matching (owner, id).
	// Deleting a missing row is not an error (idempotent).
	DeletePost(ctx context.Context, owner, id string) error

	// ListPosts returns all remote posts owned by owner.
	ListPosts(ctx context.Context, owner string) ([]*schema.Post, error)
}

// Client implements Store over a libSQL database.
type Client struct {
	conn *sql.DB
	url  string
}

// Open connects to the remote database.
//
// url is a libsql:// URL; authToken may be empty for databases without
// authentication (local sqld instances, tests).
//
// The caller MUST call Close() when done.
func Open(url, authToken string) (*Client, error) {
	dsn := url
	if authToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(time.Minute)

	c := &Client{conn: conn, url: url}
	if err := c.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the remote connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// initSchema creates the remote posts table if it doesn't exist.
// Idempotent - safe to call multiple times.
func (c *Client) initSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS posts (
		owner TEXT NOT NULL,
		id TEXT NOT NULL,
		url TEXT NOT NULL,
		platform TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		date_added TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (owner, id)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_owner ON posts(owner);
	`
	if _, err := c.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize remote schema: %w", err)
	}
	return nil
}

// InsertPost implements Store.
func (c *Client) InsertPost(ctx context.Context, owner string, post *schema.Post) error {
	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
	INSERT INTO posts (owner, id, url, platform, title, description, tags, date_added, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(owner, id) DO UPDATE SET
		url = excluded.url,
		platform = excluded.platform,
		title = excluded.title,
		description = excluded.description,
		tags = excluded.tags,
		updated_at = excluded.updated_at
	`
	_, err = c.conn.ExecContext(ctx, query,
		owner,
		post.ID,
		post.URL,
		string(post.Platform),
		post.Title,
		post.Description,
		string(tagsJSON),
		post.DateAdded.Format(time.RFC3339Nano),
		post.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert remote post %s: %w", post.ID, err)
	}
	return nil
}

// UpdatePost implements Store.
func (c *Client) UpdatePost(ctx context.Context, owner string, post *schema.Post) error {
	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
	UPDATE posts
	SET url = ?, platform = ?, title = ?, description = ?, tags = ?, updated_at = ?
	WHERE owner = ? AND id = ?
	`
	_, err = c.conn.ExecContext(ctx, query,
		post.URL,
		string(post.Platform),
		post.Title,
		post.Description,
		string(tagsJSON),
		post.UpdatedAt.Format(time.RFC3339Nano),
		owner,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update remote post %s: %w", post.ID, err)
	}
	return nil
}

// DeletePost implements Store.
func (c *Client) DeletePost(ctx context.Context, owner, id string) error {
	_, err := c.conn.ExecContext(ctx, `DELETE FROM posts WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete remote post %s: %w", id, err)
	}
	return nil
}

// ListPosts implements Store.
func (c *Client) ListPosts(ctx context.Context, owner string) ([]*schema.Post, error) {
	query := `
	SELECT id, url, platform, title, description, tags, date_added, updated_at
	FROM posts
	WHERE owner = ?
	`
	rows, err := c.conn.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote posts: %w", err)
	}
	defer rows.Close()

	var posts []*schema.Post
	for rows.Next() {
		var post schema.Post
		var platform, tagsJSON, dateAdded, updatedAt string

		err := rows.Scan(
			&post.ID,
			&post.URL,
			&platform,
			&post.Title,
			&post.Description,
			&tagsJSON,
			&dateAdded,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan remote post: %w", err)
		}

		post.Platform = schema.Platform(platform)
		post.Owner = owner
		if t, err := time.Parse(time.RFC3339Nano, dateAdded); err == nil {
			post.DateAdded = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			post.UpdatedAt = t
		}
		if tagsJSON != "" && tagsJSON != "null" {
			if err := json.Unmarshal([]byte(tagsJSON), &post.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal remote tags: %w", err)
			}
		}
		if post.Tags == nil {
			post.Tags = []string{}
		}

		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote posts: %w", err)
	}
	return posts, nil
}
