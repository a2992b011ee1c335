// Package sqlite implements the primary store backend on embedded SQLite.
//
// The database runs through ncruces/go-sqlite3 (WASM SQLite) with WAL mode
// for concurrent reads. Tags are stored twice: as a JSON array on each post
// row and as derived aggregates in the tags table, kept consistent inside
// the same transaction as the post mutation.
//
// Schema:
//   - posts:    id PK, url UNIQUE, platform, tags (JSON), timestamps
//   - tags:     name PK, count
//   - settings: key PK, value (JSON)
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/store"
)

// FileName is the database filename created under the data directory.
const FileName = "linkstash.db"

func init() {
	// Share one compiled WASM module across connections.
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().
		WithCompilationCache(wazero.NewCompilationCache())

	store.Register(store.KindSQLite, func(dataDir string) (store.Backend, error) {
		return Open(filepath.Join(dataDir, FileName))
	})
}

// DB wraps the SQLite connection and implements store.Backend.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a backend at the specified database path.
//
// The database is created along with its schema if it doesn't exist.
// The caller MUST call Close() when done to ensure proper cleanup.
func Open(path string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to 5 seconds
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Kind implements store.Backend.
func (db *DB) Kind() store.Kind {
	return store.KindSQLite
}

// RawDB returns the underlying sql.DB connection.
// This is useful for integrating with other libraries that expect *sql.DB.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	// Checkpoint WAL before closing
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// initSchema creates tables and indexes if they don't exist.
// Idempotent - safe to call multiple times.
func (db *DB) initSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		platform TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',  -- JSON array
		date_added TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT ''
	);

	-- Derived tag aggregates, maintained transactionally with post writes
	CREATE TABLE IF NOT EXISTS tags (
		name TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL  -- JSON
	);

	-- Secondary lookups
	CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_url ON posts(url);
	CREATE INDEX IF NOT EXISTS idx_posts_platform ON posts(platform);
	CREATE INDEX IF NOT EXISTS idx_posts_date_added ON posts(date_added);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// AddPost implements store.Backend.
//
// The post insert and its tag-count increments run in one transaction.
// A URL collision trips the unique index and surfaces as a generic
// storage error, not store.ErrDuplicateURL.
func (db *DB) AddPost(ctx context.Context, post *schema.Post) error {
	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO posts (id, url, platform, title, description, tags, date_added, updated_at, owner)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		post.ID,
		post.URL,
		string(post.Platform),
		post.Title,
		post.Description,
		string(tagsJSON),
		post.DateAdded.Format(time.RFC3339Nano),
		post.UpdatedAt.Format(time.RFC3339Nano),
		post.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	if err := incrementTags(ctx, tx, post.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPost implements store.Backend.
func (db *DB) GetPost(ctx context.Context, id string) (*schema.Post, error) {
	query := `
	SELECT id, url, platform, title, description, tags, date_added, updated_at, owner
	FROM posts
	WHERE id = ?
	`
	row := db.conn.QueryRowContext(ctx, query, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return post, err
}

// UpdatePost implements store.Backend.
//
// The stored tag set is diffed against the new one inside the same
// transaction as the post write: added tags are incremented, removed tags
// decremented and deleted at zero.
func (db *DB) UpdatePost(ctx context.Context, post *schema.Post) error {
	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldTagsJSON string
	err = tx.QueryRowContext(ctx, `SELECT tags FROM posts WHERE id = ?`, post.ID).Scan(&oldTagsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read existing post: %w", err)
	}

	var oldTags []string
	if err := json.Unmarshal([]byte(oldTagsJSON), &oldTags); err != nil {
		return fmt.Errorf("failed to unmarshal stored tags: %w", err)
	}

	query := `
	UPDATE posts
	SET url = ?, platform = ?, title = ?, description = ?, tags = ?, date_added = ?, updated_at = ?, owner = ?
	WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, query,
		post.URL,
		string(post.Platform),
		post.Title,
		post.Description,
		string(tagsJSON),
		post.DateAdded.Format(time.RFC3339Nano),
		post.UpdatedAt.Format(time.RFC3339Nano),
		post.Owner,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	added, removed := diffTags(oldTags, post.Tags)
	if err := incrementTags(ctx, tx, added); err != nil {
		return err
	}
	if err := decrementTags(ctx, tx, removed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeletePost implements store.Backend.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var tagsJSON string
	err = tx.QueryRowContext(ctx, `SELECT tags FROM posts WHERE id = ?`, id).Scan(&tagsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read existing post: %w", err)
	}

	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return fmt.Errorf("failed to unmarshal stored tags: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, err)
	}

	if err := decrementTags(ctx, tx, tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListPosts implements store.Backend.
func (db *DB) ListPosts(ctx context.Context) ([]*schema.Post, error) {
	query := `
	SELECT id, url, platform, title, description, tags, date_added, updated_at, owner
	FROM posts
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListTags implements store.Backend.
func (db *DB) ListTags(ctx context.Context) ([]*schema.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, count FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*schema.Tag
	for rows.Next() {
		var tag schema.Tag
		if err := rows.Scan(&tag.Name, &tag.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// PutSetting implements store.Backend.
func (db *DB) PutSetting(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}

	query := `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := db.conn.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}

// GetSetting implements store.Backend.
func (db *DB) GetSetting(ctx context.Context, key string) (any, bool, error) {
	var data string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal setting %s: %w", key, err)
	}
	return value, true, nil
}

// PostCount returns the total number of posts in the database.
func (db *DB) PostCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

// incrementTags bumps each tag's count, creating rows at count=1.
func incrementTags(ctx context.Context, tx *sql.Tx, tags []string) error {
	query := `
	INSERT INTO tags (name, count) VALUES (?, 1)
	ON CONFLICT(name) DO UPDATE SET count = count + 1
	`
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, query, tag); err != nil {
			return fmt.Errorf("failed to increment tag %s: %w", tag, err)
		}
	}
	return nil
}

// decrementTags lowers each tag's count and deletes rows that reach zero.
func decrementTags(ctx context.Context, tx *sql.Tx, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `UPDATE tags SET count = count - 1 WHERE name = ?`, tag); err != nil {
			return fmt.Errorf("failed to decrement tag %s: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE name = ? AND count <= 0`, tag); err != nil {
			return fmt.Errorf("failed to delete tag %s: %w", tag, err)
		}
	}
	return nil
}

// diffTags returns the tags present only in newTags and only in oldTags.
func diffTags(oldTags, newTags []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(oldTags))
	for _, t := range oldTags {
		oldSet[t] = true
	}
	newSet := make(map[string]bool, len(newTags))
	for _, t := range newTags {
		newSet[t] = true
	}
	for _, t := range newTags {
		if !oldSet[t] {
			added = append(added, t)
		}
	}
	for _, t := range oldTags {
		if !newSet[t] {
			removed = append(removed, t)
		}
	}
	return added, removed
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanPost.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPost scans a single post row.
func scanPost(row rowScanner) (*schema.Post, error) {
	var post schema.Post
	var platform, tagsJSON, dateAdded, updatedAt string

	err := row.Scan(
		&post.ID,
		&post.URL,
		&platform,
		&post.Title,
		&post.Description,
		&tagsJSON,
		&dateAdded,
		&updatedAt,
		&post.Owner,
	)
	if err != nil {
		return nil, err
	}

	post.Platform = schema.Platform(platform)

	if t, err := time.Parse(time.RFC3339Nano, dateAdded); err == nil {
		post.DateAdded = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		post.UpdatedAt = t
	}

	if tagsJSON != "" && tagsJSON != "null" {
		if err := json.Unmarshal([]byte(tagsJSON), &post.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}

	return &post, nil
}

// scanPosts is a helper to scan multiple posts from query results.
func scanPosts(rows *sql.Rows) ([]*schema.Post, error) {
	var posts []*schema.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}
