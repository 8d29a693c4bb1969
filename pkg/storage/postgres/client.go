// Package postgres provides the PostgreSQL implementation of the memory
// store.
//
// PostgreSQL is the server backend for shared, multi-agent deployments.
// Structured payloads are stored as JSONB and embedding vectors use the
// pgvector extension, so semantic recall runs inside the database instead
// of in process.
//
// Beyond the core Store interface the client implements every optional
// capability: stats, project groups, relation edges, and candidate search.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/lib/pq"

	"github.com/memorypulse/mempulse-go/pkg/relation"
	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// Client implements storage.Store using PostgreSQL as the backend.
type Client struct {
	// db is the PostgreSQL database connection.
	db *sql.DB

	// ids generates row ids for relation edges and project groups.
	ids *snowflake.Node
}

// Interface compliance, including the optional capabilities.
var (
	_ storage.Store             = (*Client)(nil)
	_ storage.StatsProvider     = (*Client)(nil)
	_ storage.GroupStore        = (*Client)(nil)
	_ storage.RelationStore     = (*Client)(nil)
	_ storage.CandidateSearcher = (*Client)(nil)
)

// Config contains PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewClient creates a new PostgreSQL store client.
//
// Parameters:
//   - cfg: Connection configuration
//
// Returns:
//   - *Client: The PostgreSQL client instance
//   - error: Error if connection or schema creation fails
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{db: db, ids: node}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the pgvector extension and schema.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			session_id TEXT,
			timestamp TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			tags JSONB NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 1,
			summary TEXT NOT NULL,
			data JSONB,
			raw_context JSONB,
			artifacts JSONB,
			relations JSONB,
			keywords JSONB NOT NULL DEFAULT '[]',
			full_text TEXT NOT NULL DEFAULT '',
			embedding vector,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_timestamp ON memories(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_project_type ON memories(project_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_project_timestamp ON memories(project_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id) WHERE session_id IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS project_groups (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			projects JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memory_relations (
			id BIGINT PRIMARY KEY,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE(source_id, target_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_source ON memory_relations(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_target ON memory_relations(target_id)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}
	return nil
}

// memoryColumns is the column list shared by every memory SELECT.
const memoryColumns = `id, project_id, session_id, timestamp, type, tags, version,
	summary, data, raw_context, artifacts, relations, keywords, full_text,
	embedding::text, created_at, updated_at`

// Store persists a fully populated memory record.
func (c *Client) Store(ctx context.Context, memory *storage.Memory) error {
	row, err := encodeMemory(memory)
	if err != nil {
		return fmt.Errorf("Store: %w", err)
	}

	query := `
		INSERT INTO memories
		(id, project_id, session_id, timestamp, type, tags, version,
		 summary, data, raw_context, artifacts, relations, keywords, full_text,
		 embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::vector, $16, $17)
	`

	_, err = c.db.ExecContext(ctx, query,
		memory.ID,
		memory.ProjectID,
		nullString(memory.SessionID),
		memory.Timestamp,
		string(memory.Type),
		row.tags,
		memory.Version,
		memory.Content.Summary,
		row.data,
		row.rawContext,
		row.artifacts,
		row.relations,
		row.keywords,
		memory.Searchable.FullText,
		row.embedding,
		memory.CreatedAt,
		memory.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Store: %w", err)
	}

	return nil
}

// GetByID retrieves a memory by id. Returns (nil, nil) when absent.
func (c *Client) GetByID(ctx context.Context, id string) (*storage.Memory, error) {
	query := fmt.Sprintf(`SELECT %s FROM memories WHERE id = $1`, memoryColumns)

	memory, err := scanMemory(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}

	return memory, nil
}

// GetByIDs retrieves several memories in one batch, in the order of the
// requested ids. Missing ids are silently omitted.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]*storage.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := &argList{}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = params.add(id)
	}

	query := fmt.Sprintf(`SELECT %s FROM memories WHERE id IN (%s)`,
		memoryColumns, joinPlaceholders(placeholders))

	rows, err := c.db.QueryContext(ctx, query, params.args...)
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*storage.Memory, len(ids))
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByIDs: %w", err)
		}
		byID[memory.ID] = memory
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}

	memories := make([]*storage.Memory, 0, len(byID))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			memories = append(memories, m)
		}
	}
	return memories, nil
}

// Update applies a partial update inside a transaction, recomputes the
// derived searchable fields, and bumps the version.
func (c *Client) Update(ctx context.Context, id string, update *storage.MemoryUpdate) (*storage.Memory, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`SELECT %s FROM memories WHERE id = $1 FOR UPDATE`, memoryColumns)
	memory, err := scanMemory(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Update: memory %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	applyUpdate(memory, update)
	memory.Searchable = storage.BuildSearchable(memory)
	memory.Version++
	memory.UpdatedAt = time.Now()

	row, err := encodeMemory(memory)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE memories
		SET tags = $1, version = $2, summary = $3, data = $4, artifacts = $5,
		    relations = $6, keywords = $7, full_text = $8, embedding = $9::vector, updated_at = $10
		WHERE id = $11
	`,
		row.tags,
		memory.Version,
		memory.Content.Summary,
		row.data,
		row.artifacts,
		row.relations,
		row.keywords,
		memory.Searchable.FullText,
		row.embedding,
		memory.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	return memory, nil
}

// applyUpdate merges the non-empty update fields into memory.
func applyUpdate(memory *storage.Memory, update *storage.MemoryUpdate) {
	if update == nil {
		return
	}
	if update.Summary != nil {
		memory.Content.Summary = *update.Summary
	}
	if update.Data != nil {
		memory.Content.Data = update.Data
	}
	if update.Tags != nil {
		memory.Tags = update.Tags
	}
	if update.Artifacts != nil {
		memory.Content.Artifacts = update.Artifacts
	}
	if update.Relations != nil {
		memory.Relations = *update.Relations
	}
	if update.Embedding != nil {
		memory.Embedding = update.Embedding
	}
}

// Delete removes a memory by id. Relation edges pointing at the record are
// left in place; readers tolerate the dangling target.
func (c *Client) Delete(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Delete: memory %s: %w", id, storage.ErrNotFound)
	}

	return nil
}

// Relations returns the tree-shaped relation expansion rooted at id.
func (c *Client) Relations(ctx context.Context, id string, depth int) (*storage.RelationNode, error) {
	return relation.Tree(ctx, c, id, depth)
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
