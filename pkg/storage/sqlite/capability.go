package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// Stats returns aggregate record counts, scoped to projectID when
// non-empty.
func (c *Client) Stats(ctx context.Context, projectID string) (*storage.Stats, error) {
	where := ""
	var args []interface{}
	if projectID != "" {
		where = "WHERE project_id = ?"
		args = append(args, projectID)
	}

	stats := &storage.Stats{
		ByType:    make(map[storage.MemoryType]int),
		ByProject: make(map[string]int),
	}

	if err := c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM memories %s`, where), args...,
	).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	typeRows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT type, COUNT(*) FROM memories %s GROUP BY type`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	defer func() { _ = typeRows.Close() }()
	for typeRows.Next() {
		var t string
		var count int
		if err := typeRows.Scan(&t, &count); err != nil {
			return nil, fmt.Errorf("Stats: %w", err)
		}
		stats.ByType[storage.MemoryType(t)] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	projectRows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT project_id, COUNT(*) FROM memories %s GROUP BY project_id`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	defer func() { _ = projectRows.Close() }()
	for projectRows.Next() {
		var p string
		var count int
		if err := projectRows.Scan(&p, &count); err != nil {
			return nil, fmt.Errorf("Stats: %w", err)
		}
		stats.ByProject[p] = count
	}
	if err := projectRows.Err(); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	recentQuery := `SELECT COUNT(*) FROM memories WHERE timestamp >= ?`
	recentArgs := []interface{}{time.Now().AddDate(0, 0, -7)}
	if projectID != "" {
		recentQuery += " AND project_id = ?"
		recentArgs = append(recentArgs, projectID)
	}
	if err := c.db.QueryRowContext(ctx, recentQuery, recentArgs...).Scan(&stats.RecentCount); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	return stats, nil
}

// SaveGroup inserts or replaces a project group by name.
func (c *Client) SaveGroup(ctx context.Context, group *storage.ProjectGroup) error {
	projects, err := json.Marshal(emptyIfNil(group.Projects))
	if err != nil {
		return fmt.Errorf("SaveGroup: %w", err)
	}

	now := time.Now()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO project_groups (id, name, projects, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET projects = excluded.projects, updated_at = excluded.updated_at
	`, c.ids.Generate().Int64(), group.Name, string(projects), now, now)
	if err != nil {
		return fmt.Errorf("SaveGroup: %w", err)
	}

	return nil
}

// GetGroup retrieves a project group by name.
func (c *Client) GetGroup(ctx context.Context, name string) (*storage.ProjectGroup, error) {
	group, err := scanGroup(c.db.QueryRowContext(ctx, `
		SELECT id, name, projects, created_at, updated_at
		FROM project_groups WHERE name = ?
	`, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetGroup: group %s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetGroup: %w", err)
	}
	return group, nil
}

// GroupForProject finds the group containing projectID. Returns (nil, nil)
// when the project belongs to no group.
func (c *Client) GroupForProject(ctx context.Context, projectID string) (*storage.ProjectGroup, error) {
	// Narrow with a substring match first, then verify real membership
	// against the decoded list.
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, projects, created_at, updated_at
		FROM project_groups WHERE projects LIKE ? ESCAPE '\'
	`, `%"`+escapeLike(projectID)+`"%`)
	if err != nil {
		return nil, fmt.Errorf("GroupForProject: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("GroupForProject: %w", err)
		}
		if group.ContainsProject(projectID) {
			return group, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GroupForProject: %w", err)
	}

	return nil, nil
}

// ListGroups returns every project group, ordered by name.
func (c *Client) ListGroups(ctx context.Context) ([]*storage.ProjectGroup, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, projects, created_at, updated_at
		FROM project_groups ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("ListGroups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []*storage.ProjectGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("ListGroups: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListGroups: %w", err)
	}

	return groups, nil
}

// DeleteGroup removes a project group by name.
func (c *Client) DeleteGroup(ctx context.Context, name string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM project_groups WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("DeleteGroup: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteGroup: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteGroup: group %s: %w", name, storage.ErrNotFound)
	}

	return nil
}

// scanGroup decodes one project-group row.
func scanGroup(scanner rowScanner) (*storage.ProjectGroup, error) {
	var group storage.ProjectGroup
	var projects string

	err := scanner.Scan(&group.ID, &group.Name, &projects, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(projects), &group.Projects); err != nil {
		return nil, fmt.Errorf("parse projects: %w", err)
	}
	return &group, nil
}

// CreateRelations persists relation edges, skipping duplicates of
// (sourceId, targetId, type). Returns the number actually created.
func (c *Client) CreateRelations(ctx context.Context, relations []*storage.MemoryRelation) (int, error) {
	if len(relations) == 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("CreateRelations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := 0
	for _, rel := range relations {
		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO memory_relations
			(id, source_id, target_id, type, confidence, is_auto_generated, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ids.Generate().Int64(),
			rel.SourceID,
			rel.TargetID,
			string(rel.Type),
			rel.Confidence,
			rel.IsAutoGenerated,
			nullString(rel.Reason),
			time.Now(),
		)
		if err != nil {
			return 0, fmt.Errorf("CreateRelations: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("CreateRelations: %w", err)
		}
		created += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("CreateRelations: %w", err)
	}

	return created, nil
}

// MemoryRelations returns every edge whose source or target is memoryID,
// newest first.
func (c *Client) MemoryRelations(ctx context.Context, memoryID string) ([]*storage.MemoryRelation, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, type, confidence, is_auto_generated, reason, created_at
		FROM memory_relations
		WHERE source_id = ? OR target_id = ?
		ORDER BY created_at DESC
	`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("MemoryRelations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var relations []*storage.MemoryRelation
	for rows.Next() {
		var rel storage.MemoryRelation
		var relType string
		var reason sql.NullString

		if err := rows.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &relType,
			&rel.Confidence, &rel.IsAutoGenerated, &reason, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("MemoryRelations: %w", err)
		}

		rel.Type = storage.RelationType(relType)
		rel.Reason = reason.String
		relations = append(relations, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MemoryRelations: %w", err)
	}

	return relations, nil
}

// DeleteRelation removes edges from sourceID to targetID. An empty relType
// removes edges of every type. Returns the number deleted.
func (c *Client) DeleteRelation(ctx context.Context, sourceID, targetID string, relType storage.RelationType) (int, error) {
	query := `DELETE FROM memory_relations WHERE source_id = ? AND target_id = ?`
	args := []interface{}{sourceID, targetID}
	if relType != "" {
		query += " AND type = ?"
		args = append(args, string(relType))
	}

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("DeleteRelation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteRelation: %w", err)
	}
	return int(affected), nil
}

// SearchCandidates returns records in the given projects whose summary,
// full text, or keywords contain any of the supplied keywords, newest
// first. Used by auto-relation discovery.
func (c *Client) SearchCandidates(ctx context.Context, kws []string, projectIDs []string, excludeID string, limit int) ([]*storage.Memory, error) {
	if len(kws) == 0 || len(projectIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	placeholders := strings.Repeat("?,", len(projectIDs))
	conditions := []string{fmt.Sprintf("project_id IN (%s)", placeholders[:len(placeholders)-1])}
	var args []interface{}
	for _, p := range projectIDs {
		args = append(args, p)
	}

	if excludeID != "" {
		conditions = append(conditions, "id != ?")
		args = append(args, excludeID)
	}

	kwConds := make([]string, 0, len(kws)*3)
	for _, kw := range kws {
		pattern := "%" + escapeLike(kw) + "%"
		kwConds = append(kwConds,
			"summary LIKE ? COLLATE NOCASE ESCAPE '\\'",
			"full_text LIKE ? COLLATE NOCASE ESCAPE '\\'",
			"keywords LIKE ? COLLATE NOCASE ESCAPE '\\'",
		)
		args = append(args, pattern, pattern, pattern)
	}
	conditions = append(conditions, "("+strings.Join(kwConds, " OR ")+")")

	query := fmt.Sprintf(`
		SELECT %s FROM memories
		%s
		ORDER BY timestamp DESC
		LIMIT ?
	`, memoryColumns, whereClause(conditions))

	rows, err := c.db.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("SearchCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("SearchCandidates: %w", err)
		}
		memories = append(memories, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchCandidates: %w", err)
	}

	return memories, nil
}
