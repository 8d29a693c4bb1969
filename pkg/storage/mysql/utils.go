package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memorypulse/mempulse-go/pkg/storage"
	"github.com/memorypulse/mempulse-go/pkg/vector"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// relationsJSON is the persisted shape of the embedded relation edges.
type relationsJSON struct {
	Replaces    []string `json:"replaces,omitempty"`
	RelatedTo   []string `json:"relatedTo,omitempty"`
	Impacts     []string `json:"impacts,omitempty"`
	DerivedFrom string   `json:"derivedFrom,omitempty"`
}

// encodedMemory holds the serialized column values of a memory record.
type encodedMemory struct {
	tags       string
	keywords   string
	data       sql.NullString
	rawContext sql.NullString
	artifacts  sql.NullString
	relations  sql.NullString
	embedding  sql.NullString
}

// encodeMemory serializes the structured fields of a memory for storage.
func encodeMemory(m *storage.Memory) (*encodedMemory, error) {
	row := &encodedMemory{}

	tags, err := json.Marshal(emptyIfNil(m.Tags))
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	row.tags = string(tags)

	kws, err := json.Marshal(emptyIfNil(m.Searchable.Keywords))
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	row.keywords = string(kws)

	if row.data, err = marshalNullable(len(m.Content.Data) > 0, m.Content.Data); err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	if row.rawContext, err = marshalNullable(len(m.Content.RawContext) > 0, m.Content.RawContext); err != nil {
		return nil, fmt.Errorf("encode rawContext: %w", err)
	}
	if row.artifacts, err = marshalNullable(len(m.Content.Artifacts) > 0, m.Content.Artifacts); err != nil {
		return nil, fmt.Errorf("encode artifacts: %w", err)
	}

	rel := relationsJSON{
		Replaces:    m.Relations.Replaces,
		RelatedTo:   m.Relations.RelatedTo,
		Impacts:     m.Relations.Impacts,
		DerivedFrom: m.Relations.DerivedFrom,
	}
	hasRelations := len(rel.Replaces) > 0 || len(rel.RelatedTo) > 0 || len(rel.Impacts) > 0 || rel.DerivedFrom != ""
	if row.relations, err = marshalNullable(hasRelations, rel); err != nil {
		return nil, fmt.Errorf("encode relations: %w", err)
	}

	if len(m.Embedding) > 0 {
		row.embedding = sql.NullString{String: vector.Serialize(m.Embedding), Valid: true}
	}

	return row, nil
}

// scanMemory decodes one memory row. The column order must match
// memoryColumns.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var (
		memory     storage.Memory
		sessionID  sql.NullString
		memType    string
		tags       string
		kws        string
		data       sql.NullString
		rawContext sql.NullString
		artifacts  sql.NullString
		relations  sql.NullString
		embedding  sql.NullString
	)

	err := scanner.Scan(
		&memory.ID,
		&memory.ProjectID,
		&sessionID,
		&memory.Timestamp,
		&memType,
		&tags,
		&memory.Version,
		&memory.Content.Summary,
		&data,
		&rawContext,
		&artifacts,
		&relations,
		&kws,
		&memory.Searchable.FullText,
		&embedding,
		&memory.CreatedAt,
		&memory.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	memory.Type = storage.MemoryType(memType)
	memory.SessionID = sessionID.String

	if err := json.Unmarshal([]byte(tags), &memory.Tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	if err := json.Unmarshal([]byte(kws), &memory.Searchable.Keywords); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	if err := unmarshalNullable(data, &memory.Content.Data); err != nil {
		return nil, fmt.Errorf("parse data: %w", err)
	}
	if err := unmarshalNullable(rawContext, &memory.Content.RawContext); err != nil {
		return nil, fmt.Errorf("parse rawContext: %w", err)
	}
	if err := unmarshalNullable(artifacts, &memory.Content.Artifacts); err != nil {
		return nil, fmt.Errorf("parse artifacts: %w", err)
	}

	if relations.Valid {
		var rel relationsJSON
		if err := json.Unmarshal([]byte(relations.String), &rel); err != nil {
			return nil, fmt.Errorf("parse relations: %w", err)
		}
		memory.Relations = storage.MemoryRelations{
			Replaces:    rel.Replaces,
			RelatedTo:   rel.RelatedTo,
			Impacts:     rel.Impacts,
			DerivedFrom: rel.DerivedFrom,
		}
	}

	if embedding.Valid {
		vec, err := vector.Deserialize(embedding.String)
		if err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		memory.Embedding = vec
	}

	return &memory, nil
}

// likeEscaper neutralizes LIKE wildcards so query tokens and tags match as
// literal substrings. Backslash is MySQL's default LIKE escape character,
// so escaping the bound pattern is sufficient.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// structuralWhere builds the AND-ed filter conditions shared by every
// search path: project scope, type, session, and tags. LIKE matching is
// case-insensitive under the default MySQL collations.
func structuralWhere(filters *storage.SearchFilters) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if scope := filters.Scope(); len(scope) == 1 {
		conditions = append(conditions, "project_id = ?")
		args = append(args, scope[0])
	} else if len(scope) > 1 {
		placeholders := strings.Repeat("?,", len(scope))
		conditions = append(conditions, fmt.Sprintf("project_id IN (%s)", placeholders[:len(placeholders)-1]))
		for _, p := range scope {
			args = append(args, p)
		}
	}

	if filters.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filters.Type))
	}

	if filters.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filters.SessionID)
	}

	if len(filters.Tags) > 0 {
		tagConds := make([]string, 0, len(filters.Tags))
		for _, tag := range filters.Tags {
			tagConds = append(tagConds, "tags LIKE ?")
			args = append(args, `%"`+escapeLike(tag)+`"%`)
		}
		conditions = append(conditions, "("+strings.Join(tagConds, " OR ")+")")
	}

	return conditions, args
}

// keywordWhere builds the OR-of-ORs keyword condition: a record matches if
// any query token substring-matches in any of the given columns.
func keywordWhere(query string, columns []string) (string, []interface{}) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return "", nil
	}

	var tokenConds []string
	var args []interface{}
	for _, token := range tokens {
		fieldConds := make([]string, 0, len(columns))
		for _, col := range columns {
			fieldConds = append(fieldConds, col+" LIKE ?")
			args = append(args, "%"+escapeLike(token)+"%")
		}
		tokenConds = append(tokenConds, "("+strings.Join(fieldConds, " OR ")+")")
	}

	return "(" + strings.Join(tokenConds, " OR ") + ")", args
}

// whereClause joins conditions into a WHERE clause, empty when there are
// no conditions.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}

func marshalNullable(present bool, v interface{}) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func unmarshalNullable(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
