package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// argList accumulates query arguments and hands out numbered placeholders.
type argList struct {
	args []interface{}
}

// add appends an argument and returns its $n placeholder.
func (a *argList) add(v interface{}) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

func joinPlaceholders(placeholders []string) string {
	return strings.Join(placeholders, ", ")
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
		row.embedding = sql.NullString{String: vectorToString(m.Embedding), Valid: true}
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
		vec, err := parseVectorString(embedding.String)
		if err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		memory.Embedding = vec
	}

	return &memory, nil
}

// likeEscaper neutralizes LIKE wildcards so query tokens and tags match as
// literal substrings. Backslash is the default LIKE escape character in
// Postgres, so escaping the bound pattern is sufficient.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// structuralWhere appends the AND-ed filter conditions shared by every
// search path: project scope, type, session, and tags.
func structuralWhere(filters *storage.SearchFilters, params *argList) []string {
	var conditions []string

	if scope := filters.Scope(); len(scope) == 1 {
		conditions = append(conditions, "project_id = "+params.add(scope[0]))
	} else if len(scope) > 1 {
		placeholders := make([]string, len(scope))
		for i, p := range scope {
			placeholders[i] = params.add(p)
		}
		conditions = append(conditions, fmt.Sprintf("project_id IN (%s)", joinPlaceholders(placeholders)))
	}

	if filters.Type != "" {
		conditions = append(conditions, "type = "+params.add(string(filters.Type)))
	}

	if filters.SessionID != "" {
		conditions = append(conditions, "session_id = "+params.add(filters.SessionID))
	}

	if len(filters.Tags) > 0 {
		tagConds := make([]string, 0, len(filters.Tags))
		for _, tag := range filters.Tags {
			tagConds = append(tagConds, "tags::text ILIKE "+params.add(`%"`+escapeLike(tag)+`"%`))
		}
		conditions = append(conditions, "("+strings.Join(tagConds, " OR ")+")")
	}

	return conditions
}

// keywordWhere builds the OR-of-ORs keyword condition: a record matches if
// any query token substring-matches, case-insensitive, in any of the given
// columns.
func keywordWhere(query string, columns []string, params *argList) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}

	var tokenConds []string
	for _, token := range tokens {
		fieldConds := make([]string, 0, len(columns))
		for _, col := range columns {
			fieldConds = append(fieldConds, col+" ILIKE "+params.add("%"+escapeLike(token)+"%"))
		}
		tokenConds = append(tokenConds, "("+strings.Join(fieldConds, " OR ")+")")
	}

	return "(" + strings.Join(tokenConds, " OR ") + ")"
}

// whereClause joins conditions into a WHERE clause, empty when there are
// no conditions.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}

// vectorToString converts a vector to the pgvector text format:
// "[0.1,0.2,0.3,...]".
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = fmt.Sprintf("%f", v)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// parseVectorString parses the pgvector text format back into a vector.
func parseVectorString(s string) ([]float64, error) {
	s = strings.Trim(s, "[]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))

	for i, part := range parts {
		var val float64
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%f", &val); err != nil {
			return nil, err
		}
		result[i] = val
	}

	return result, nil
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
