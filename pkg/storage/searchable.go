package storage

import (
	"sort"
	"strings"

	"github.com/memorypulse/mempulse-go/pkg/keywords"
)

// BuildSearchable derives the search fields for a memory from its content
// and tags. Called on every write so the index never drifts from the record.
//
// The full text joins the summary, the flattened data payload, artifact
// names and bodies, and the tags, lowercased. Keywords come from the
// extractor over that text plus the raw context, unioned with the tags.
func BuildSearchable(m *Memory) Searchable {
	parts := []string{m.Content.Summary}

	if len(m.Content.Data) > 0 {
		parts = append(parts, keywords.Flatten(m.Content.Data))
	}

	if len(m.Content.Artifacts) > 0 {
		names := make([]string, 0, len(m.Content.Artifacts))
		for name := range m.Content.Artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, name, m.Content.Artifacts[name])
		}
	}

	if len(m.Tags) > 0 {
		parts = append(parts, strings.Join(m.Tags, " "))
	}

	fullText := strings.ToLower(strings.Join(parts, " "))

	extracted := keywords.Extract(m.Content.Summary+" "+fullText, m.Content.RawContext)

	seen := make(map[string]struct{}, len(m.Tags)+len(extracted))
	merged := make([]string, 0, len(m.Tags)+len(extracted))
	for _, kw := range append(append([]string(nil), m.Tags...), extracted...) {
		lower := strings.ToLower(kw)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		merged = append(merged, kw)
	}

	return Searchable{Keywords: merged, FullText: fullText}
}
