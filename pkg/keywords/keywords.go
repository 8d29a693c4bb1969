// Package keywords extracts salient search keywords from mixed Chinese and
// English text plus optional structured context, and provides keyword-set
// similarity measures used by auto-relation scoring.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// maxKeywords caps the size of the final keyword list.
	maxKeywords = 30

	// maxSpecialKeywords caps how many special-pattern matches are kept with
	// their original casing.
	maxSpecialKeywords = 10

	// maxResultKeywords caps the merged result.
	maxResultKeywords = 40

	// maxObjectDepth bounds the recursion when flattening structured context,
	// so pathological nesting cannot blow up extraction cost.
	maxObjectDepth = 5
)

// chineseStopWords are common Chinese function words that carry no search value.
var chineseStopWords = []string{
	"的", "是", "在", "了", "和", "与", "或", "有", "这", "那", "我", "你", "他", "她", "它",
	"们", "不", "也", "就", "都", "为", "被", "着", "让", "把", "给", "从", "到", "对", "于",
	"但", "而", "及", "还", "以", "所", "如", "则", "等", "该", "这个", "那个", "一个", "什么",
	"怎么", "如何", "可以", "需要", "使用", "进行", "通过", "已经", "然后", "因为", "所以",
	"如果", "虽然", "但是", "而且", "或者", "以及", "关于", "其中", "之后", "之前", "目前",
}

// englishStopWords are common English function words that carry no search value.
var englishStopWords = []string{
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could", "should",
	"may", "might", "must", "shall", "can", "need", "dare", "ought", "used",
	"to", "of", "in", "for", "on", "with", "at", "by", "from", "as", "into",
	"through", "during", "before", "after", "above", "below", "between",
	"and", "or", "but", "if", "then", "else", "when", "where", "why", "how",
	"all", "each", "every", "both", "few", "more", "most", "other", "some", "such",
	"no", "nor", "not", "only", "own", "same", "so", "than", "too", "very",
	"just", "also", "now", "here", "there", "this", "that", "these", "those",
	"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them",
	"my", "your", "his", "its", "our", "their", "mine", "yours", "hers", "ours", "theirs",
}

var stopWords = buildStopWordSet()

func buildStopWordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(chineseStopWords)+len(englishStopWords))
	for _, w := range chineseStopWords {
		set[w] = struct{}{}
	}
	for _, w := range englishStopWords {
		set[w] = struct{}{}
	}
	return set
}

// specialPatterns match tokens that must survive stopword filtering with
// their original casing: API paths, identifiers, versions, ports, file
// extensions, and well-known technology names.
var specialPatterns = []*regexp.Regexp{
	// API paths: /api/users, /v1/auth/login
	regexp.MustCompile(`(?i)/[a-z][a-z0-9\-_/]*`),
	// HTTP method + path: GET /api/users
	regexp.MustCompile(`(?i)\b(GET|POST|PUT|DELETE|PATCH)\s+/[a-z][a-z0-9\-_/]*`),
	// camelCase identifiers: getUserById, handleSubmit
	regexp.MustCompile(`\b[a-z][a-zA-Z0-9]*[A-Z][a-zA-Z0-9]*\b`),
	// PascalCase identifiers: UserService, AuthController
	regexp.MustCompile(`\b[A-Z][a-z]+(?:[A-Z][a-z]+)+\b`),
	// ALL_CAPS constants: MAX_RETRY, API_KEY
	regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}\b`),
	// Semantic versions: 1.0.0, v2.3.1, v1.2.3-beta.1
	regexp.MustCompile(`(?i)\bv?\d+\.\d+(?:\.\d+)?(?:-[a-z]+(?:\.\d+)?)?\b`),
	// Port numbers: :3000, :8080
	regexp.MustCompile(`:\d{2,5}\b`),
	// File extensions: .go, .tsx, .vue
	regexp.MustCompile(`(?i)\.[a-z]{2,4}\b`),
	// Common technology names
	regexp.MustCompile(`(?i)\b(?:PostgreSQL|MySQL|MongoDB|Redis|SQLite|Prisma|Docker|Kubernetes|K8s|Node\.js|React|Vue|Angular|Next\.js|Express|NestJS|GraphQL|REST|JWT|OAuth|WebSocket|CORS|HTTPS?|API|SDK|CLI|CI/CD|AWS|GCP|Azure)\b`),
}

// tokenSplitter separates words on whitespace and punctuation, covering both
// ASCII and full-width Chinese punctuation.
var tokenSplitter = regexp.MustCompile("[\\s\\n\\r\\t,，。.;；:：!！?？(（)）\\[\\]{}\"“”''‘’`<>《》【】、\\-=+*/\\\\|~@#$%^&]+")

var (
	cjkRun    = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]+`)
	asciiWord = regexp.MustCompile(`[a-zA-Z0-9_]+`)
)

// isStopWord reports whether word (case-insensitive) is a stopword.
func isStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

// tokenize splits mixed Chinese/English text into candidate tokens.
//
// Tokens containing CJK characters are expanded: each contiguous CJK run of
// 2 to 8 characters is emitted whole, and every sliding two-character window
// of a longer run is emitted as a bigram. Embedded ASCII identifiers are
// extracted separately.
func tokenize(text string) []string {
	var tokens []string

	for _, word := range tokenSplitter.Split(text, -1) {
		if runeLen(word) < 2 {
			continue
		}

		if cjkRun.MatchString(word) {
			for _, chars := range cjkRun.FindAllString(word, -1) {
				runes := []rune(chars)
				if len(runes) >= 2 && len(runes) <= 8 {
					tokens = append(tokens, chars)
				}
				if len(runes) > 2 {
					for i := 0; i < len(runes)-1; i++ {
						tokens = append(tokens, string(runes[i:i+2]))
					}
				}
			}
			for _, part := range asciiWord.FindAllString(word, -1) {
				if len(part) >= 2 {
					tokens = append(tokens, part)
				}
			}
		} else {
			tokens = append(tokens, word)
		}
	}

	return tokens
}

func runeLen(s string) int {
	return len([]rune(s))
}

// extractSpecialPatterns collects all special-pattern matches in text,
// preserving original casing.
func extractSpecialPatterns(text string) []string {
	var matches []string
	for _, pattern := range specialPatterns {
		matches = append(matches, pattern.FindAllString(text, -1)...)
	}
	return matches
}

// Flatten joins all string leaf values (and informative keys) of a nested
// structure into one text blob, visiting map keys in sorted order. Used to
// feed structured payloads into extraction and full-text indexing.
func Flatten(obj map[string]interface{}) string {
	return flattenObject(obj, 0)
}

// metadataKeys are structural field names skipped when flattening context
// objects; their values are identifiers and timestamps, not content.
var metadataKeys = map[string]struct{}{
	"id":        {},
	"createdAt": {},
	"updatedAt": {},
	"timestamp": {},
	"version":   {},
}

// flattenObject joins all string leaf values (and informative keys) of a
// nested structure into one text blob.
//
// Map keys are visited in sorted order so the output — and therefore the
// extracted keyword list — does not depend on map iteration order.
func flattenObject(obj interface{}, depth int) string {
	if depth > maxObjectDepth {
		return ""
	}

	switch v := obj.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, flattenObject(item, depth+1))
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(v, " ")
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var parts []string
		for _, k := range keys {
			if _, skip := metadataKeys[k]; skip {
				continue
			}
			if len(k) > 2 {
				parts = append(parts, k)
			}
			parts = append(parts, flattenObject(v[k], depth+1))
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// topByFrequency lowercases, drops stopwords and single-character tokens,
// and returns the limit most frequent tokens.
//
// Ties are broken lexicographically so the result is deterministic.
func topByFrequency(words []string, limit int) []string {
	frequency := make(map[string]int)
	for _, word := range words {
		normalized := strings.ToLower(word)
		if isStopWord(normalized) || runeLen(normalized) < 2 {
			continue
		}
		frequency[normalized]++
	}

	ranked := make([]string, 0, len(frequency))
	for word := range frequency {
		ranked = append(ranked, word)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if frequency[ranked[i]] != frequency[ranked[j]] {
			return frequency[ranked[i]] > frequency[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Extract produces a ranked, deduplicated keyword list from free text and an
// optional structured context object.
//
// The result unions the top special-pattern matches (original casing
// preserved, so paths and identifiers survive stopword filtering) with the
// highest-frequency content tokens, capped at 40 entries. Identical input
// always yields the identical list in the same order.
func Extract(content string, rawContext map[string]interface{}) []string {
	var all []string

	all = append(all, tokenize(content)...)
	all = append(all, extractSpecialPatterns(content)...)

	contextText := ""
	if rawContext != nil {
		contextText = flattenObject(rawContext, 0)
		all = append(all, tokenize(contextText)...)
		all = append(all, extractSpecialPatterns(contextText)...)
	}

	topKeywords := topByFrequency(all, maxKeywords)

	special := extractSpecialPatterns(content + " " + contextText)
	uniqueSpecial := dedup(special)
	if len(uniqueSpecial) > maxSpecialKeywords {
		uniqueSpecial = uniqueSpecial[:maxSpecialKeywords]
	}

	result := dedup(append(uniqueSpecial, topKeywords...))
	if len(result) > maxResultKeywords {
		result = result[:maxResultKeywords]
	}
	return result
}

// dedup removes duplicates while preserving first-occurrence order.
func dedup(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// JaccardSimilarity computes |intersection| / |union| of two keyword sets,
// case-insensitive. Two empty sets have similarity 0.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := lowerSet(a)
	setB := lowerSet(b)

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// Intersection returns the case-insensitive intersection of two keyword
// sets, in first-occurrence order of a.
func Intersection(a, b []string) []string {
	setB := lowerSet(b)
	seen := make(map[string]struct{})
	var out []string
	for _, w := range a {
		lower := strings.ToLower(w)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		if _, ok := setB[lower]; ok {
			out = append(out, lower)
		}
	}
	return out
}

func lowerSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
