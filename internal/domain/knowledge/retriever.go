package knowledge

import (
	"sort"
	"strings"
)

// schemaBoost keeps schema chunks ahead of everything else: the SQL
// generator cannot work without column names even when the question
// mentions none of them.
const schemaBoost = 2.0

// hintBoost rewards chunks whose category matches a classifier signal.
const hintBoost = 1.5

// hintCategories maps classifier signal categories to the chunk
// categories they vouch for.
var hintCategories = map[string]Category{
	"proximity":   CategoryGeography,
	"coordinates": CategoryGeography,
	"region":      CategoryGeography,
	"temporal":    CategoryTemporal,
	"listing":     CategoryExamples,
	"aggregate":   CategoryExamples,
	"float-id":    CategorySchema,
}

// Retriever selects the chunks most relevant to a question, subject to a
// token budget. Scoring is keyword overlap weighted by chunk importance.
type Retriever struct {
	chunks []Chunk
	budget int
}

// NewRetriever builds a Retriever over a fixed chunk set with the given
// token budget.
func NewRetriever(chunks []Chunk, tokenBudget int) *Retriever {
	return &Retriever{chunks: chunks, budget: tokenBudget}
}

// Retrieve returns chunks for the question, best first, whose summed token
// counts never exceed the budget. Hints are classifier signal categories;
// chunks in a hinted category score higher. Chunks with no relevance at
// all are excluded outright, and duplicate titles collapse to the best
// scoring copy. An empty result is a valid answer: the prompt builders
// cope with a question that matched nothing.
func (r *Retriever) Retrieve(question string, hints []string) []Chunk {
	if len(r.chunks) == 0 {
		return nil
	}

	wanted := make(map[Category]bool, len(hints))
	for _, h := range hints {
		if cat, ok := hintCategories[h]; ok {
			wanted[cat] = true
		}
	}

	terms := tokenize(question)
	type scored struct {
		chunk Chunk
		score float64
	}
	ranked := make([]scored, 0, len(r.chunks))
	for _, c := range r.chunks {
		ranked = append(ranked, scored{chunk: c, score: scoreChunk(c, terms, wanted)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	var (
		out  []Chunk
		used int
	)
	seenTitle := make(map[string]bool, len(ranked))
	for _, s := range ranked {
		if s.score <= 0 {
			break // sorted descending, nothing below clears the floor
		}
		title := strings.ToLower(strings.TrimSpace(s.chunk.Title))
		if title != "" && seenTitle[title] {
			continue
		}
		if used+s.chunk.TokenCount > r.budget {
			continue
		}
		if title != "" {
			seenTitle[title] = true
		}
		out = append(out, s.chunk)
		used += s.chunk.TokenCount
	}
	return out
}

// scoreChunk counts question terms appearing in the chunk keywords, title
// or content, then weights by importance. A chunk matching no term and no
// hint scores zero and is never retrieved. Schema chunks carry a boost so
// they survive questions with no schema vocabulary.
func scoreChunk(c Chunk, terms []string, wanted map[Category]bool) float64 {
	matches := 0
	title := strings.ToLower(c.Title)
	content := strings.ToLower(c.Content)
	for _, term := range terms {
		switch {
		case containsKeyword(c.Keywords, term):
			matches += 2 // curated keywords are the strongest signal
		case strings.Contains(title, term):
			matches += 2
		case strings.Contains(content, term):
			matches++
		}
	}
	score := c.Importance * float64(matches)
	if wanted[c.Category] {
		score += hintBoost
	}
	if c.Category == CategorySchema {
		score += schemaBoost
	}
	return score
}

func containsKeyword(keywords []string, term string) bool {
	for _, k := range keywords {
		if strings.EqualFold(k, term) {
			return true
		}
	}
	return false
}

// tokenize lowercases and splits the question into terms, dropping words too
// short to be meaningful.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
