// Package knowledge holds the curated context chunks injected into LLM
// prompts: database schema notes, ocean region definitions, example queries
// and data-quality rules. Chunks live in a SQLite store and are selected per
// query by the Retriever under a token budget.
package knowledge

// Category groups chunks by what kind of context they carry.
type Category string

const (
	CategorySchema    Category = "schema"    // table and column documentation
	CategoryGeography Category = "geography" // named ocean regions and bounds
	CategoryTemporal  Category = "temporal"  // date handling conventions
	CategoryExamples  Category = "examples"  // worked query examples
	CategoryBGC       Category = "bgc"       // biogeochemical parameter notes
	CategoryRules     Category = "rules"     // SQL generation rules
	CategoryQuality   Category = "quality"   // QC flag semantics
)

// Chunk is one retrievable unit of prompt context.
type Chunk struct {
	ID         string
	Category   Category
	Title      string
	Content    string
	Keywords   []string
	Importance float64 // 0..1, higher chunks win ties
	TokenCount int     // estimated, see EstimateTokens
}

// EstimateTokens approximates the token cost of a string as bytes/4,
// rounded up. Good enough for budget accounting; exact tokenization is
// the provider's business.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
