package models

// DocumentType classifies a document for chunking-policy selection.
type DocumentType string

const (
	TypeSimulation DocumentType = "simulation"
	TypeTechnical  DocumentType = "technical"
	TypeGeneral    DocumentType = "general"
	TypeTranscript DocumentType = "transcript"
)

// Document is the unit of ingestion. It is produced by an external source
// (shared drive, local transcript directory) and is immutable once handed to
// the pipeline.
type Document struct {
	ID      string       `json:"id" bson:"id"`
	Name    string       `json:"name" bson:"name"`
	Content string       `json:"content" bson:"content"`
	Type    DocumentType `json:"type" bson:"type"`
}

// CountByType groups documents per type for ingest acknowledgments.
func CountByType(docs []Document) map[DocumentType]int {
	counts := make(map[DocumentType]int)
	for _, doc := range docs {
		counts[doc.Type]++
	}
	return counts
}

// QueryMatch is one retrieved chunk with its similarity score and source
// attribution.
type QueryMatch struct {
	Score   float64 `json:"score"`
	Content string  `json:"content"`
	FileID  string  `json:"fileId"`
	Title   string  `json:"title"`
}

// QueryResult is the assembled grounding context plus the raw matches it was
// built from, in store (score-descending) order.
type QueryResult struct {
	Context    string       `json:"context"`
	RawMatches []QueryMatch `json:"rawMatches"`
}
