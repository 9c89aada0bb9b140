package domain

// DocumentMatch is one ranked retrieval hit surfaced to the synthesizer.
type DocumentMatch struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// IndexRecord is one stored chunk. Records are owned by the similarity
// index: created during ingestion, never mutated afterwards.
type IndexRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// IngestionResult is the outcome of the document-processing flow. Empty
// Chunks means there is nothing to index and callers must skip storage.
type IngestionResult struct {
	Chunks     []string       `json:"chunks"`
	Embeddings [][]float32    `json:"embeddings"`
	Metadata   map[string]any `json:"metadata"`
}
