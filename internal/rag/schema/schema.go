package schema

// Chunk is a contiguous span of document text, the unit of embedding
// and retrieval.
type Chunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Index      int                    `json:"index"` // position within the source document
	Text       string                 `json:"text"`
	Embedding  []float32              `json:"embedding,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ScoredChunk is a chunk paired with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Document is a fetched and parsed source document before chunking.
type Document struct {
	ID          string // stable id derived from the source URL
	SourceURL   string
	ContentType string // "pdf", "docx", "email", "html" or "text"
	Text        string
}
