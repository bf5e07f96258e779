package domain

// SearchMatch is a raw similarity candidate returned by the vector store.
type SearchMatch struct {
	EmbeddingID string
	DocumentID  string
	ChunkText   string
	ChunkIndex  int
	Metadata    ChunkMetadata
	Similarity  float64
}

// SearchResult is a ranked hit after importance re-weighting, joined back
// to its parent document.
type SearchResult struct {
	Document   *Document       `json:"document,omitempty"`
	DocumentID string          `json:"document_id"`
	ChunkText  string          `json:"chunk_text"`
	ChunkIndex int             `json:"chunk_index"`
	Importance ChunkImportance `json:"importance"`
	Similarity float64         `json:"similarity"`
	Score      float64         `json:"score"`
}

type SearchRequest struct {
	OwnerID      string
	Query        string
	Limit        int
	MinScore     float64
	DocumentType string
}
