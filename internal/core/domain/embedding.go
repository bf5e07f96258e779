package domain

type ChunkImportance string

const (
	ImportanceHigh   ChunkImportance = "high"
	ImportanceMedium ChunkImportance = "medium"
	ImportanceLow    ChunkImportance = "low"
)

// Chunk is the in-memory unit passing through the embedding pipeline.
// Chunks are never persisted on their own; only their embedding records are.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
	Importance ChunkImportance
}

// ChunkMetadata is stored alongside each embedding row and drives
// importance re-weighting and type filtering at query time.
type ChunkMetadata struct {
	Importance   string `json:"importance"`
	DocumentType string `json:"document_type"`
	Title        string `json:"title"`
	ChunkIndex   int    `json:"chunk_index"`
	TotalChunks  int    `json:"total_chunks"`
}

const ChunkTypeText = "text"

type EmbeddingRecord struct {
	ID         string
	DocumentID string
	ChunkText  string
	ChunkIndex int
	ChunkType  string
	Metadata   ChunkMetadata
	TokenCount int
	Vector     []float32
}

// ApproxTokens estimates token count with the ~4 chars per token heuristic
// used consistently across the pipeline.
func ApproxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
