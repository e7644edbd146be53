package domain

// Chunk is a bounded segment of the source SOP document with a stable
// position. Chunks are immutable once produced by the chunker; the ID is
// derived from the source name and the sequence index.
type Chunk struct {
	ID            string `json:"id"`
	SourceName    string `json:"source_name"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
}

// Match is a search hit after joining an index position back to its chunk
// metadata. Score is cosine similarity (inner product of unit vectors).
type Match struct {
	SourceName    string  `json:"source"`
	SequenceIndex int     `json:"chunk"`
	Score         float32 `json:"score"`
	Text          string  `json:"text"`
}

// RetrievalResult is an ordered list of matches, best first.
type RetrievalResult struct {
	Query   string  `json:"query"`
	TopK    int     `json:"top_k"`
	Matches []Match `json:"matches"`
}
