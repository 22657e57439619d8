package model

type RetrievalMethod string

const (
	RetrievalMethodVector  RetrievalMethod = "vector"
	RetrievalMethodKeyword RetrievalMethod = "keyword"
)

// RetrievalResult is one ranked chunk of a DocumentIndex.
type RetrievalResult struct {
	ChunkIndex      int             `json:"chunk_index"`
	Text            string          `json:"text"`
	Score           float64         `json:"score"`            // Cosine similarity or keyword count
	RetrievalMethod RetrievalMethod `json:"retrieval_method"` // How the score was computed
}

// Relevant keeps the results with a positive score, in order.
func Relevant(results []*RetrievalResult) []*RetrievalResult {
	relevant := make([]*RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score > 0 {
			relevant = append(relevant, r)
		}
	}
	return relevant
}

// ResultTexts returns the chunk texts of the results, in order.
func ResultTexts(results []*RetrievalResult) []string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts
}

// Answer is what a question returns to the caller.
type Answer struct {
	Text         string             `json:"answer"`
	UsedDocument bool               `json:"used_document"`
	Filename     string             `json:"filename,omitempty"`
	Model        string             `json:"model,omitempty"` // Name of the generator that answered
	Failed       bool               `json:"failed,omitempty"`
	Sources      []*RetrievalResult `json:"sources,omitempty"`
}
