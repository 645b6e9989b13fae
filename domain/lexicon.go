package domain

// LexiconEntry is one row of the spellcheck dictionary.
type LexiconEntry struct {
	Word              string  `json:"word"`
	DocFrequency      int64   `json:"doc_frequency"`
	TotalFrequency    int64   `json:"total_frequency"`
	ExternalFrequency int64   `json:"external_frequency"`
	PopularityScore   float64 `json:"popularity_score"`
}
