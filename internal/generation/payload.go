package generation

// Job payloads are stored as JSONB on the job row and are the only input an
// execution handler receives beyond the job row itself.

// AudioPayload drives one audio synthesis job.
type AudioPayload struct {
	SentenceID string `json:"sentence_id"`
	Text       string `json:"text"`
}

// ImagePayload drives one single-sentence image job.
type ImagePayload struct {
	SentenceID string `json:"sentence_id"`
	Prompt     string `json:"prompt"`
	ModelID    string `json:"model_id"`
	StyleID    string `json:"style_id"`
}

// BatchPayload drives one image_batch job. Items keep sentence order; the
// handler may still complete them out of order.
type BatchPayload struct {
	ModelID string      `json:"model_id"`
	StyleID string      `json:"style_id"`
	Items   []BatchItem `json:"items"`
}

// VideoPayload drives one video synthesis job. ImageFile is the prerequisite
// artifact the engine animates.
type VideoPayload struct {
	SentenceID string `json:"sentence_id"`
	Prompt     string `json:"prompt"`
	ImageFile  string `json:"image_file"`
}
