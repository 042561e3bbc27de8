package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/domain"
)

type sentencePatchRequest struct {
	Text        *string `json:"text"`
	ImagePrompt *string `json:"image_prompt"`
	VideoPrompt *string `json:"video_prompt"`
}

type sentenceResponse struct {
	ID          string `json:"id"`
	SectionID   string `json:"section_id"`
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
	VideoPrompt string `json:"video_prompt"`
	AudioFile   string `json:"audio_file,omitempty"`
	ImageFile   string `json:"image_file,omitempty"`
	VideoFile   string `json:"video_file,omitempty"`
	AudioDirty  bool   `json:"is_audio_dirty"`
	ImageDirty  bool   `json:"is_image_dirty"`
	VideoDirty  bool   `json:"is_video_dirty"`
	Status      string `json:"status"`
}

// UpdateSentence applies a partial edit. Dirty flags for the dependent media
// are set in the same transaction as the edit, so the response always shows
// the invalidation the edit caused.
func (a *App) UpdateSentence(w http.ResponseWriter, r *http.Request) {
	sentenceID := chi.URLParam(r, "sentence_id")

	var req sentencePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	sentence, err := a.Tracker.UpdateContent(r.Context(), sentenceID, domain.ContentPatch{
		Text:        req.Text,
		ImagePrompt: req.ImagePrompt,
		VideoPrompt: req.VideoPrompt,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, toSentenceResponse(sentence))
}

type markDirtyRequest struct {
	Medium    string `json:"medium"`
	SectionID string `json:"section_id"`
}

// MarkDirty explicitly flags a project's (or one section's) sentences stale
// for a medium. An empty scope marks zero sentences and still succeeds.
func (a *App) MarkDirty(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")

	var req markDirtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	marked, err := a.Tracker.MarkDirty(r.Context(), domain.Medium(req.Medium), domain.DirtyScope{
		ProjectID: projectID,
		SectionID: req.SectionID,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"marked": marked})
}

func toSentenceResponse(s *domain.Sentence) sentenceResponse {
	return sentenceResponse{
		ID:          s.ID,
		SectionID:   s.SectionID,
		Text:        s.Text,
		ImagePrompt: s.ImagePrompt,
		VideoPrompt: s.VideoPrompt,
		AudioFile:   s.AudioFile,
		ImageFile:   s.ImageFile,
		VideoFile:   s.VideoFile,
		AudioDirty:  s.AudioDirty,
		ImageDirty:  s.ImageDirty,
		VideoDirty:  s.VideoDirty,
		Status:      string(s.Status),
	}
}
