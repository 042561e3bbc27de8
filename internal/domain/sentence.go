package domain

import (
	"strings"
	"time"
)

// Medium enumerates the generated artifact kinds a sentence carries.
type Medium string

const (
	MediumAudio Medium = "audio"
	MediumImage Medium = "image"
	MediumVideo Medium = "video"
)

// ValidMedium reports whether m is one of the known media.
func ValidMedium(m Medium) bool {
	switch m {
	case MediumAudio, MediumImage, MediumVideo:
		return true
	}
	return false
}

// SentenceStatus enumerates sentence generation states.
type SentenceStatus string

const (
	SentenceStatusPending    SentenceStatus = "pending"
	SentenceStatusGenerating SentenceStatus = "generating"
	SentenceStatusCompleted  SentenceStatus = "completed"
	SentenceStatusFailed     SentenceStatus = "failed"
)

// Sentence is the unit of generation. Each medium keeps an independent dirty
// flag; an artifact is up to date only when its reference is set and the flag
// is clear. Flags start true on creation and are cleared only by a successful
// completion for that medium.
type Sentence struct {
	ID          string
	SectionID   string
	Position    int
	Text        string
	ImagePrompt string
	VideoPrompt string
	AudioFile   string
	ImageFile   string
	VideoFile   string
	AudioDirty  bool
	ImageDirty  bool
	VideoDirty  bool
	Status      SentenceStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Artifact returns the stored artifact reference for the medium.
func (s *Sentence) Artifact(m Medium) string {
	switch m {
	case MediumAudio:
		return s.AudioFile
	case MediumImage:
		return s.ImageFile
	case MediumVideo:
		return s.VideoFile
	}
	return ""
}

// Dirty returns the dirty flag for the medium.
func (s *Sentence) Dirty(m Medium) bool {
	switch m {
	case MediumAudio:
		return s.AudioDirty
	case MediumImage:
		return s.ImageDirty
	case MediumVideo:
		return s.VideoDirty
	}
	return false
}

// Source returns the input the medium's generation consumes: narration text
// for audio, the image prompt for image, the video prompt for video.
func (s *Sentence) Source(m Medium) string {
	switch m {
	case MediumAudio:
		return strings.TrimSpace(s.Text)
	case MediumImage:
		return strings.TrimSpace(s.ImagePrompt)
	case MediumVideo:
		return strings.TrimSpace(s.VideoPrompt)
	}
	return ""
}

// UpToDate reports whether the medium's artifact exists and is not stale.
func (s *Sentence) UpToDate(m Medium) bool {
	return s.Artifact(m) != "" && !s.Dirty(m)
}

// DependentMedia maps an edited sentence field to the media it invalidates.
// Narration text feeds every medium; the image prompt feeds image and video
// (video conditions on the generated image); the video prompt feeds video only.
func DependentMedia(field string) []Medium {
	switch field {
	case "text":
		return []Medium{MediumAudio, MediumImage, MediumVideo}
	case "image_prompt":
		return []Medium{MediumImage, MediumVideo}
	case "video_prompt":
		return []Medium{MediumVideo}
	}
	return nil
}
