package generation

import "reelforge/internal/domain"

// Eligibility predicates are pure functions over a sentence snapshot. A
// sentence qualifies for a medium when it has the required input and its
// artifact is missing or stale. Video additionally requires the prerequisite
// image to exist; a video job without one is a caller error, never retried
// internally.

// EligibleAudio reports whether the sentence needs audio synthesis.
func EligibleAudio(s *domain.Sentence) bool {
	return s.Source(domain.MediumAudio) != "" && (s.AudioFile == "" || s.AudioDirty)
}

// EligibleImage reports whether the sentence needs image synthesis.
func EligibleImage(s *domain.Sentence) bool {
	return s.Source(domain.MediumImage) != "" && (s.ImageFile == "" || s.ImageDirty)
}

// EligibleVideo reports whether the sentence needs video synthesis.
func EligibleVideo(s *domain.Sentence) bool {
	return s.ImageFile != "" && s.Source(domain.MediumVideo) != "" && (s.VideoFile == "" || s.VideoDirty)
}

// Eligible dispatches to the medium's predicate.
func Eligible(s *domain.Sentence, m domain.Medium) bool {
	switch m {
	case domain.MediumAudio:
		return EligibleAudio(s)
	case domain.MediumImage:
		return EligibleImage(s)
	case domain.MediumVideo:
		return EligibleVideo(s)
	}
	return false
}

// FilterEligible keeps the sentences that qualify for the medium, preserving
// outline order.
func FilterEligible(sentences []domain.Sentence, m domain.Medium) []domain.Sentence {
	var out []domain.Sentence
	for i := range sentences {
		if Eligible(&sentences[i], m) {
			out = append(out, sentences[i])
		}
	}
	return out
}

// ForceCandidates returns the ids of sentences whose dirty flag a forced
// regeneration should flip: everything with a non-empty source for the
// medium, regardless of artifact state. This is what lets force reach
// sentences that are already up to date.
func ForceCandidates(sentences []domain.Sentence, m domain.Medium) []string {
	var ids []string
	for i := range sentences {
		if sentences[i].Source(m) != "" {
			ids = append(ids, sentences[i].ID)
		}
	}
	return ids
}

// applyForce flips the dirty flag in the in-memory snapshot for the listed
// sentences so the filter that follows sees the same state the store now holds.
func applyForce(sentences []domain.Sentence, m domain.Medium, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range sentences {
		if _, ok := set[sentences[i].ID]; !ok {
			continue
		}
		switch m {
		case domain.MediumAudio:
			sentences[i].AudioDirty = true
		case domain.MediumImage:
			sentences[i].ImageDirty = true
		case domain.MediumVideo:
			sentences[i].VideoDirty = true
		}
	}
}
