package generation

import (
	"context"
	"time"
)

// SceneStats summarizes artifact coverage for a project. The UI uses it to
// decide between a "Generate" and a "Re-Generate" affordance.
type SceneStats struct {
	Total         int `json:"total"`
	WithImages    int `json:"with_images"`
	WithVideos    int `json:"with_videos"`
	NeedingImages int `json:"needing_images"`
	NeedingVideos int `json:"needing_videos"`
}

// SceneStats counts from the current sentence snapshot. Needing counts use
// the same non-forced eligibility predicates the submission path uses.
func (a *Aggregator) SceneStats(ctx context.Context, projectID string) (*SceneStats, error) {
	if cached, ok := a.cache.Get(statsKey(projectID)); ok {
		return cached.(*SceneStats), nil
	}

	sentences, err := a.sentences.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := &SceneStats{Total: len(sentences)}
	for i := range sentences {
		s := &sentences[i]
		if s.ImageFile != "" {
			stats.WithImages++
		}
		if s.VideoFile != "" {
			stats.WithVideos++
		}
		if EligibleImage(s) {
			stats.NeedingImages++
		}
		if EligibleVideo(s) {
			stats.NeedingVideos++
		}
	}

	a.cache.Set(statsKey(projectID), stats, time.Second)
	return stats, nil
}

func statsKey(projectID string) string {
	return "stats:" + projectID
}
