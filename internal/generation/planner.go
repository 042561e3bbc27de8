package generation

import "reelforge/internal/domain"

// MaxBatchSize caps how many sentences one image batch job carries. The
// downstream engine holds the model resident for the whole batch, so larger
// batches amortize the load cost, but an oversized batch makes progress and
// retry too coarse.
const MaxBatchSize = 8

// BatchKey groups image work that the engine can serve without a model swap.
type BatchKey struct {
	ModelID string `json:"model_id"`
	StyleID string `json:"style_id"`
}

// BatchItem is one sentence's share of a batch.
type BatchItem struct {
	SentenceID string `json:"sentence_id"`
	Prompt     string `json:"prompt"`
}

// BatchPlan is an ephemeral grouping of eligible image sentences. It exists
// only long enough to become one image_batch job.
type BatchPlan struct {
	Key   BatchKey
	Items []BatchItem
}

// PlanImageBatches partitions eligible image sentences into batches keyed by
// (model, style), preserving sentence order within each batch and splitting
// at MaxBatchSize. Audio and video are never batched; their engines are
// stateless per request and per-item jobs give finer progress and retry.
func PlanImageBatches(sentences []domain.Sentence, modelID, styleID string) []BatchPlan {
	if len(sentences) == 0 {
		return nil
	}
	key := BatchKey{ModelID: modelID, StyleID: styleID}

	var plans []BatchPlan
	current := BatchPlan{Key: key}
	for i := range sentences {
		current.Items = append(current.Items, BatchItem{
			SentenceID: sentences[i].ID,
			Prompt:     sentences[i].Source(domain.MediumImage),
		})
		if len(current.Items) == MaxBatchSize {
			plans = append(plans, current)
			current = BatchPlan{Key: key}
		}
	}
	if len(current.Items) > 0 {
		plans = append(plans, current)
	}
	return plans
}
