package tagger

import (
	"context"
	"errors"
)

// deepDanbooruClient talks to a DeepDanbooru-style service that returns one
// flat tag list.
type deepDanbooruClient struct {
	*service
}

type deepDanbooruResponse struct {
	Tags []scoredTag `json:"tags"`
}

type scoredTag struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func (c *deepDanbooruClient) Predict(ctx context.Context, input Input, thresholds Thresholds) (Prediction, error) {
	var empty Prediction
	if len(input.Data) == 0 {
		return empty, errors.New("tagger predict: prepared image required")
	}
	payload := predictRequest{ModelRepository: c.cfg.ModelRepository, Image: input.Data}
	var parsed deepDanbooruResponse
	if err := c.postJSON(ctx, "predict", predictPath, payload, &parsed); err != nil {
		return empty, err
	}

	scores := make(map[string]float64, len(parsed.Tags))
	for _, tag := range parsed.Tags {
		if tag.Name == "" {
			continue
		}
		scores[tag.Name] = tag.Score
	}
	general := filterScores(scores, generalCutoff(scores, thresholds))
	return Prediction{
		Description: caption(general),
		Categories: map[string]map[string]float64{
			"general": general,
		},
	}, nil
}
