package tagger

import (
	"context"
	"errors"
)

// wdClient talks to a WD-style tagging service that returns raw scores
// grouped into general, character, and rating categories.
type wdClient struct {
	*service
}

type predictRequest struct {
	ModelRepository string `json:"model_repo"`
	Image           []byte `json:"image"`
}

type wdPredictResponse struct {
	General   map[string]float64 `json:"general"`
	Character map[string]float64 `json:"character"`
	Rating    map[string]float64 `json:"rating"`
}

func (c *wdClient) Predict(ctx context.Context, input Input, thresholds Thresholds) (Prediction, error) {
	var empty Prediction
	if len(input.Data) == 0 {
		return empty, errors.New("tagger predict: prepared image required")
	}
	payload := predictRequest{ModelRepository: c.cfg.ModelRepository, Image: input.Data}
	var parsed wdPredictResponse
	if err := c.postJSON(ctx, "predict", predictPath, payload, &parsed); err != nil {
		return empty, err
	}

	general := filterScores(parsed.General, generalCutoff(parsed.General, thresholds))
	character := filterScores(parsed.Character, characterCutoff(parsed.Character, thresholds))
	// Rating scores classify the whole image, not its subjects; they stay out.
	return Prediction{
		Description: caption(general),
		Categories: map[string]map[string]float64{
			"general":   general,
			"character": character,
		},
	}, nil
}
