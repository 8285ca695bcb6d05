// Package tagger provides HTTP clients for image tagging inference services.
//
// This package is used by:
//   - Pipeline load stage: Prepare scales a decoded image to the model input edge
//   - Pipeline infer stage: Predict produces the categorized tag scores
//   - Preflight: HealthCheck verifies the service before a run starts
//
// # Client Selection
//
// New inspects the configured model repository name: repositories containing
// "deepdanbooru" (any case) get the flat-tag DeepDanbooru client, everything
// else gets the WD-style client with general/character/rating score groups.
// Callers hold only the Tagger interface.
//
// # Threshold Behaviour
//
// The inference service returns raw scores for every label it knows. The
// client applies the cutoffs: a fixed per-category threshold, or when MCUT is
// enabled a dynamic cutoff at the widest gap between consecutive sorted
// scores. The character category keeps a floor of 0.15 under MCUT so weak
// one-off character scores never flood the result. Rating scores are not
// tags and are dropped from the prediction.
//
// # Retry Behaviour
//
// Requests run under internal/resilience: HTTP 408/429/5xx and network
// timeouts retry with exponential backoff, a Retry-After header shortens or
// stretches the wait, and repeated failures open a circuit breaker per
// operation. Context cancellation aborts immediately.
package tagger
