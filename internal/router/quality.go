package router

import "strings"

// errorIndicators are substrings whose presence marks a degenerate
// response: refusals, provider error text, or empty apologies.
var errorIndicators = []string{
	"i cannot answer",
	"i'm unable to",
	"i am unable to",
	"as an ai language model",
	"error:",
	"internal server error",
	"rate limit",
	"[no response]",
}

// assessQuality scores a response's content with cheap heuristics and
// blends in the model's historical reliability. Returns a quality score
// and a confidence, both in [0,1].
//
// Heuristic components: response length inside the configured window, and
// absence of error-indicator substrings. The blend is 70% content
// heuristic, 30% historical reliability, so a strong model cannot mask a
// degenerate response and a weak model cannot be carried by one good one.
func (r *Router) assessQuality(content string, modelID string) (quality, confidence float64) {
	heuristic := 1.0

	length := len(content)
	switch {
	case length == 0:
		heuristic = 0
	case length < r.cfg.MinResponseLength:
		heuristic *= 0.4
	case length > r.cfg.MaxResponseLength:
		heuristic *= 0.6
	}

	lowered := strings.ToLower(content)
	for _, indicator := range errorIndicators {
		if strings.Contains(lowered, indicator) {
			heuristic *= 0.2
			break
		}
	}

	reliability := r.registry.Reliability(modelID)
	quality = 0.7*heuristic + 0.3*reliability
	confidence = 0.5*quality + 0.5*reliability
	return quality, confidence
}
