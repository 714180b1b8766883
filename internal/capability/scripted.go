package capability

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scripted is a deterministic in-process Generator used by tests and by the
// CLI when no provider is wired up. Each model ID can be given a queue of
// canned replies, a fixed error, or an artificial delay; models with no
// script echo a summary of the prompt.
//
// Scripted is safe for concurrent use.
type Scripted struct {
	mu      sync.Mutex
	replies map[string][]string
	errs    map[string]error
	delays  map[string]time.Duration
	calls   map[string]int
	prompts map[string][]string
}

// NewScripted creates an empty scripted generator.
func NewScripted() *Scripted {
	return &Scripted{
		replies: make(map[string][]string),
		errs:    make(map[string]error),
		delays:  make(map[string]time.Duration),
		calls:   make(map[string]int),
		prompts: make(map[string][]string),
	}
}

// Reply queues one or more canned replies for a model. Replies are consumed
// in order; the last reply repeats once the queue is exhausted.
func (s *Scripted) Reply(modelID string, contents ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[modelID] = append(s.replies[modelID], contents...)
	return s
}

// Fail makes every call to the model return the given error.
func (s *Scripted) Fail(modelID string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[modelID] = err
	return s
}

// Delay makes every call to the model wait before responding. Combined with
// a short call timeout this simulates a hung provider.
func (s *Scripted) Delay(modelID string, d time.Duration) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[modelID] = d
	return s
}

// Calls reports how many times a model has been invoked.
func (s *Scripted) Calls(modelID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[modelID]
}

// Prompts returns the prompts a model has been invoked with, in call order.
func (s *Scripted) Prompts(modelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts[modelID]...)
}

// TotalCalls reports the number of invocations across all models.
func (s *Scripted) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Generate implements Generator.
func (s *Scripted) Generate(ctx context.Context, prompt string, modelID string) (*Result, error) {
	s.mu.Lock()
	s.calls[modelID]++
	s.prompts[modelID] = append(s.prompts[modelID], prompt)
	delay := s.delays[modelID]
	err := s.errs[modelID]
	var content string
	if queue := s.replies[modelID]; len(queue) > 0 {
		content = queue[0]
		if len(queue) > 1 {
			s.replies[modelID] = queue[1:]
		}
	}
	s.mu.Unlock()

	start := time.Now()
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if content == "" {
		content = fmt.Sprintf("[%s] response: %s", modelID, truncate(prompt, 120))
	}

	return &Result{
		Model:   modelID,
		Content: content,
		Tokens:  approximateTokens(content),
		Latency: time.Since(start),
	}, nil
}

// approximateTokens estimates token count as one token per four characters.
func approximateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
