package system

import (
	"context"
	"strings"
	"sync"
)

// RecordingRunner is an in-memory Runner that records every invocation and
// answers from a table of canned results keyed by command line prefix.
type RecordingRunner struct {
	mu      sync.Mutex
	Calls   []string
	results map[string]fakeResult
}

type fakeResult struct {
	out []byte
	err error
}

func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{results: make(map[string]fakeResult)}
}

// On sets the result for any command line starting with prefix.
func (r *RecordingRunner) On(prefix string, out []byte, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[prefix] = fakeResult{out: out, err: err}
}

func (r *RecordingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, line)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := ""
	for prefix := range r.results {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, nil
	}
	res := r.results[best]
	return res.out, res.err
}

// Called reports whether a command line starting with prefix was run.
func (r *RecordingRunner) Called(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
