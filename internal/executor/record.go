package executor

import (
	"sync"

	"github.com/wireit-go/wireit/internal/core/ports"
)

// record is the single execution record a ScriptReference resolves to: the
// first caller to reach it runs the work, every caller (including the
// first) rendezvous on the same terminal result.
type record struct {
	once    sync.Once
	done    chan struct{}
	result  ports.ExecutionResult
	service *serviceExecution // non-nil only for Kind == domain.Service
}

func newRecord() *record {
	return &record{done: make(chan struct{})}
}

// resolve sets the terminal result and wakes every waiter. Safe to call more
// than once; only the first call has any effect.
func (r *record) resolve(result ports.ExecutionResult) {
	r.once.Do(func() {
		r.result = result
		close(r.done)
	})
}

// wait blocks until resolve has been called, or doneCh (an external abort
// signal) fires first.
func (r *record) wait(doneCh <-chan struct{}) (ports.ExecutionResult, bool) {
	select {
	case <-r.done:
		return r.result, true
	case <-doneCh:
		return ports.ExecutionResult{}, false
	}
}
