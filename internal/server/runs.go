package server

import (
	"sync"
)

const defaultRunLimit = 64

// Runs keeps the most recent verification results by run ID.
type Runs struct {
	mu    sync.RWMutex
	runs  map[string]*VerifyResponse
	order []string
	limit int
}

func NewRuns(limit int) *Runs {
	return &Runs{
		runs:  make(map[string]*VerifyResponse),
		limit: limit,
	}
}

func (r *Runs) Save(resp *VerifyResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[resp.RunID]; !ok {
		r.order = append(r.order, resp.RunID)
	}
	r.runs[resp.RunID] = resp
	for len(r.order) > r.limit {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *Runs) Get(id string) (*VerifyResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resp, ok := r.runs[id]
	return resp, ok
}
