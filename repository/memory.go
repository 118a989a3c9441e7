package repository

import (
	"sync"

	"github.com/flowrig/flowrig/model"
)

type inMemoryFlowRepository struct {
	mu    sync.RWMutex
	flows map[string]model.Flow
}

var _ FlowRepository = new(inMemoryFlowRepository)

func NewInMemoryFlowRepository() *inMemoryFlowRepository {
	return &inMemoryFlowRepository{
		flows: make(map[string]model.Flow),
	}
}

func (r *inMemoryFlowRepository) SaveFlow(flow model.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.Id] = flow
	return nil
}

func (r *inMemoryFlowRepository) GetFlowById(id string) (*model.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flow, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return &flow, nil
}

func (r *inMemoryFlowRepository) DeleteFlow(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, id)
	return nil
}
