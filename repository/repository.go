package repository

import (
	"errors"

	"github.com/flowrig/flowrig/model"
)

var ErrFlowNotFound = errors.New("flow not found")

// FlowRepository resolves flow ids to flow definitions. The engine uses it for
// call_flow targets; the rest layer uses it to run stored flows by id.
type FlowRepository interface {
	SaveFlow(flow model.Flow) error
	GetFlowById(id string) (*model.Flow, error)
	DeleteFlow(id string) error
}
