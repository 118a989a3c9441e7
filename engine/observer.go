package engine

import "github.com/flowrig/flowrig/model"

// ExecutionObserver receives progress callbacks during a traversal. All hooks are
// invoked synchronously; the engine runs fine with a nil observer.
type ExecutionObserver interface {
	OnNodeStart(nodeId string)
	OnNodeComplete(nodeId string, result any)
	OnNodeError(nodeId string, err error)
	OnLog(entry model.ExecutionLogEntry)
}

func (e *Engine) notifyNodeStart(nodeId string) {
	if e.observer != nil {
		e.observer.OnNodeStart(nodeId)
	}
}

func (e *Engine) notifyNodeComplete(nodeId string, result any) {
	if e.observer != nil {
		e.observer.OnNodeComplete(nodeId, result)
	}
}

func (e *Engine) notifyNodeError(nodeId string, err error) {
	if e.observer != nil {
		e.observer.OnNodeError(nodeId, err)
	}
}

func (e *Engine) notifyLog(entry model.ExecutionLogEntry) {
	if e.observer != nil {
		e.observer.OnLog(entry)
	}
}
