package engine

import "errors"

// Guard failures. Always fatal, never routed through an error port.
var ErrRecursiveFlowCall = errors.New("recursive flow call detected")
var ErrCallDepthExceeded = errors.New("maximum flow call depth exceeded")
var ErrExecutionBudgetExceeded = errors.New("node execution budget exceeded, possible cycle in flow")
var ErrNoStartNode = errors.New("no start node found")
