package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/flowrig/flowrig/logger"
	"github.com/flowrig/flowrig/model"
	"github.com/flowrig/flowrig/repository"
	"github.com/flowrig/flowrig/sandbox"
	"github.com/flowrig/flowrig/systemapi"
	"go.uber.org/zap"
)

const MAX_CALL_DEPTH int = 10
const MAX_NODE_EXECUTIONS int = 10000
const DEFAULT_MAX_ITERATIONS int = 1000

type nodeHandler func(ctx context.Context, node *model.Node, input map[string]any) (any, string, error)

type Options struct {
	Repository repository.FlowRepository
	Observer   ExecutionObserver
	Throttler  Throttler
}

// Engine interprets one flow. An instance covers a single execution (a subflow
// gets a fresh instance sharing the abort flag and call stack); it is not safe
// for concurrent use.
type Engine struct {
	flow      *model.Flow
	api       *recorder
	repo      repository.FlowRepository
	observer  ExecutionObserver
	throttler Throttler
	handlers  map[model.NodeType]nodeHandler

	callStack []string
	variables map[string]any
	outEdges  map[string][]model.Edge
	inEdges   map[string][]model.Edge

	execCount    int
	executionLog []model.ExecutionLogEntry
	barriers     map[string]*mergeBarrier
	abort        *abortFlag
}

type abortFlag struct {
	v int32
}

func (a *abortFlag) set() {
	atomic.StoreInt32(&a.v, 1)
}

func (a *abortFlag) isSet() bool {
	return atomic.LoadInt32(&a.v) == 1
}

func New(flow *model.Flow, api systemapi.API, opts Options) *Engine {
	e := &Engine{
		flow:      flow,
		api:       newRecorder(api),
		repo:      opts.Repository,
		observer:  opts.Observer,
		throttler: opts.Throttler,
		variables: make(map[string]any),
		barriers:  make(map[string]*mergeBarrier),
		abort:     &abortFlag{},
	}
	if e.throttler == nil {
		e.throttler = defaultThrottler
	}
	e.handlers = map[model.NodeType]nodeHandler{
		model.NODE_TYPE_START:          e.handleStart,
		model.NODE_TYPE_MANUAL_TRIGGER: e.handleManualTrigger,
		model.NODE_TYPE_JS_EXECUTE:     e.handleJsExecute,
		model.NODE_TYPE_IF_ELSE:        e.handleIfElse,
		model.NODE_TYPE_SWITCH:         e.handleSwitch,
		model.NODE_TYPE_FOR_LOOP:       e.handleForLoop,
		model.NODE_TYPE_WHILE_LOOP:     e.handleWhileLoop,
		model.NODE_TYPE_FOREACH:        e.handleForeach,
		model.NODE_TYPE_MERGE:          e.handleMerge,
		model.NODE_TYPE_READ_VARIABLE:  e.handleReadVariable,
		model.NODE_TYPE_WRITE_VARIABLE: e.handleWriteVariable,
		model.NODE_TYPE_LOG:            e.handleLog,
		model.NODE_TYPE_NOTIFICATION:   e.handleNotification,
		model.NODE_TYPE_LLM_CALL:       e.handleLlmCall,
		model.NODE_TYPE_TTS:            e.handleTts,
		model.NODE_TYPE_CALL_FLOW:      e.handleCallFlow,
		model.NODE_TYPE_RATE_LIMIT:     e.handleRateLimit,
		model.NODE_TYPE_COMMENT:        e.handleComment,
	}
	return e
}

// newChild builds the engine for a call_flow target. The child records into its
// own recorder (merged by the caller on success) but shares the abort flag so a
// single Abort stops the whole nested run.
func (e *Engine) newChild(flow *model.Flow) *Engine {
	child := New(flow, e.api.api, Options{
		Repository: e.repo,
		Observer:   e.observer,
		Throttler:  e.throttler,
	})
	child.abort = e.abort
	return child
}

// Abort requests a cooperative stop. The flag is checked at every node entry and
// every loop iteration boundary; side effects already performed are not rolled
// back.
func (e *Engine) Abort() {
	e.abort.set()
}

// Execute runs the flow from its start nodes. parentCallStack carries the flow
// ids nested via call_flow above this execution; pass nil at top level.
func (e *Engine) Execute(ctx context.Context, input map[string]any, parentCallStack []string) *model.ExecutionResult {
	for _, id := range parentCallStack {
		if id == e.flow.Id {
			return e.failure(fmt.Errorf("%w: flow %q", ErrRecursiveFlowCall, e.flow.Id))
		}
	}
	if len(parentCallStack) >= MAX_CALL_DEPTH {
		return e.failure(fmt.Errorf("%w: depth %d", ErrCallDepthExceeded, len(parentCallStack)))
	}
	e.setup(input, parentCallStack)
	logger.Info("executing flow", zap.String("flow", e.flow.Id), zap.Int("depth", len(parentCallStack)))

	var starts []*model.Node
	for i := range e.flow.Nodes {
		n := &e.flow.Nodes[i]
		if n.Type == model.NODE_TYPE_START && !n.Disabled {
			starts = append(starts, n)
		}
	}
	if len(starts) == 0 {
		return e.failure(fmt.Errorf("%w in flow %q", ErrNoStartNode, e.flow.Name))
	}
	for _, n := range starts {
		if err := e.executeNode(ctx, n, map[string]any{"_result": input}); err != nil {
			return e.failure(err)
		}
	}
	return e.result(true, nil)
}

// ExecuteFromNode runs a single entry node directly, bypassing start-node
// discovery. Used for manual triggers and node testing from the editor.
func (e *Engine) ExecuteFromNode(ctx context.Context, nodeId string) *model.ExecutionResult {
	e.setup(nil, nil)
	node, ok := e.flow.NodeById(nodeId)
	if !ok {
		return e.failure(fmt.Errorf("node %q not found in flow %q", nodeId, e.flow.Name))
	}
	if node.Disabled {
		return e.failure(fmt.Errorf("node %q is disabled", nodeId))
	}
	logger.Info("executing flow from node", zap.String("flow", e.flow.Id), zap.String("node", nodeId))
	if err := e.executeNode(ctx, node, map[string]any{}); err != nil {
		return e.failure(err)
	}
	return e.result(true, nil)
}

func (e *Engine) setup(input map[string]any, parentCallStack []string) {
	for _, decl := range e.flow.Variables {
		e.variables[decl.Name] = decl.DefaultValue
	}
	for k, v := range input {
		e.variables[k] = v
	}
	e.outEdges, e.inEdges = BuildAdjacency(e.flow.Edges)
	e.callStack = append(append([]string{}, parentCallStack...), e.flow.Id)
}

func (e *Engine) executeNode(ctx context.Context, node *model.Node, input map[string]any) error {
	if e.abort.isSet() || node.Disabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.execCount++
	if e.execCount > MAX_NODE_EXECUTIONS {
		return fmt.Errorf("%w: %d nodes executed", ErrExecutionBudgetExceeded, MAX_NODE_EXECUTIONS)
	}

	idx := len(e.executionLog)
	e.executionLog = append(e.executionLog, model.ExecutionLogEntry{
		NodeId:    node.Id,
		NodeName:  node.Name,
		NodeType:  node.Type,
		Status:    model.NODE_STATUS_RUNNING,
		StartTime: time.Now(),
	})
	e.notifyNodeStart(node.Id)

	handler, ok := e.handlers[node.Type]
	var result any
	var port string
	var err error
	if !ok {
		err = fmt.Errorf("unknown node type %q", node.Type)
	} else {
		result, port, err = handler(ctx, node, input)
	}
	end := time.Now()

	if err != nil {
		e.executionLog[idx].Status = model.NODE_STATUS_ERROR
		e.executionLog[idx].EndTime = &end
		e.executionLog[idx].Error = err.Error()
		e.notifyNodeError(node.Id, err)
		e.notifyLog(e.executionLog[idx])
		if !isFatal(err) && e.hasPort(node, model.PORT_ERROR) {
			logger.Debug("rerouting node error", zap.String("node", node.Id), zap.Error(err))
			payload := map[string]any{
				"message":   err.Error(),
				"stack":     fmt.Sprintf("%+v", err),
				"nodeId":    node.Id,
				"nodeName":  node.Name,
				"nodeType":  string(node.Type),
				"timestamp": end,
				"input":     input,
			}
			return e.followError(ctx, node, payload)
		}
		if isFatal(err) {
			return err
		}
		return fmt.Errorf("node %q: %w", node.Name, err)
	}

	e.executionLog[idx].Status = model.NODE_STATUS_COMPLETED
	e.executionLog[idx].EndTime = &end
	e.executionLog[idx].Result = result
	e.notifyNodeComplete(node.Id, result)
	e.notifyLog(e.executionLog[idx])

	if port == "" {
		return nil
	}
	return e.followPort(ctx, node, port, result)
}

// isFatal marks errors that must never be rerouted through an error port.
func isFatal(err error) bool {
	return errors.Is(err, ErrExecutionBudgetExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// followPort executes every enabled out-edge on the given port, sequentially in
// edge declaration order. Each target is run to completion (including its whole
// sub-traversal) before the next edge is started.
func (e *Engine) followPort(ctx context.Context, node *model.Node, port string, result any) error {
	for _, edge := range e.outEdges[node.Id] {
		if edge.SourcePortId != port {
			continue
		}
		target, ok := e.flow.NodeById(edge.TargetNodeId)
		if !ok {
			continue
		}
		input := map[string]any{
			"_result":         result,
			"_incomingPortId": edge.TargetPortId,
		}
		if err := e.executeNode(ctx, target, input); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) followError(ctx context.Context, node *model.Node, payload map[string]any) error {
	for _, edge := range e.outEdges[node.Id] {
		if edge.SourcePortId != model.PORT_ERROR {
			continue
		}
		target, ok := e.flow.NodeById(edge.TargetNodeId)
		if !ok {
			continue
		}
		input := map[string]any{
			"_result":         payload,
			"_error":          payload,
			"_incomingPortId": edge.TargetPortId,
		}
		if err := e.executeNode(ctx, target, input); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) hasPort(node *model.Node, port string) bool {
	for _, edge := range e.outEdges[node.Id] {
		if edge.SourcePortId == port {
			return true
		}
	}
	return false
}

func (e *Engine) eval(ctx context.Context, script string, input map[string]any) (any, error) {
	return sandbox.Execute(ctx, script, sandbox.Env{
		API:       e.api,
		Input:     input,
		Variables: e.variables,
	})
}

func (e *Engine) result(success bool, err error) *model.ExecutionResult {
	res := &model.ExecutionResult{
		Success:       success,
		ExecutionLog:  e.executionLog,
		Logs:          e.api.logs,
		Notifications: e.api.notifications,
		Variables:     e.variables,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (e *Engine) failure(err error) *model.ExecutionResult {
	logger.Error("flow execution failed", zap.String("flow", e.flow.Id), zap.Error(err))
	return e.result(false, err)
}
