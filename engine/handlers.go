package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowrig/flowrig/model"
	"github.com/flowrig/flowrig/sandbox"
)

// Node handlers share the uniform contract (node, input) -> (result, active
// port, error). An empty active port ends the traversal branch.

func (e *Engine) handleStart(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	return input["_result"], model.PORT_OUT, nil
}

func (e *Engine) handleManualTrigger(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	if node.Script != "" {
		result, err := e.eval(ctx, node.Script, input)
		return result, model.PORT_OUT, err
	}
	payload, ok := node.Config["payload"]
	if !ok {
		return nil, model.PORT_OUT, nil
	}
	if raw, ok := payload.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, "", fmt.Errorf("invalid trigger payload: %w", err)
		}
		return parsed, model.PORT_OUT, nil
	}
	return payload, model.PORT_OUT, nil
}

func (e *Engine) handleJsExecute(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	result, err := e.eval(ctx, node.Script, input)
	return result, model.PORT_OUT, err
}

func (e *Engine) handleIfElse(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	cond, ok := node.Config["condition"].(string)
	if !ok || cond == "" {
		return nil, "", fmt.Errorf("if_else requires a condition")
	}
	value, err := e.eval(ctx, cond, input)
	if err != nil {
		return nil, "", err
	}
	if sandbox.Truthy(value) {
		return value, model.PORT_TRUE, nil
	}
	return value, model.PORT_FALSE, nil
}

func (e *Engine) handleSwitch(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	expr, ok := node.Config["expression"].(string)
	if !ok || expr == "" {
		return nil, "", fmt.Errorf("switch requires an expression")
	}
	value, err := e.eval(ctx, expr, input)
	if err != nil {
		return nil, "", err
	}
	cases, _ := node.Config["cases"].([]any)
	needle := fmt.Sprintf("%v", value)
	for i, c := range cases {
		if fmt.Sprintf("%v", c) == needle {
			return value, fmt.Sprintf("case_%d", i), nil
		}
	}
	return value, model.PORT_DEFAULT, nil
}

func (e *Engine) handleForLoop(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	count := intConfig(node, "count", 0)
	indexVar := stringOr(node.Config["indexVariable"], "index")
	for i := 0; i < count; i++ {
		if e.abort.isSet() {
			break
		}
		e.variables[indexVar] = i
		if err := e.followPort(ctx, node, model.PORT_BODY, map[string]any{"index": i}); err != nil {
			return nil, "", err
		}
	}
	return map[string]any{"iterations": count}, model.PORT_DONE, nil
}

func (e *Engine) handleWhileLoop(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	cond, ok := node.Config["condition"].(string)
	if !ok || cond == "" {
		return nil, "", fmt.Errorf("while_loop requires a condition")
	}
	maxIterations := intConfig(node, "maxIterations", DEFAULT_MAX_ITERATIONS)
	iterations := 0
	for iterations < maxIterations {
		if e.abort.isSet() {
			break
		}
		value, err := e.eval(ctx, cond, input)
		if err != nil {
			return nil, "", err
		}
		if !sandbox.Truthy(value) {
			break
		}
		if err := e.followPort(ctx, node, model.PORT_BODY, map[string]any{"iteration": iterations}); err != nil {
			return nil, "", err
		}
		iterations++
	}
	return map[string]any{"iterations": iterations}, model.PORT_DONE, nil
}

func (e *Engine) handleForeach(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	expr, ok := node.Config["sourceExpression"].(string)
	if !ok || expr == "" {
		return nil, "", fmt.Errorf("foreach requires a sourceExpression")
	}
	value, err := e.eval(ctx, expr, input)
	if err != nil {
		return nil, "", err
	}
	items, ok := value.([]any)
	if !ok {
		return nil, "", fmt.Errorf("foreach source expression did not evaluate to an array, got %T", value)
	}
	itemVar := stringOr(node.Config["itemVariable"], "item")
	indexVar := stringOr(node.Config["indexVariable"], "index")
	for i, item := range items {
		if e.abort.isSet() {
			break
		}
		e.variables[itemVar] = item
		e.variables[indexVar] = i
		payload := map[string]any{"item": item, "index": i}
		if err := e.followPort(ctx, node, model.PORT_LOOP, payload); err != nil {
			return nil, "", err
		}
	}
	return map[string]any{"count": len(items)}, model.PORT_DONE, nil
}

type mergeBarrier struct {
	values map[string]any
	order  []string
}

// handleMerge records the arriving value under its inbound port and only fires
// once every distinct port reachable through enabled in-edges has delivered.
// Incomplete arrivals complete the node with a waiting marker and stop the
// branch.
func (e *Engine) handleMerge(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	port, _ := input["_incomingPortId"].(string)
	barrier, ok := e.barriers[node.Id]
	if !ok {
		barrier = &mergeBarrier{values: make(map[string]any)}
		e.barriers[node.Id] = barrier
	}
	if _, seen := barrier.values[port]; !seen {
		barrier.order = append(barrier.order, port)
	}
	barrier.values[port] = input["_result"]

	for _, expected := range e.expectedMergePorts(node) {
		if _, seen := barrier.values[expected]; !seen {
			received := append([]string{}, barrier.order...)
			return map[string]any{"waiting": true, "received": received}, "", nil
		}
	}

	var result any
	if mode, _ := node.Config["mode"].(string); mode == "array" {
		values := make([]any, 0, len(barrier.order))
		for _, p := range barrier.order {
			values = append(values, barrier.values[p])
		}
		result = values
	} else {
		result = barrier.values
	}
	delete(e.barriers, node.Id)
	return result, model.PORT_OUT, nil
}

// expectedMergePorts is the set of distinct target ports on enabled in-edges
// whose source node is itself enabled. Edges from disabled or missing sources
// can never deliver and would deadlock the barrier.
func (e *Engine) expectedMergePorts(node *model.Node) []string {
	var ports []string
	seen := make(map[string]bool)
	for _, edge := range e.inEdges[node.Id] {
		source, ok := e.flow.NodeById(edge.SourceNodeId)
		if !ok || source.Disabled {
			continue
		}
		if !seen[edge.TargetPortId] {
			seen[edge.TargetPortId] = true
			ports = append(ports, edge.TargetPortId)
		}
	}
	return ports
}

func (e *Engine) handleReadVariable(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	name, ok := node.Config["variableName"].(string)
	if !ok || name == "" {
		return nil, "", fmt.Errorf("read_variable requires a variableName")
	}
	return e.variables[name], model.PORT_OUT, nil
}

func (e *Engine) handleWriteVariable(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	name, ok := node.Config["variableName"].(string)
	if !ok || name == "" {
		return nil, "", fmt.Errorf("write_variable requires a variableName")
	}
	var value any
	if node.Script != "" {
		v, err := e.eval(ctx, node.Script, input)
		if err != nil {
			return nil, "", err
		}
		value = v
	} else if raw, ok := node.Config["value"]; ok {
		if s, isStr := raw.(string); isStr {
			value = e.resolveString(s, input)
		} else {
			value = raw
		}
	} else {
		value = input["_result"]
	}
	e.variables[name] = value
	return value, model.PORT_OUT, nil
}

func (e *Engine) handleLog(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	msg := e.stringConfig(node, "message", input)
	if node.Script != "" {
		v, err := e.eval(ctx, node.Script, input)
		if err != nil {
			return nil, "", err
		}
		msg = fmt.Sprintf("%v", v)
	}
	level := stringOr(node.Config["level"], "info")
	e.api.Log(level, msg)
	return msg, model.PORT_OUT, nil
}

func (e *Engine) handleNotification(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	message := e.stringConfig(node, "message", input)
	severity := stringOr(node.Config["severity"], "info")
	if err := e.api.Notify(ctx, message, severity); err != nil {
		return nil, "", err
	}
	return message, model.PORT_OUT, nil
}

func (e *Engine) handleLlmCall(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	prompt := e.stringConfig(node, "prompt", input)
	if prompt == "" {
		return nil, "", fmt.Errorf("llm_call requires a prompt")
	}
	text, err := e.api.Chat(ctx, prompt, mapConfig(node, "options"))
	if err != nil {
		return nil, "", err
	}
	return text, model.PORT_OUT, nil
}

func (e *Engine) handleTts(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	text := e.stringConfig(node, "text", input)
	if text == "" {
		return nil, "", fmt.Errorf("tts requires text")
	}
	if err := e.api.Say(ctx, text, mapConfig(node, "options")); err != nil {
		return nil, "", err
	}
	return text, model.PORT_OUT, nil
}

func (e *Engine) handleCallFlow(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	flowId, ok := node.Config["flowId"].(string)
	if !ok || flowId == "" {
		return nil, "", fmt.Errorf("call_flow requires a flowId")
	}
	if e.repo == nil {
		return nil, "", fmt.Errorf("no flow repository configured")
	}
	target, err := e.repo.GetFlowById(flowId)
	if err != nil {
		return nil, "", fmt.Errorf("resolving flow %q: %w", flowId, err)
	}
	if target.Runtime != model.RUNTIME_ANY && target.Runtime != e.flow.Runtime {
		return nil, "", fmt.Errorf("flow %q requires runtime %q, caller runs as %q",
			target.Name, target.Runtime, e.flow.Runtime)
	}

	subInput := mapConfig(node, "input")
	if subInput == nil {
		if m, ok := input["_result"].(map[string]any); ok {
			subInput = m
		}
	}

	sub := e.newChild(target)
	res := sub.Execute(ctx, subInput, e.callStack)
	e.api.merge(res)
	if !res.Success {
		return nil, "", fmt.Errorf("subflow %q failed: %s", target.Name, res.Error)
	}
	return map[string]any{"success": true, "variables": res.Variables}, model.PORT_OUT, nil
}

func (e *Engine) handleRateLimit(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	mode := stringOr(node.Config["mode"], "delay")
	interval := time.Duration(intConfig(node, "intervalMs", 0)) * time.Millisecond
	switch mode {
	// debounce is a plain sleep, same as delay. Known limitation carried from
	// the node's original behavior; there is no trailing-edge cancellation.
	case "delay", "debounce":
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
		return map[string]any{"mode": mode, "waitedMs": interval.Milliseconds()}, model.PORT_OUT, nil
	case "throttle":
		if e.throttler.TryAcquire(node.Id, interval) {
			return map[string]any{"mode": mode, "throttled": false}, model.PORT_OUT, nil
		}
		return map[string]any{"mode": mode, "throttled": true}, model.PORT_SKIPPED, nil
	default:
		return nil, "", fmt.Errorf("unknown rate_limit mode %q", mode)
	}
}

func (e *Engine) handleComment(ctx context.Context, node *model.Node, input map[string]any) (any, string, error) {
	return nil, "", nil
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
