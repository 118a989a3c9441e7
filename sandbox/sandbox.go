package sandbox

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/flowrig/flowrig/systemapi"
)

// Env is everything a node script may reach. Exactly three bindings are exposed
// to the script body: `system` (the facade), `input` (the current traversal
// input) and `variables` (the mutable flow scope, written through the Go map).
type Env struct {
	API       systemapi.API
	Input     map[string]any
	Variables map[string]any
}

// Execute evaluates a node-embedded script and returns the value of its last
// expression. The vm is discarded after each evaluation; nothing from the host
// process other than the Env bindings is reachable. Cancelling ctx interrupts a
// running script.
func Execute(ctx context.Context, script string, env Env) (any, error) {
	if script == "" {
		return nil, fmt.Errorf("script is empty")
	}
	vm := goja.New()
	throw := func(err error) {
		panic(vm.NewGoError(err))
	}
	if err := vm.Set("system", systemObject(ctx, env, throw)); err != nil {
		return nil, err
	}
	if err := vm.Set("input", env.Input); err != nil {
		return nil, err
	}
	if err := vm.Set("variables", env.Variables); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := vm.RunString(script)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("script error: %w", err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

func systemObject(ctx context.Context, env Env, throw func(error)) map[string]any {
	api := env.API
	return map[string]any{
		"log": map[string]any{
			"info":  func(msg string) { api.Log("info", msg) },
			"warn":  func(msg string) { api.Log("warn", msg) },
			"error": func(msg string) { api.Log("error", msg) },
			"debug": func(msg string) { api.Log("debug", msg) },
		},
		"notify": func(message string, severity string) {
			if err := api.Notify(ctx, message, severity); err != nil {
				throw(err)
			}
		},
		"ai": map[string]any{
			"chat": func(prompt string, options map[string]any) string {
				text, err := api.Chat(ctx, prompt, options)
				if err != nil {
					throw(err)
				}
				return text
			},
		},
		"speech": map[string]any{
			"say": func(text string, options map[string]any) {
				if err := api.Say(ctx, text, options); err != nil {
					throw(err)
				}
			},
		},
		"getVariable": func(name string) any {
			return env.Variables[name]
		},
		"setVariable": func(name string, value any) {
			env.Variables[name] = value
		},
	}
}

// Truthy applies javascript truthiness to an exported script value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
