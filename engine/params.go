package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flowrig/flowrig/model"
	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile(`\{(\$[^}]*)\}`)

// resolveString expands {$.path} jsonpath tokens in a config string against the
// current input and variable scope. `{$.variables.name}` and `{$.input._result}`
// are the common forms. Unresolvable tokens are left in place rather than failing
// the node.
func (e *Engine) resolveString(value string, input map[string]any) string {
	if !strings.Contains(value, "{$") {
		return value
	}
	data := map[string]any{
		"input":     input,
		"variables": e.variables,
	}
	return tokenPattern.ReplaceAllStringFunc(value, func(token string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		resolved, err := jsonpath.JsonPathLookup(data, path)
		if err != nil {
			return token
		}
		return fmt.Sprintf("%v", resolved)
	})
}

func (e *Engine) stringConfig(node *model.Node, key string, input map[string]any) string {
	v, ok := node.Config[key].(string)
	if !ok {
		return ""
	}
	return e.resolveString(v, input)
}

func mapConfig(node *model.Node, key string) map[string]any {
	v, _ := node.Config[key].(map[string]any)
	return v
}

// intConfig tolerates the numeric representations json decoding and script
// evaluation produce.
func intConfig(node *model.Node, key string, def int) int {
	switch v := node.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
