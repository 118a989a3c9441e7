package model

type NodeType string

const NODE_TYPE_START NodeType = "start"
const NODE_TYPE_MANUAL_TRIGGER NodeType = "manual_trigger"
const NODE_TYPE_JS_EXECUTE NodeType = "js_execute"
const NODE_TYPE_IF_ELSE NodeType = "if_else"
const NODE_TYPE_SWITCH NodeType = "switch"
const NODE_TYPE_FOR_LOOP NodeType = "for_loop"
const NODE_TYPE_WHILE_LOOP NodeType = "while_loop"
const NODE_TYPE_FOREACH NodeType = "foreach"
const NODE_TYPE_MERGE NodeType = "merge"
const NODE_TYPE_READ_VARIABLE NodeType = "read_variable"
const NODE_TYPE_WRITE_VARIABLE NodeType = "write_variable"
const NODE_TYPE_LOG NodeType = "log"
const NODE_TYPE_NOTIFICATION NodeType = "notification"
const NODE_TYPE_LLM_CALL NodeType = "llm_call"
const NODE_TYPE_TTS NodeType = "tts"
const NODE_TYPE_CALL_FLOW NodeType = "call_flow"
const NODE_TYPE_RATE_LIMIT NodeType = "rate_limit"
const NODE_TYPE_COMMENT NodeType = "comment"

// Port names emitted by node handlers.
const PORT_OUT string = "out"
const PORT_TRUE string = "true"
const PORT_FALSE string = "false"
const PORT_DEFAULT string = "default"
const PORT_BODY string = "body"
const PORT_LOOP string = "loop"
const PORT_DONE string = "done"
const PORT_ERROR string = "error"
const PORT_SKIPPED string = "skipped"

// Runtime is the compatibility tag of a flow. A flow with an empty runtime can be
// invoked from any execution context; otherwise caller and target must match.
type Runtime string

const RUNTIME_ANY Runtime = ""
const RUNTIME_STANDARD Runtime = "standard"
const RUNTIME_PRIVILEGED Runtime = "privileged"

type Flow struct {
	Id        string         `json:"id"`
	Name      string         `json:"name"`
	Runtime   Runtime        `json:"runtime,omitempty"`
	Nodes     []Node         `json:"nodes"`
	Edges     []Edge         `json:"edges"`
	Variables []VariableDecl `json:"variables,omitempty"`
}

type Node struct {
	Id       string         `json:"id"`
	Name     string         `json:"name"`
	Type     NodeType       `json:"nodeType"`
	Disabled bool           `json:"disabled,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Script   string         `json:"script,omitempty"`
}

type Edge struct {
	SourceNodeId string `json:"sourceNodeId"`
	SourcePortId string `json:"sourcePortId"`
	TargetNodeId string `json:"targetNodeId"`
	TargetPortId string `json:"targetPortId"`
	Disabled     bool   `json:"disabled,omitempty"`
}

type VariableDecl struct {
	Name         string `json:"name"`
	DefaultValue any    `json:"defaultValue,omitempty"`
}

func (f *Flow) NodeById(id string) (*Node, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].Id == id {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}
