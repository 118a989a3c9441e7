package model

import "time"

type NodeStatus string

const NODE_STATUS_RUNNING NodeStatus = "running"
const NODE_STATUS_COMPLETED NodeStatus = "completed"
const NODE_STATUS_ERROR NodeStatus = "error"
const NODE_STATUS_SKIPPED NodeStatus = "skipped"

// ExecutionLogEntry records one activation of a node. A node activated several
// times inside a loop produces several entries.
type ExecutionLogEntry struct {
	NodeId    string     `json:"nodeId"`
	NodeName  string     `json:"nodeName"`
	NodeType  NodeType   `json:"nodeType"`
	Status    NodeStatus `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Result    any        `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type Notification struct {
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionResult is the externally visible outcome of one run. It is plain
// structured data so it can cross a process or transport boundary unchanged.
type ExecutionResult struct {
	Success       bool                `json:"success"`
	ExecutionLog  []ExecutionLogEntry `json:"executionLog"`
	Logs          []string            `json:"logs"`
	Notifications []Notification      `json:"notifications"`
	Variables     map[string]any      `json:"variables"`
	Error         string              `json:"error,omitempty"`
}
