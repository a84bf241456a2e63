package domain

// ChatMessage is one turn in a completion conversation.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured operation request emitted by the completion
// service. Arguments is raw JSON.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec declares a callable operation to the completion service.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is a single completion call. When ForceTool names a declared
// tool, the service is required to invoke it rather than answer freely.
type ChatRequest struct {
	Messages    []ChatMessage
	Tools       []ToolSpec
	ForceTool   string
	Temperature float64
}

type ChatResponse struct {
	Message ChatMessage
}

// ModerationResult mirrors the moderation service verdict. Categories maps
// category name to whether it was triggered.
type ModerationResult struct {
	Flagged    bool
	Categories map[string]bool
}

// SafetyVerdict is the Safety Gate outcome. A blocked query is a normal
// terminal state, not an error.
type SafetyVerdict struct {
	Blocked bool
	Reason  string
}
