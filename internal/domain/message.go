package domain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation history. The concrete types are
// SystemMessage, UserMessage, AssistantMessage and ToolMessage; consumers
// switch over them exhaustively.
type Message interface {
	Role() Role
	isMessage()
}

type SystemMessage struct {
	Content string
}

type UserMessage struct {
	Content string
}

// AssistantMessage records a model turn. Content is empty when the turn only
// requested tools.
type AssistantMessage struct {
	Content   string
	ToolCalls []ToolInvocationRequest
}

type ToolMessage struct {
	InvocationID string
	Name         string
	Content      string
}

func (SystemMessage) Role() Role    { return RoleSystem }
func (UserMessage) Role() Role      { return RoleUser }
func (AssistantMessage) Role() Role { return RoleAssistant }
func (ToolMessage) Role() Role      { return RoleTool }

func (SystemMessage) isMessage()    {}
func (UserMessage) isMessage()      {}
func (AssistantMessage) isMessage() {}
func (ToolMessage) isMessage()      {}

// History is an append-only conversation log owned by a single session.
type History struct {
	messages []Message
}

func NewHistory(seed ...Message) *History {
	h := &History{messages: make([]Message, 0, len(seed)+8)}
	h.messages = append(h.messages, seed...)
	return h
}

func (h *History) Append(m Message) {
	h.messages = append(h.messages, m)
}

func (h *History) Len() int {
	return len(h.messages)
}

// Snapshot returns a copy that later appends cannot affect.
func (h *History) Snapshot() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}
