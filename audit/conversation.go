package audit

import "sync"

// TurnRole labels a conversation turn.
type TurnRole string

const (
	RoleSystem    TurnRole = "system"
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// Conversation is the target's append-only turn list. Only the Auditor mutates it.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewConversation(seed Turn) *Conversation {
	return &Conversation{turns: []Turn{seed}}
}

// AppendExchange records a user message and the assistant reply together.
func (c *Conversation) AppendExchange(user, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns,
		Turn{Role: RoleUser, Text: user},
		Turn{Role: RoleAssistant, Text: reply},
	)
}

// Turns returns a copy safe for the caller to keep or modify.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Turn(nil), c.turns...)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}
