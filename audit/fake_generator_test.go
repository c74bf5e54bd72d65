package audit

import (
	"context"
	"errors"
	"sync"
)

type generatorCall struct {
	History []Turn
	Message string
	Config  RoleConfig
}

type scriptedReply struct {
	text string
	err  error
}

// scriptedGenerator replays replies in order and records every call.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   []generatorCall
}

func (g *scriptedGenerator) Generate(_ context.Context, history []Turn, message string, cfg RoleConfig) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generatorCall{History: append([]Turn(nil), history...), Message: message, Config: cfg})
	if len(g.replies) == 0 {
		return "", errors.New("scriptedGenerator: no reply scripted")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func replies(texts ...string) []scriptedReply {
	out := make([]scriptedReply, len(texts))
	for i, t := range texts {
		out[i] = scriptedReply{text: t}
	}
	return out
}
