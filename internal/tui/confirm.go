package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequestMsg asks the model to show a yes/no dialog. The answer is
// sent on reply exactly once.
type confirmRequestMsg struct {
	prompt string
	reply  chan<- bool
}

func (c confirmRequestMsg) answer(ok bool) {
	select {
	case c.reply <- ok:
	default:
	}
}

// Confirmer is a todolist.ConfirmFunc backed by an in-view dialog instead
// of a blocking terminal prompt. It must be attached to a running program.
type Confirmer struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// Attach routes dialog requests to p.
func (c *Confirmer) Attach(p *tea.Program) {
	c.attach(p.Send)
}

func (c *Confirmer) attach(send func(tea.Msg)) {
	c.mu.Lock()
	c.send = send
	c.mu.Unlock()
}

// Confirm shows prompt and waits for the answer. Without a program, or once
// ctx is done, the answer is no.
func (c *Confirmer) Confirm(ctx context.Context, prompt string) bool {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()
	if send == nil {
		return false
	}

	reply := make(chan bool, 1)
	send(confirmRequestMsg{prompt: prompt, reply: reply})
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
