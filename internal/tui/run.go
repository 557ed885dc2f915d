package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada-remote/internal/todolist"
)

// Run starts the interactive list over remote and blocks until the user
// quits or ctx is cancelled. The view is always unmounted on return.
func Run(ctx context.Context, remote todolist.Remote, logger *log.Logger, opts ...tea.ProgramOption) error {
	confirmer := &Confirmer{}
	view := todolist.New(remote,
		todolist.WithConfirm(confirmer.Confirm),
		todolist.WithLogger(logger),
	)
	defer view.Unmount()

	popts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, view), popts...)
	confirmer.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}
