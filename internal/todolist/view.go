// Package todolist keeps an in-memory todo list synchronized with the remote
// collection resource. Every mutation is followed by a full re-fetch, so the
// items held by a View are always the last successful list response.
package todolist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

// User-facing messages, one per operation.
const (
	MsgLoadFailed   = "Failed to load todos. Please try again."
	MsgAddFailed    = "Failed to add todo. Please try again."
	MsgUpdateFailed = "Failed to update todo. Please try again."
	MsgDeleteFailed = "Failed to delete todo. Please try again."

	ConfirmDeletePrompt = "Are you sure you want to delete this todo?"
)

// ErrNotMounted is returned by operations on a view that is not mounted, and
// by operations whose result arrived after Unmount.
var ErrNotMounted = errors.New("todolist: view is not mounted")

// Remote is the collection resource as seen by a View. *api.Client
// implements it.
type Remote interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, text string) (model.Todo, error)
	SetCompleted(ctx context.Context, t model.Todo, completed bool) (model.Todo, error)
	Delete(ctx context.Context, id int) error
}

// ConfirmFunc asks the user a yes/no question. It may block until answered
// or ctx is done; a done ctx counts as "no".
type ConfirmFunc func(ctx context.Context, prompt string) bool

// State is what a view renders.
type State struct {
	Items        []model.Todo
	PendingInput string
	Loading      bool   // only during the initial fetch
	LastError    string // empty when there is nothing to show
}

// Stats counts completed and pending items.
func (s State) Stats() (done, pending int) {
	for _, t := range s.Items {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// View is the synchronization core of the todo list. It is safe for
// concurrent use; no lock is held across network calls, so overlapping
// operations interleave and the last applied list response wins.
type View struct {
	remote  Remote
	confirm ConfirmFunc
	logger  *log.Logger

	mu     sync.Mutex
	state  State
	life   context.Context
	cancel context.CancelFunc
	gen    uint64 // bumped on every Mount and Unmount
}

// Option configures a View.
type Option func(*View)

// WithConfirm installs the confirmation capability used by Remove.
func WithConfirm(fn ConfirmFunc) Option {
	return func(v *View) {
		if fn != nil {
			v.confirm = fn
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

// New builds an unmounted view over remote. Without WithConfirm every delete
// is declined.
func New(remote Remote, opts ...Option) *View {
	v := &View{
		remote:  remote,
		confirm: func(context.Context, string) bool { return false },
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount starts a fresh lifecycle and performs the initial fetch. Loading is
// true until that fetch settles. Mounting a mounted view does nothing; a view
// whose parent context was cancelled counts as unmounted.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.cancel != nil && v.life.Err() == nil {
		v.mu.Unlock()
		return nil
	}
	if v.cancel != nil {
		// The parent of the previous lifecycle was cancelled.
		v.cancel()
	}
	v.life, v.cancel = context.WithCancel(ctx)
	v.gen++
	v.state = State{Loading: true}
	v.mu.Unlock()

	v.logger.Debug("mounted")
	return v.List(ctx)
}

// Unmount ends the lifecycle. Requests in flight are cancelled and any
// result that still arrives is dropped. The state is discarded.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel == nil {
		return
	}
	v.cancel()
	v.cancel = nil
	v.life = nil
	v.gen++
	v.state = State{}
	v.logger.Debug("unmounted")
}

// Mounted reports whether the view has a live lifecycle.
func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.life != nil && v.life.Err() == nil
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Items = slices.Clone(v.state.Items)
	return s
}

// SetInput records the uncommitted text for a new todo.
func (v *View) SetInput(text string) {
	v.mu.Lock()
	v.state.PendingInput = text
	v.mu.Unlock()
}

// List re-reads the whole collection. On success the items are replaced and
// the error cleared; on failure the items are kept and LastError is set.
func (v *View) List(ctx context.Context) error {
	opCtx, gen, done, err := v.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return v.list(opCtx, gen)
}

func (v *View) list(ctx context.Context, gen uint64) error {
	todos, err := v.remote.List(ctx)
	if err != nil {
		v.fail(gen, "loading todos", MsgLoadFailed, err, func(s *State) { s.Loading = false })
		return fmt.Errorf("list: %w", err)
	}
	if !v.apply(gen, func(s *State) {
		s.Items = todos
		s.LastError = ""
		s.Loading = false
	}) {
		return ErrNotMounted
	}
	v.logger.Debug("synchronized", "items", len(todos))
	return nil
}

// Create submits text as a new todo and re-synchronizes. Blank text is
// ignored. The pending input survives a failed create.
func (v *View) Create(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	opCtx, gen, done, err := v.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := v.remote.Create(opCtx, text); err != nil {
		v.fail(gen, "adding todo", MsgAddFailed, err, nil)
		return fmt.Errorf("create: %w", err)
	}
	listErr := v.list(opCtx, gen)
	v.apply(gen, func(s *State) { s.PendingInput = "" })
	return listErr
}

// Submit creates a todo from the pending input.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	text := v.state.PendingInput
	v.mu.Unlock()
	return v.Create(ctx, text)
}

// Toggle inverts the completion flag of the item with id. Unknown ids are
// ignored, which covers a stale screen after a concurrent delete.
func (v *View) Toggle(ctx context.Context, id int) error {
	opCtx, gen, done, err := v.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	v.mu.Lock()
	i := slices.IndexFunc(v.state.Items, func(t model.Todo) bool { return t.ID == id })
	var todo model.Todo
	if i >= 0 {
		todo = v.state.Items[i]
	}
	v.mu.Unlock()
	if i < 0 {
		v.logger.Debug("toggle: no such item", "id", id)
		return nil
	}

	if _, err := v.remote.SetCompleted(opCtx, todo, !todo.Completed); err != nil {
		v.fail(gen, "updating todo", MsgUpdateFailed, err, nil, "id", id)
		return fmt.Errorf("toggle %d: %w", id, err)
	}
	return v.list(opCtx, gen)
}

// Remove deletes the item with id once the user confirms.
func (v *View) Remove(ctx context.Context, id int) error {
	opCtx, gen, done, err := v.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if !v.confirm(opCtx, ConfirmDeletePrompt) {
		v.logger.Debug("delete declined", "id", id)
		return nil
	}
	if err := v.remote.Delete(opCtx, id); err != nil {
		v.fail(gen, "deleting todo", MsgDeleteFailed, err, nil, "id", id)
		return fmt.Errorf("remove %d: %w", id, err)
	}
	return v.list(opCtx, gen)
}

// begin derives an operation context that is cancelled with either ctx or
// the view's lifecycle.
func (v *View) begin(ctx context.Context) (context.Context, uint64, func(), error) {
	v.mu.Lock()
	life, gen := v.life, v.gen
	v.mu.Unlock()
	if life == nil || life.Err() != nil {
		return nil, 0, nil, ErrNotMounted
	}
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return opCtx, gen, func() {
		stop()
		cancel()
	}, nil
}

// apply mutates the state unless the lifecycle that issued the request has
// ended.
func (v *View) apply(gen uint64, fn func(*State)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.life == nil || v.life.Err() != nil {
		v.logger.Debug("dropping result for a stale view")
		return false
	}
	fn(&v.state)
	return true
}

func (v *View) fail(gen uint64, op, msg string, err error, extra func(*State), kv ...any) {
	if !v.apply(gen, func(s *State) {
		s.LastError = msg
		if extra != nil {
			extra(s)
		}
	}) {
		return
	}
	v.logger.Error(op, append(kv, "err", err)...)
}
