package todolist

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

var errBoom = errors.New("boom")

// fakeRemote serves a fixed collection and counts calls per operation.
type fakeRemote struct {
	mu    sync.Mutex
	items []model.Todo
	calls map[string]int

	listErr, createErr, updateErr, deleteErr error

	updated []model.Todo
	deleted []int

	// listHook runs inside List after the call is counted.
	listHook func(ctx context.Context)
}

func newFakeRemote(items ...model.Todo) *fakeRemote {
	return &fakeRemote{items: items, calls: map[string]int{}}
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRemote) List(ctx context.Context) ([]model.Todo, error) {
	f.mu.Lock()
	f.calls["list"]++
	hook := f.listHook
	err := f.listErr
	out := append([]model.Todo{}, f.items...)
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeRemote) Create(_ context.Context, text string) (model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	if f.createErr != nil {
		return model.Todo{}, f.createErr
	}
	t := model.Todo{ID: len(f.items) + 1, Text: text}
	f.items = append(f.items, t)
	return t, nil
}

func (f *fakeRemote) SetCompleted(_ context.Context, t model.Todo, completed bool) (model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if f.updateErr != nil {
		return model.Todo{}, f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == t.ID {
			f.items[i].Completed = completed
			f.updated = append(f.updated, f.items[i])
			return f.items[i], nil
		}
	}
	return model.Todo{}, errBoom
}

func (f *fakeRemote) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func always(answer bool) ConfirmFunc {
	return func(context.Context, string) bool { return answer }
}

func mounted(t *testing.T, f *fakeRemote, opts ...Option) *View {
	t.Helper()
	v := New(f, opts...)
	require.NoError(t, v.Mount(context.Background()))
	t.Cleanup(v.Unmount)
	return v
}

func TestMount_InitialFetch(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	var loadingDuringFetch bool
	v := New(f)
	f.listHook = func(context.Context) { loadingDuringFetch = v.Snapshot().Loading }

	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	s := v.Snapshot()
	assert.True(t, loadingDuringFetch, "loading while the first fetch is in flight")
	assert.False(t, s.Loading)
	assert.Equal(t, []model.Todo{{ID: 1, Text: "A"}}, s.Items)
	assert.Empty(t, s.LastError)
	assert.True(t, v.Mounted())
}

func TestMount_FailureStillClearsLoading(t *testing.T) {
	f := newFakeRemote()
	f.listErr = errBoom
	v := New(f)

	err := v.Mount(context.Background())
	require.ErrorIs(t, err, errBoom)
	defer v.Unmount()

	s := v.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, MsgLoadFailed, s.LastError)
	assert.Empty(t, s.Items)
}

func TestMount_Twice(t *testing.T) {
	f := newFakeRemote()
	v := mounted(t, f)
	require.NoError(t, v.Mount(context.Background()))
	assert.Equal(t, 1, f.count("list"))
}

func TestMount_AfterParentCancelled(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := New(f)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, v.Mount(ctx))
	cancel()
	require.False(t, v.Mounted())

	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	assert.True(t, v.Mounted())
	assert.Equal(t, 2, f.count("list"))
	require.NoError(t, v.List(context.Background()))
	assert.Len(t, v.Snapshot().Items, 1)
}

func TestLoading_UntouchedByLaterFetches(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)

	var seen []bool
	f.listHook = func(context.Context) { seen = append(seen, v.Snapshot().Loading) }

	require.NoError(t, v.List(context.Background()))
	require.NoError(t, v.Create(context.Background(), "B"))
	require.NoError(t, v.Toggle(context.Background(), 1))

	assert.Equal(t, []bool{false, false, false}, seen)
	assert.False(t, v.Snapshot().Loading)
}

func TestList_ReplacesItemsInResponseOrder(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)

	f.items = []model.Todo{{ID: 3, Text: "C"}, {ID: 2, Text: "B", Completed: true}}
	require.NoError(t, v.List(context.Background()))
	assert.Equal(t, f.items, v.Snapshot().Items)
}

func TestList_FailureKeepsItemsAndLaterSuccessClearsError(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)

	f.listErr = errBoom
	f.items = nil
	require.Error(t, v.List(context.Background()))
	s := v.Snapshot()
	assert.Equal(t, MsgLoadFailed, s.LastError)
	assert.Equal(t, []model.Todo{{ID: 1, Text: "A"}}, s.Items)

	f.listErr = nil
	require.NoError(t, v.List(context.Background()))
	s = v.Snapshot()
	assert.Empty(t, s.LastError)
	assert.Empty(t, s.Items)
}

func TestCreate_BlankTextIsNoop(t *testing.T) {
	f := newFakeRemote()
	v := mounted(t, f)
	before := f.total()

	for _, text := range []string{"", "   ", "\t\n"} {
		require.NoError(t, v.Create(context.Background(), text))
	}
	assert.Equal(t, before, f.total())
}

func TestCreate_SuccessRefetchesAndClearsInput(t *testing.T) {
	f := newFakeRemote()
	v := mounted(t, f)
	v.SetInput("Buy milk")

	require.NoError(t, v.Submit(context.Background()))

	s := v.Snapshot()
	assert.Equal(t, 2, f.count("list"), "mount + re-sync")
	assert.Empty(t, s.PendingInput)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Buy milk", s.Items[0].Text)
}

func TestCreate_TrimsText(t *testing.T) {
	f := newFakeRemote()
	v := mounted(t, f)

	require.NoError(t, v.Create(context.Background(), "  Walk dog \n"))
	assert.Equal(t, "Walk dog", v.Snapshot().Items[0].Text)
}

func TestCreate_FailureKeepsDraft(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)
	f.createErr = errBoom
	v.SetInput("draft")

	err := v.Submit(context.Background())
	require.ErrorIs(t, err, errBoom)

	s := v.Snapshot()
	assert.Equal(t, MsgAddFailed, s.LastError)
	assert.Equal(t, "draft", s.PendingInput)
	assert.Equal(t, []model.Todo{{ID: 1, Text: "A"}}, s.Items)
	assert.Equal(t, 1, f.count("list"))
}

func TestToggle_InvertsAndRefetches(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)

	require.NoError(t, v.Toggle(context.Background(), 1))
	assert.Equal(t, []model.Todo{{ID: 1, Text: "A", Completed: true}}, f.updated)
	assert.True(t, v.Snapshot().Items[0].Completed)
	assert.Equal(t, 2, f.count("list"))

	require.NoError(t, v.Toggle(context.Background(), 1))
	assert.False(t, v.Snapshot().Items[0].Completed)
}

func TestToggle_UnknownIDIsNoop(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)
	before := f.total()

	require.NoError(t, v.Toggle(context.Background(), 42))
	assert.Equal(t, before, f.total())
}

func TestToggle_FailureSetsErrorAndKeepsItems(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)
	f.updateErr = errBoom

	require.Error(t, v.Toggle(context.Background(), 1))
	s := v.Snapshot()
	assert.Equal(t, MsgUpdateFailed, s.LastError)
	assert.Equal(t, []model.Todo{{ID: 1, Text: "A"}}, s.Items)
}

func TestRemove_DeclinedIsNoop(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f, WithConfirm(always(false)))
	before := f.total()

	require.NoError(t, v.Remove(context.Background(), 1))
	assert.Equal(t, before, f.total())
	assert.Len(t, v.Snapshot().Items, 1)
}

func TestRemove_DefaultConfirmDeclines(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)

	require.NoError(t, v.Remove(context.Background(), 1))
	assert.Zero(t, f.count("delete"))
}

func TestRemove_ConfirmedDeletesAndRefetches(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"}, model.Todo{ID: 2, Text: "B"})
	var asked string
	v := mounted(t, f, WithConfirm(func(_ context.Context, prompt string) bool {
		asked = prompt
		return true
	}))

	require.NoError(t, v.Remove(context.Background(), 1))
	assert.Equal(t, ConfirmDeletePrompt, asked)
	assert.Equal(t, []int{1}, f.deleted)
	assert.Equal(t, []model.Todo{{ID: 2, Text: "B"}}, v.Snapshot().Items)
}

func TestRemove_FailureSetsError(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f, WithConfirm(always(true)))
	f.deleteErr = errBoom

	require.Error(t, v.Remove(context.Background(), 1))
	s := v.Snapshot()
	assert.Equal(t, MsgDeleteFailed, s.LastError)
	assert.Len(t, s.Items, 1)
}

func TestOperations_RequireMount(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := New(f, WithConfirm(always(true)))
	ctx := context.Background()

	assert.ErrorIs(t, v.List(ctx), ErrNotMounted)
	assert.ErrorIs(t, v.Create(ctx, "x"), ErrNotMounted)
	assert.ErrorIs(t, v.Toggle(ctx, 1), ErrNotMounted)
	assert.ErrorIs(t, v.Remove(ctx, 1), ErrNotMounted)
	assert.Zero(t, f.total())
}

func TestUnmount_DropsLateResult(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := New(f)
	require.NoError(t, v.Mount(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.listHook = func(context.Context) {
		close(entered)
		<-release
	}
	f.items = []model.Todo{{ID: 9, Text: "late"}}

	errc := make(chan error, 1)
	go func() { errc <- v.List(context.Background()) }()

	<-entered
	v.Unmount()
	close(release)

	assert.ErrorIs(t, <-errc, ErrNotMounted)
	assert.False(t, v.Mounted())
	assert.Empty(t, v.Snapshot().Items)
}

func TestUnmount_CancelsInFlightRequest(t *testing.T) {
	f := newFakeRemote()
	v := New(f)
	require.NoError(t, v.Mount(context.Background()))

	entered := make(chan struct{})
	f.listHook = func(ctx context.Context) {
		close(entered)
		<-ctx.Done()
	}

	errc := make(chan error, 1)
	go func() { errc <- v.List(context.Background()) }()
	<-entered
	v.Unmount()

	// The hook only returns once the operation context is cancelled.
	assert.ErrorIs(t, <-errc, ErrNotMounted)
}

func TestRemount_StartsFresh(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := New(f)
	require.NoError(t, v.Mount(context.Background()))
	v.SetInput("draft")
	v.Unmount()

	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	s := v.Snapshot()
	assert.Empty(t, s.PendingInput)
	assert.Len(t, s.Items, 1)
}

func TestSnapshot_IsACopy(t *testing.T) {
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f)

	s := v.Snapshot()
	s.Items[0].Text = "mutated"
	assert.Equal(t, "A", v.Snapshot().Items[0].Text)
}

func TestFailures_AreLogged(t *testing.T) {
	var buf bytes.Buffer
	f := newFakeRemote(model.Todo{ID: 1, Text: "A"})
	v := mounted(t, f, WithLogger(log.New(&buf)))
	f.updateErr = errBoom

	_ = v.Toggle(context.Background(), 1)
	out := buf.String()
	assert.Contains(t, out, "updating todo")
	assert.Contains(t, out, "boom")
}

func TestState_Stats(t *testing.T) {
	s := State{Items: []model.Todo{{ID: 1, Completed: true}, {ID: 2}, {ID: 3}}}
	done, pending := s.Stats()
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, pending)
}
