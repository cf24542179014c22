package widget

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// View renders a State. It is called with every new state, in order, and must
// not call back into the Widget.
type View interface {
	Render(State)
}

// ViewFunc adapts a function to View.
type ViewFunc func(State)

func (f ViewFunc) Render(s State) { f(s) }

// Widget owns the current State and runs relay calls in the background.
//
// Submissions are not de-duplicated, queued or cancelled: every accepted
// prompt gets its own goroutine and replies land in completion order.
type Widget struct {
	mu       sync.Mutex
	state    State
	relay    Relay
	view     View
	inflight sync.WaitGroup
}

// New creates a closed widget. view may be nil.
func New(relay Relay, view View) *Widget {
	return &Widget{relay: relay, view: view}
}

// State returns a snapshot of the current state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := w.state
	snapshot.Transcript = append([]Message(nil), w.state.Transcript...)
	return snapshot
}

func (w *Widget) TogglePanel() {
	w.update(State.TogglePanel)
}

func (w *Widget) ClosePanel() {
	w.update(State.ClosePanel)
}

func (w *Widget) SetInput(text string) {
	w.update(func(s State) State { return s.SetInput(text) })
}

func (w *Widget) HandleKey(k Key) {
	w.update(func(s State) State { return s.HandleKey(k) })
}

// Submit appends the user message and a loading placeholder, then relays the
// prompt asynchronously. It reports false, doing nothing, for blank text.
func (w *Widget) Submit(ctx context.Context, text string) bool {
	w.mu.Lock()
	next, prompt, loadingID, ok := w.state.Submit(text)
	if !ok {
		w.mu.Unlock()
		return false
	}
	w.state = next
	w.render()
	w.inflight.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.inflight.Done()
		reply, err := w.send(ctx, prompt)
		if err != nil {
			log.Printf("[widget] relay call failed: %v", err)
		}
		w.update(func(s State) State { return s.Settle(loadingID, reply, err) })
	}()
	return true
}

// SubmitInput submits whatever is in the input field.
func (w *Widget) SubmitInput(ctx context.Context) bool {
	return w.Submit(ctx, w.State().Input)
}

// Wait blocks until every in-flight relay call has settled.
func (w *Widget) Wait() {
	w.inflight.Wait()
}

// send converts a panicking Relay into an error so the placeholder is always
// settled.
func (w *Widget) send(ctx context.Context, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("relay panicked: %v", r)
		}
	}()
	return w.relay.Send(ctx, prompt)
}

func (w *Widget) update(fn func(State) State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = fn(w.state)
	w.render()
}

func (w *Widget) render() {
	if w.view != nil {
		w.view.Render(w.state)
	}
}
