package transform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/takak2166/pagefit/internal/llm"
)

type memoryWriter struct {
	mu     sync.Mutex
	fields map[Field]string
	writes int
	err    error
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{fields: make(map[Field]string)}
}

func (w *memoryWriter) WriteField(ctx context.Context, field Field, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.fields[field] = content
	w.writes++
	return nil
}

func (w *memoryWriter) get(f Field) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fields[f]
}

type recordingGenerator struct {
	mu       sync.Mutex
	prompts  []string
	response string
	err      error
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

func (g *recordingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

var (
	contentA = Field{PageID: "p1", Kind: FieldContent}
	contentB = Field{PageID: "p2", Kind: FieldContent}
)

func mustLookup(t *testing.T, name string) Action {
	t.Helper()
	a, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", name, err)
	}
	return a
}

func TestExecuteAdditiveLimitReached(t *testing.T) {
	gen := &recordingGenerator{response: "more"}
	w := newMemoryWriter()
	o := New(gen, w)

	_, err := o.Execute(context.Background(), Request{
		Action:  mustLookup(t, "continue"),
		Content: strings.Repeat("a", 5000),
		Field:   contentA,
		Budget:  1500,
	})
	if !errors.Is(err, ErrLimitReached) || !IsValidation(err) {
		t.Fatalf("Expected limit reached validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "limit reached") {
		t.Errorf("Error message %q does not mention the limit", err)
	}
	if gen.calls() != 0 {
		t.Error("Provider called despite exhausted budget")
	}
	if _, ok := o.Snapshot(); ok {
		t.Error("Rejected transform captured a snapshot")
	}
}

func TestExecuteAdditiveAppends(t *testing.T) {
	gen := &recordingGenerator{response: "Hello world, and more."}
	w := newMemoryWriter()
	o := New(gen, w)

	action := Action{Name: "continue", Label: "Continue", MinChars: 5, Additive: true, Prompt: actions["continue"].Prompt, Apply: Append}
	got, err := o.Execute(context.Background(), Request{
		Action:  action,
		Content: "Hello world",
		Field:   contentA,
		Budget:  1500,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "Hello world\n\nHello world, and more."
	if got != want {
		t.Errorf("Execute() = %q, want %q", got, want)
	}
	if w.get(contentA) != want {
		t.Errorf("Field content = %q, want %q", w.get(contentA), want)
	}
	if !strings.Contains(gen.prompts[0], "under 1489 characters") {
		t.Errorf("Prompt lacks the remaining budget: %q", gen.prompts[0])
	}
	if s := o.State(); s.Processing || s.Action != "" {
		t.Errorf("State not idle after completion: %+v", s)
	}
}

func TestExecuteReplace(t *testing.T) {
	gen := &recordingGenerator{response: "Bonjour le monde"}
	w := newMemoryWriter()
	o := New(gen, w)

	got, err := o.Execute(context.Background(), Request{
		Action:   mustLookup(t, "translate"),
		Content:  "Hello world",
		Field:    contentA,
		Language: "fr",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "Bonjour le monde" {
		t.Errorf("Execute() = %q", got)
	}
	if !strings.Contains(gen.prompts[0], "French") {
		t.Errorf("Prompt does not name the target language: %q", gen.prompts[0])
	}
	if strings.Contains(gen.prompts[0], "characters.") {
		t.Errorf("Replacing transform got a length cap: %q", gen.prompts[0])
	}
}

func TestExecuteValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name:    "Too short",
			req:     Request{Action: mustLookup(t, "enhance"), Content: "   short  ", Field: contentA},
			wantErr: ErrTooShort,
		},
		{
			name:    "Missing language",
			req:     Request{Action: mustLookup(t, "translate"), Content: "Hello", Field: contentA},
			wantErr: ErrLanguageRequired,
		},
		{
			name:    "Exactly at budget",
			req:     Request{Action: mustLookup(t, "continue"), Content: "Hello world", Field: contentA, Budget: 11},
			wantErr: ErrLimitReached,
		},
		{
			name:    "Action without prompt",
			req:     Request{Action: Action{Name: "broken"}, Content: "Hello world", Field: contentA},
			wantErr: ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &recordingGenerator{response: "x"}
			w := newMemoryWriter()
			o := New(gen, w)

			_, err := o.Execute(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if !IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
			if gen.calls() != 0 || w.writes != 0 {
				t.Error("Rejected transform reached the provider or the field")
			}
		})
	}
}

func TestExecuteNoGenerator(t *testing.T) {
	o := New(nil, newMemoryWriter())
	_, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "proofread"), Content: "text", Field: contentA})
	if !errors.Is(err, ErrNoGenerator) {
		t.Errorf("Expected ErrNoGenerator, got %v", err)
	}
}

func TestExecuteProviderError(t *testing.T) {
	providerErr := errors.New("quota exceeded")
	gen := &recordingGenerator{err: providerErr}
	w := newMemoryWriter()
	w.fields[contentA] = "Hello world"
	o := New(gen, w)

	_, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "enhance"), Content: "Hello world", Field: contentA})
	if !errors.Is(err, providerErr) || !IsProvider(err) {
		t.Fatalf("Expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Enhance") {
		t.Errorf("Error %q does not carry the action label", err)
	}
	if w.get(contentA) != "Hello world" || w.writes != 0 {
		t.Error("Field modified after provider failure")
	}
	if o.State().Processing {
		t.Error("Orchestrator stuck in processing")
	}
	if _, err := o.Revert(context.Background()); !errors.Is(err, ErrNothingToRevert) {
		t.Errorf("Expected nothing to revert after failure, got %v", err)
	}
}

func TestExecuteWriteError(t *testing.T) {
	w := newMemoryWriter()
	w.err = errors.New("store offline")
	o := New(&recordingGenerator{response: "x"}, w)

	_, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "proofread"), Content: "text", Field: contentA})
	if !isKind(err, KindStore) {
		t.Errorf("Expected store error, got %v", err)
	}
	if _, ok := o.Snapshot(); ok {
		t.Error("Snapshot kept after failed write")
	}
}

func TestExecuteTimeout(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := New(gen, newMemoryWriter(), WithTimeout(20*time.Millisecond))

	_, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "proofread"), Content: "text", Field: contentA})
	if !IsTimeout(err) {
		t.Fatalf("Expected timeout error, got %v", err)
	}
	if o.State().Processing {
		t.Error("Orchestrator stuck in processing after timeout")
	}
}

func TestSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		close(started)
		<-release
		return "done", nil
	})
	w := newMemoryWriter()
	o := New(gen, w)

	proofread := mustLookup(t, "proofread")
	errc := make(chan error, 1)
	go func() {
		_, err := o.Execute(context.Background(), Request{Action: proofread, Content: "first", Field: contentA})
		errc <- err
	}()
	<-started

	before := o.State()
	if !before.Processing || before.Action != "Proofread" || before.Field != contentA {
		t.Fatalf("Unexpected state while processing: %+v", before)
	}

	_, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "enhance"), Content: "second transform", Field: contentB})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if after := o.State(); after != before {
		t.Errorf("Rejected call changed state: %+v -> %+v", before, after)
	}
	if _, err := o.Revert(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected Revert to refuse while busy, got %v", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("First transform failed: %v", err)
	}
	if o.State().Processing {
		t.Error("State not idle after first transform")
	}
}

func TestRevert(t *testing.T) {
	gen := &recordingGenerator{response: "Rewritten text"}
	w := newMemoryWriter()
	original := "Original  text\nwith two lines "
	w.fields[contentA] = original
	o := New(gen, w)

	if _, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "enhance"), Content: original, Field: contentA}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	field, err := o.Revert(context.Background())
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if field != contentA {
		t.Errorf("Reverted field = %v, want %v", field, contentA)
	}
	if w.get(contentA) != original {
		t.Errorf("Reverted content = %q, want %q", w.get(contentA), original)
	}

	writes := w.writes
	if _, err := o.Revert(context.Background()); !errors.Is(err, ErrNothingToRevert) {
		t.Errorf("Expected ErrNothingToRevert, got %v", err)
	}
	if w.writes != writes {
		t.Error("Second revert wrote to the field")
	}
}

func TestSnapshotSingleSlot(t *testing.T) {
	gen := &recordingGenerator{response: "changed"}
	w := newMemoryWriter()
	o := New(gen, w)
	ctx := context.Background()

	if _, err := o.Execute(ctx, Request{Action: mustLookup(t, "proofread"), Content: "first A", Field: contentA}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Execute(ctx, Request{Action: mustLookup(t, "proofread"), Content: "first B", Field: contentB}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Execute(ctx, Request{Action: mustLookup(t, "proofread"), Content: "changed", Field: contentA}); err != nil {
		t.Fatal(err)
	}

	snap, ok := o.Snapshot()
	if !ok || snap.Field != contentA || snap.Original != "first A" {
		t.Fatalf("Snapshot = %+v, %v; want the first transform's snapshot", snap, ok)
	}

	if _, err := o.Revert(ctx); err != nil {
		t.Fatal(err)
	}
	if w.get(contentA) != "first A" || w.get(contentB) != "changed" {
		t.Errorf("After revert: A=%q B=%q", w.get(contentA), w.get(contentB))
	}
}

func TestReset(t *testing.T) {
	o := New(&recordingGenerator{response: "x"}, newMemoryWriter())
	if _, err := o.Execute(context.Background(), Request{Action: mustLookup(t, "proofread"), Content: "text", Field: contentA}); err != nil {
		t.Fatal(err)
	}
	o.Reset()
	if _, err := o.Revert(context.Background()); !errors.Is(err, ErrNothingToRevert) {
		t.Errorf("Expected ErrNothingToRevert after Reset, got %v", err)
	}
}

type gatedWriter struct {
	*memoryWriter
	entered chan struct{}
	release chan struct{}
}

func (w *gatedWriter) WriteField(ctx context.Context, field Field, content string) error {
	if w.entered != nil {
		close(w.entered)
		w.entered = nil
		<-w.release
	}
	return w.memoryWriter.WriteField(ctx, field, content)
}

func TestRevertDoesNotBlockObservers(t *testing.T) {
	w := &gatedWriter{memoryWriter: newMemoryWriter()}
	o := New(&recordingGenerator{response: "changed"}, w)
	ctx := context.Background()

	if _, err := o.Execute(ctx, Request{Action: mustLookup(t, "proofread"), Content: "original", Field: contentA}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	entered := make(chan struct{})
	w.entered = entered
	w.release = make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		_, err := o.Revert(ctx)
		errc <- err
	}()
	<-entered

	observed := make(chan State, 1)
	go func() {
		o.Snapshot()
		observed <- o.State()
	}()
	select {
	case state := <-observed:
		if !state.Processing || state.Field != contentA {
			t.Errorf("State during revert = %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("State() blocked while the revert was being written")
	}

	if _, err := o.Execute(ctx, Request{Action: mustLookup(t, "proofread"), Content: "other", Field: contentB}); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy during revert, got %v", err)
	}
	if _, err := o.Revert(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for a second revert, got %v", err)
	}

	close(w.release)
	if err := <-errc; err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if w.get(contentA) != "original" {
		t.Errorf("Reverted content = %q, want %q", w.get(contentA), "original")
	}
	if _, ok := o.Snapshot(); ok {
		t.Error("Snapshot still held after revert")
	}
	if o.State().Processing {
		t.Error("State not idle after revert")
	}
}
