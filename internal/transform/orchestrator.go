package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/takak2166/pagefit/internal/capacity"
	"github.com/takak2166/pagefit/internal/llm"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
)

// DefaultTimeout bounds a single generator call
const DefaultTimeout = 20 * time.Second

const revertLabel = "Revert"

// FieldKind names the editable part of a page
type FieldKind string

const (
	FieldContent FieldKind = "content"
	FieldTitle   FieldKind = "title"
)

// Field identifies one editable field
type Field struct {
	PageID models.PageID
	Kind   FieldKind
}

func (f Field) String() string {
	if f.PageID == "" {
		return ""
	}
	return string(f.PageID) + "/" + string(f.Kind)
}

// FieldWriter is the update channel transforms write their result through.
// Implementations must not call back into the orchestrator.
type FieldWriter interface {
	WriteField(ctx context.Context, field Field, content string) error
}

// State is the observable AI operation state
type State struct {
	Processing bool
	Action     string
	Field      Field
}

// Snapshot holds the content of a field before the first transform applied to it
type Snapshot struct {
	Field    Field
	Original string
}

// Request describes one transform invocation
type Request struct {
	Action   Action
	Content  string
	Field    Field
	Budget   int
	Language string
}

// Orchestrator runs at most one transform at a time and keeps a single
// snapshot for one-shot revert
type Orchestrator struct {
	gen     llm.Generator
	writer  FieldWriter
	timeout time.Duration

	mu       sync.Mutex
	state    State
	snapshot *Snapshot
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithTimeout overrides DefaultTimeout. Non-positive values disable the timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// New creates an orchestrator that generates with gen and writes through writer
func New(gen llm.Generator, writer FieldWriter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:     gen,
		writer:  writer,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current operation state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the outstanding snapshot, if any
func (o *Orchestrator) Snapshot() (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snapshot == nil {
		return Snapshot{}, false
	}
	return *o.snapshot, true
}

// Reset drops the outstanding snapshot without restoring it
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshot = nil
}

// Execute runs req.Action against req.Content and writes the result to
// req.Field. It returns the new field content.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (string, error) {
	action := req.Action
	label := action.Label
	if label == "" {
		label = action.Name
	}

	remaining, captured, err := o.begin(req, label)
	if err != nil {
		logger.Warn("Transform rejected", map[string]interface{}{
			"action": label,
			"field":  req.Field.String(),
			"reason": err.Error(),
		})
		return "", err
	}
	defer o.finish()

	logger.Info("Transform started", map[string]interface{}{
		"action": label,
		"field":  req.Field.String(),
	})

	prompt := action.Prompt(req.Content, PromptOptions{Language: req.Language})
	if action.Additive {
		prompt += fmt.Sprintf("\n\nKeep your response under %d characters.", remaining)
	}

	response, err := o.generate(ctx, prompt)
	if err != nil {
		o.release(captured)
		kind := KindProvider
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		logger.Error("Transform failed", err, map[string]interface{}{
			"action": label,
			"field":  req.Field.String(),
		})
		return "", newActionError(label, kind, err)
	}

	apply := action.Apply
	if apply == nil {
		apply = Replace
	}
	updated := apply(req.Content, response)

	if err := o.writer.WriteField(ctx, req.Field, updated); err != nil {
		o.release(captured)
		logger.Error("Failed to write transform result", err, map[string]interface{}{
			"action": label,
			"field":  req.Field.String(),
		})
		return "", newActionError(label, KindStore, err)
	}

	logger.Info("Transform finished", map[string]interface{}{
		"action": label,
		"field":  req.Field.String(),
		"weight": capacity.Weight(updated),
	})
	return updated, nil
}

// begin validates req and moves the orchestrator to processing. It returns
// the remaining budget and whether this call captured the snapshot.
func (o *Orchestrator) begin(req Request, label string) (int, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Processing {
		return 0, false, newActionError(label, KindValidation, ErrBusy)
	}
	if o.gen == nil {
		return 0, false, newActionError(label, KindProvider, ErrNoGenerator)
	}
	if o.writer == nil || req.Action.Prompt == nil {
		return 0, false, newActionError(label, KindValidation, fmt.Errorf("%w: %s", ErrUnknownAction, label))
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(req.Content)); n < req.Action.MinChars {
		return 0, false, newActionError(label, KindValidation,
			fmt.Errorf("%w: %d characters, need at least %d", ErrTooShort, n, req.Action.MinChars))
	}
	if req.Action.NeedsLanguage && strings.TrimSpace(req.Language) == "" {
		return 0, false, newActionError(label, KindValidation, ErrLanguageRequired)
	}

	remaining := 0
	if req.Action.Additive {
		weight := capacity.Weight(req.Content)
		if weight >= req.Budget {
			return 0, false, newActionError(label, KindValidation,
				fmt.Errorf("%w: weight %d of %d", ErrLimitReached, weight, req.Budget))
		}
		remaining = req.Budget - weight
	}

	o.state = State{Processing: true, Action: label, Field: req.Field}

	captured := false
	if o.snapshot == nil {
		o.snapshot = &Snapshot{Field: req.Field, Original: req.Content}
		captured = true
	}
	return remaining, captured, nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = State{}
}

// release drops a snapshot taken by a transform that then failed
func (o *Orchestrator) release(captured bool) {
	if !captured {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshot = nil
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.gen.Generate(ctx, prompt)
}

// Revert restores the snapshotted field to its original content and clears
// the snapshot. It returns the restored field. The orchestrator reports
// itself as processing while the restore is written.
func (o *Orchestrator) Revert(ctx context.Context) (Field, error) {
	o.mu.Lock()
	if o.state.Processing {
		o.mu.Unlock()
		return Field{}, ErrBusy
	}
	if o.snapshot == nil {
		o.mu.Unlock()
		return Field{}, ErrNothingToRevert
	}
	held := o.snapshot
	snap := *held
	o.state = State{Processing: true, Action: revertLabel, Field: snap.Field}
	o.mu.Unlock()

	defer o.finish()

	if err := o.writer.WriteField(ctx, snap.Field, snap.Original); err != nil {
		return Field{}, fmt.Errorf("failed to revert %s: %w", snap.Field, err)
	}

	o.mu.Lock()
	if o.snapshot == held {
		o.snapshot = nil
	}
	o.mu.Unlock()

	logger.Info("Reverted transform", map[string]interface{}{
		"field": snap.Field.String(),
	})
	return snap.Field, nil
}
