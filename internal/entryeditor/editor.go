// Package entryeditor implements the per-entry link lifecycle: linking an experience to an entry,
// unlinking it and refreshing its embed code.
package entryeditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/ceros-embed/ceros-embed/internal/logging"
	"github.com/ceros-embed/ceros-embed/internal/metrics"
	"github.com/ceros-embed/ceros-embed/internal/oembed"
)

type State string

const (
	Unlinked   State = "unlinked"
	Linking    State = "linking"
	Linked     State = "linked"
	Refreshing State = "refreshing"
	Unlinking  State = "unlinking"
)

// Shown is the state the editor displays. Unlinking is shown as Unlinked before the save
// resolves.
func (s State) Shown() State {
	switch s {
	case Linking, Unlinking:
		return Unlinked
	case Refreshing:
		return Linked
	}
	return s
}

// Entry is the host's view of a single entry. Field values are the entry's values in the
// editing locale. Implementations must be safe for concurrent use.
type Entry interface {
	ContentTypeID() string
	FieldIDs() []string
	Value(fieldID string) (any, bool)
	SetValue(fieldID string, value any)
	RemoveValue(fieldID string)
	Save(ctx context.Context) error
}

// Fetcher resolves an experience URL to its metadata.
type Fetcher interface {
	Fetch(ctx context.Context, experienceURL string) (oembed.Metadata, error)
}

// View is the render state of an entry editor.
type View struct {
	State        State  `json:"state"`
	Busy         bool   `json:"busy"`
	Title        string `json:"title,omitempty"`
	URL          string `json:"url,omitempty"`
	EmbedCode    string `json:"embedCode,omitempty"`
	InvalidURL   bool   `json:"invalidUrl,omitempty"`
	RefreshError bool   `json:"refreshError,omitempty"`
	Message      string `json:"message,omitempty"`
}

type Editor struct {
	entry   Entry
	params  fieldmap.Parameters
	fetcher Fetcher
	logger  *slog.Logger

	// op is held for the duration of a link, unlink or refresh.
	op sync.Mutex

	mu           sync.RWMutex
	state        State
	invalidURL   bool
	refreshError bool
	lastErr      error
}

// Load checks that the app is configured for the entry and computes the initial state: Linked
// iff the mapped title and embed code fields both hold a value.
func Load(entry Entry, params fieldmap.Parameters, fetcher Fetcher, logger *slog.Logger) (*Editor, error) {
	if entry == nil || fetcher == nil {
		return nil, errors.New("entryeditor: entry and fetcher are required")
	}
	params = params.Normalize()
	if !params.Complete() || params.CreatesDefault() {
		return nil, ErrNotConfigured
	}
	if got := entry.ContentTypeID(); got != params.ContentTypeID {
		return nil, fmt.Errorf("%w: entry is %q, app is configured for %q", ErrContentTypeMismatch, got, params.ContentTypeID)
	}

	e := &Editor{
		entry:   entry,
		params:  params,
		fetcher: fetcher,
		logger:  logging.OrDiscard(logger).With("component", "entryeditor"),
		state:   Unlinked,
	}
	if e.text(params.TitleFieldID) != "" && e.text(params.EmbedCodeFieldID) != "" {
		e.state = Linked
	}
	return e, nil
}

// State returns the current lifecycle state, including transient in-flight states.
func (e *Editor) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Editor) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v := View{
		State:        e.state.Shown(),
		Busy:         e.state != e.state.Shown(),
		InvalidURL:   e.invalidURL,
		RefreshError: e.refreshError,
		Message:      UserMessage(e.lastErr),
	}
	if v.State == Linked {
		v.Title = e.text(e.params.TitleFieldID)
		v.URL = e.text(e.params.URLFieldID)
		v.EmbedCode = e.text(e.params.EmbedCodeFieldID)
	}
	return v
}

// LinkExperience fetches the experience metadata and writes title, URL and embed code into the
// mapped fields. When no metadata is available nothing is written and the editor stays Unlinked
// with the invalid-URL flag set.
func (e *Editor) LinkExperience(ctx context.Context, experienceURL string) error {
	return e.run("link", Unlinked, Linking, func() (State, error) {
		meta, err := e.fetcher.Fetch(ctx, strings.TrimSpace(experienceURL))
		if err != nil {
			e.setFlags(true, false)
			e.logger.Warn("experience metadata unavailable", "url", experienceURL, "error", err)
			return Unlinked, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}

		snap := e.snapshot(e.params.TitleFieldID, e.params.URLFieldID, e.params.EmbedCodeFieldID)
		e.entry.SetValue(e.params.TitleFieldID, meta.Title)
		e.entry.SetValue(e.params.URLFieldID, meta.URL)
		e.entry.SetValue(e.params.EmbedCodeFieldID, meta.HTML)
		if err := e.entry.Save(ctx); err != nil {
			e.restore(snap)
			return Unlinked, &PersistError{Op: "link", Err: err}
		}
		e.setFlags(false, false)
		return Linked, nil
	})
}

// UnlinkExperience removes every field value of the entry, not only the mapped ones. The editor
// shows Unlinked while the save is in flight; if the save fails all values are restored and the
// editor returns to Linked.
func (e *Editor) UnlinkExperience(ctx context.Context) error {
	return e.run("unlink", Linked, Unlinking, func() (State, error) {
		snap := e.snapshot(e.entry.FieldIDs()...)
		for id := range snap {
			e.entry.RemoveValue(id)
		}
		if err := e.entry.Save(ctx); err != nil {
			e.restore(snap)
			return Linked, &PersistError{Op: "unlink", Err: err}
		}
		e.setFlags(false, false)
		return Unlinked, nil
	})
}

// RefreshEmbedCode re-fetches the metadata for the stored URL and overwrites only the embed code.
// On failure the stale embed code stays in place and the refresh-error flag is set.
func (e *Editor) RefreshEmbedCode(ctx context.Context) error {
	return e.run("refresh", Linked, Refreshing, func() (State, error) {
		experienceURL := e.text(e.params.URLFieldID)
		meta, err := e.fetcher.Fetch(ctx, experienceURL)
		if err != nil {
			e.setFlags(false, true)
			e.logger.Warn("embed code refresh failed", "url", experienceURL, "error", err)
			return Linked, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		snap := e.snapshot(e.params.EmbedCodeFieldID)
		e.entry.SetValue(e.params.EmbedCodeFieldID, meta.HTML)
		if err := e.entry.Save(ctx); err != nil {
			e.restore(snap)
			return Linked, &PersistError{Op: "refresh", Err: err}
		}
		e.setFlags(false, false)
		return Linked, nil
	})
}

// run serializes operations and drives the from -> transient -> result transition.
func (e *Editor) run(op string, from, transient State, fn func() (State, error)) error {
	if !e.op.TryLock() {
		metrics.EntryOperationsTotal.WithLabelValues(op, metrics.StatusBusy).Inc()
		return ErrBusy
	}
	defer e.op.Unlock()

	e.mu.Lock()
	if e.state != from {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, state)
	}
	e.state = transient
	e.lastErr = nil
	e.mu.Unlock()

	next, err := fn()

	e.mu.Lock()
	e.state = next
	e.lastErr = err
	e.mu.Unlock()

	if err != nil {
		metrics.EntryOperationsTotal.WithLabelValues(op, metrics.StatusFailed).Inc()
		return err
	}
	metrics.EntryOperationsTotal.WithLabelValues(op, metrics.StatusOK).Inc()
	e.logger.Info("entry updated", "operation", op, "state", string(next))
	return nil
}

func (e *Editor) setFlags(invalidURL, refreshError bool) {
	e.mu.Lock()
	e.invalidURL = invalidURL
	e.refreshError = refreshError
	e.mu.Unlock()
}

func (e *Editor) text(fieldID string) string {
	v, ok := e.entry.Value(fieldID)
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}

type snapshot map[string]fieldValue

type fieldValue struct {
	value any
	set   bool
}

func (e *Editor) snapshot(ids ...string) snapshot {
	snap := make(snapshot, len(ids))
	for _, id := range ids {
		v, ok := e.entry.Value(id)
		snap[id] = fieldValue{value: v, set: ok}
	}
	return snap
}

func (e *Editor) restore(snap snapshot) {
	for id, fv := range snap {
		if fv.set {
			e.entry.SetValue(id, fv.value)
		} else {
			e.entry.RemoveValue(id)
		}
	}
}
