// Package host adapts the management API to the collaborators the configuration screen and
// the entry editor expect from the host platform.
package host

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ceros-embed/ceros-embed/internal/cma"
	"github.com/ceros-embed/ceros-embed/internal/entryeditor"
)

// EntryAPI is the part of the management API used to read and write entries.
type EntryAPI interface {
	GetEntry(ctx context.Context, id string) (cma.Entry, error)
	UpdateEntry(ctx context.Context, entry cma.Entry) (cma.Entry, error)
}

// Entry holds an entry in memory and edits its values in one locale. Save writes all fields
// back with the version the entry was read at.
type Entry struct {
	api    EntryAPI
	locale string

	mu    sync.Mutex
	entry cma.Entry
}

// Entries loads entries for the entry editor in a fixed locale.
type Entries struct {
	API    EntryAPI
	Locale string
}

func (s Entries) LoadEntry(ctx context.Context, id string) (entryeditor.Entry, error) {
	e, err := LoadEntry(ctx, s.API, id, s.Locale)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func LoadEntry(ctx context.Context, api EntryAPI, id, locale string) (*Entry, error) {
	if api == nil {
		return nil, errors.New("entry api is required")
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil, errors.New("locale is required")
	}
	e, err := api.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Fields == nil {
		e.Fields = map[string]map[string]any{}
	}
	return &Entry{api: api, locale: locale, entry: e}, nil
}

func (e *Entry) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entry.Sys.ID
}

func (e *Entry) Version() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entry.Sys.Version
}

func (e *Entry) ContentTypeID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entry.ContentTypeID()
}

// FieldIDs lists the fields holding a value in the editing locale.
func (e *Entry) FieldIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.entry.Fields))
	for id, values := range e.entry.Fields {
		if _, ok := values[e.locale]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (e *Entry) Value(fieldID string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.entry.Fields[fieldID][e.locale]
	return v, ok
}

func (e *Entry) SetValue(fieldID string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	values := e.entry.Fields[fieldID]
	if values == nil {
		values = map[string]any{}
		e.entry.Fields[fieldID] = values
	}
	values[e.locale] = value
}

func (e *Entry) RemoveValue(fieldID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	values, ok := e.entry.Fields[fieldID]
	if !ok {
		return
	}
	delete(values, e.locale)
	if len(values) == 0 {
		delete(e.entry.Fields, fieldID)
	}
}

func (e *Entry) Save(ctx context.Context) error {
	e.mu.Lock()
	snapshot := cloneEntry(e.entry)
	e.mu.Unlock()

	updated, err := e.api.UpdateEntry(ctx, snapshot)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.entry.Sys = updated.Sys
	e.mu.Unlock()
	return nil
}

func cloneEntry(in cma.Entry) cma.Entry {
	out := in
	out.Fields = make(map[string]map[string]any, len(in.Fields))
	for id, values := range in.Fields {
		copied := make(map[string]any, len(values))
		for locale, v := range values {
			copied[locale] = v
		}
		out.Fields[id] = copied
	}
	return out
}
