package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/ceros-embed/ceros-embed/internal/entryeditor"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
)

type memoryParams struct{ params fieldmap.Parameters }

func (m *memoryParams) LoadParameters(context.Context) (fieldmap.Parameters, error) {
	return m.params, nil
}

func (m *memoryParams) SaveParameters(_ context.Context, p fieldmap.Parameters) error {
	m.params = p
	return nil
}

type listedTypes []fieldmap.Descriptor

func (l listedTypes) ContentTypes(context.Context) ([]fieldmap.Descriptor, error) { return l, nil }

type recordingProvisioner struct{ registered []string }

func (r *recordingProvisioner) EnsureDefaultContentType(context.Context) (fieldmap.Parameters, error) {
	return fieldmap.NewDefaultContentType("cerosExperience").Mapping(), nil
}

func (r *recordingProvisioner) EnsureEditorRegistration(_ context.Context, id string) (bool, error) {
	r.registered = append(r.registered, id)
	return true, nil
}

func newTestScreen(t *testing.T) (*configscreen.Screen, *memoryParams, *recordingProvisioner) {
	t.Helper()
	store := &memoryParams{}
	prov := &recordingProvisioner{}
	types := listedTypes{{
		ID:   "article",
		Name: "Article",
		Fields: []fieldmap.FieldDescriptor{
			{ID: "headline", Type: "Symbol"},
			{ID: "link", Type: "Symbol"},
			{ID: "embed", Type: "Text"},
		},
	}}
	screen, err := configscreen.New(store, types, prov, fieldmap.NewDefaultContentType("cerosExperience"), nil)
	if err != nil {
		t.Fatalf("configscreen.New error: %v", err)
	}
	return screen, store, prov
}

func resetConfigureFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		configureContentType, configureTitleField, configureURLField, configureEmbedField = "", "", "", ""
		configureCreateDefault, configureNoAssign, configureDryRun = false, false, false
	}
	reset()
	t.Cleanup(reset)
}

func TestConfigureDraft(t *testing.T) {
	resetConfigureFlags(t)

	configureCreateDefault = true
	draft, err := configureDraft()
	if err != nil {
		t.Fatalf("configureDraft error: %v", err)
	}
	if !draft.Parameters.CreatesDefault() || draft.AssignEditor != nil {
		t.Fatalf("draft = %+v", draft)
	}

	configureContentType = "article"
	if _, err := configureDraft(); err == nil {
		t.Fatal("expected error for --create-default with --content-type")
	}

	configureCreateDefault = false
	configureNoAssign = true
	draft, err = configureDraft()
	if err != nil {
		t.Fatalf("configureDraft error: %v", err)
	}
	if draft.Parameters.ContentTypeID != "article" || draft.AssignEditor == nil || *draft.AssignEditor {
		t.Fatalf("draft = %+v", draft)
	}
}

func TestRunConfigureSavesMapping(t *testing.T) {
	screen, store, prov := newTestScreen(t)
	draft := configscreen.Draft{Parameters: fieldmap.Parameters{
		ContentTypeID: "article", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "embed",
	}}

	var out bytes.Buffer
	if err := runConfigure(context.Background(), &out, screen, draft, false); err != nil {
		t.Fatalf("runConfigure error: %v", err)
	}
	if store.params != draft.Parameters {
		t.Fatalf("saved = %+v", store.params)
	}
	if len(prov.registered) != 1 || prov.registered[0] != "article" {
		t.Fatalf("registered = %v", prov.registered)
	}
	if !strings.Contains(out.String(), "configured content type article") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunConfigureValidationIsUsageError(t *testing.T) {
	screen, store, _ := newTestScreen(t)
	draft := configscreen.Draft{Parameters: fieldmap.Parameters{
		ContentTypeID: "article", TitleFieldID: "headline", URLFieldID: "headline", EmbedCodeFieldID: "embed",
	}}

	err := runConfigure(context.Background(), &bytes.Buffer{}, screen, draft, false)
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != 2 {
		t.Fatalf("err = %v, want usage error", err)
	}
	if store.params != (fieldmap.Parameters{}) {
		t.Fatalf("params saved on validation failure: %+v", store.params)
	}
}

func TestRunConfigureDryRunDoesNotSave(t *testing.T) {
	screen, store, prov := newTestScreen(t)
	draft := configscreen.Draft{Parameters: fieldmap.Parameters{
		ContentTypeID: "article", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "embed",
	}}

	var out bytes.Buffer
	if err := runConfigure(context.Background(), &out, screen, draft, true); err != nil {
		t.Fatalf("runConfigure error: %v", err)
	}
	if store.params != (fieldmap.Parameters{}) || len(prov.registered) != 0 {
		t.Fatalf("dry run had side effects: %+v %v", store.params, prov.registered)
	}
	if !strings.Contains(out.String(), "mapping is valid") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestPrintView(t *testing.T) {
	var out bytes.Buffer
	v := entryeditor.View{State: entryeditor.Linked, Title: "Demo", URL: "https://view.ceros.com/a/b"}
	if err := printView(&out, v, false); err != nil {
		t.Fatalf("printView error: %v", err)
	}
	if !strings.Contains(out.String(), "state: linked") || !strings.Contains(out.String(), "title: Demo") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	if err := printView(&out, entryeditor.View{State: entryeditor.Unlinked}, true); err != nil {
		t.Fatalf("printView error: %v", err)
	}
	if !strings.Contains(out.String(), `"state": "unlinked"`) {
		t.Fatalf("json output = %q", out.String())
	}
}
