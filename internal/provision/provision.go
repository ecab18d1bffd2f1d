// Package provision creates the default content type and registers the app as entry editor.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ceros-embed/ceros-embed/internal/cma"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/ceros-embed/ceros-embed/internal/logging"
	"github.com/ceros-embed/ceros-embed/internal/metrics"
)

// WidgetNamespace is the editor namespace of app widgets.
const WidgetNamespace = "app"

// Steps named in provisioning errors.
const (
	StepCreateContentType  = "creating the content type"
	StepPublishContentType = "publishing the content type"
	StepAssignEditor       = "assigning the entry editor"
)

// ContentModelAPI is the subset of the management API the provisioner calls.
type ContentModelAPI interface {
	GetContentType(ctx context.Context, id string) (cma.ContentType, error)
	CreateContentTypeWithID(ctx context.Context, id string, draft cma.ContentTypeDraft) (cma.ContentType, error)
	PublishContentType(ctx context.Context, id string, version int) (cma.ContentType, error)
	GetEditorInterface(ctx context.Context, contentTypeID string) (cma.EditorInterface, error)
	UpdateEditorInterface(ctx context.Context, contentTypeID string, ei cma.EditorInterface) (cma.EditorInterface, error)
}

// ProvisioningError reports which remote step failed.
type ProvisioningError struct {
	Step          string
	ContentTypeID string
	Err           error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Step, e.ContentTypeID, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Message is the text shown to the editor.
func (e *ProvisioningError) Message() string {
	return "There was an error " + e.Step + ". Please try again."
}

// Provisioner performs the content model changes requested from the configuration screen.
type Provisioner struct {
	api    ContentModelAPI
	appID  string
	def    fieldmap.DefaultContentType
	logger *slog.Logger
}

// New creates a Provisioner registering appID as entry editor. A nil logger discards log output.
func New(api ContentModelAPI, appID string, def fieldmap.DefaultContentType, logger *slog.Logger) (*Provisioner, error) {
	if api == nil {
		return nil, errors.New("content model api is required")
	}
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, errors.New("app id is required")
	}
	if strings.TrimSpace(def.ID) == "" {
		return nil, errors.New("default content type id is required")
	}
	return &Provisioner{
		api:    api,
		appID:  appID,
		def:    def,
		logger: logging.OrDiscard(logger).With("component", "provision"),
	}, nil
}

// Default returns the default content type this provisioner creates.
func (p *Provisioner) Default() fieldmap.DefaultContentType {
	return p.def
}

// DefaultDraft is the content type definition created for the default content type.
func DefaultDraft(def fieldmap.DefaultContentType) cma.ContentTypeDraft {
	return cma.ContentTypeDraft{
		Name:         def.Name,
		Description:  "An interactive experience embedded from Ceros.",
		DisplayField: def.TitleFieldID,
		Fields: []cma.Field{
			{ID: def.TitleFieldID, Name: "Title", Type: "Symbol", Required: true},
			{ID: def.URLFieldID, Name: "Experience URL", Type: "Symbol", Required: true},
			{ID: def.EmbedCodeFieldID, Name: "Embed Code", Type: "Text"},
		},
	}
}

// EnsureDefaultContentType makes sure the default content type exists and is published, then
// returns its field mapping. A draft left behind by an earlier failed publish is published
// instead of being created again.
func (p *Provisioner) EnsureDefaultContentType(ctx context.Context) (fieldmap.Parameters, error) {
	id := p.def.ID
	ct, err := p.api.GetContentType(ctx, id)
	switch {
	case err == nil && ct.IsPublished():
		p.logger.Debug("default content type already published", "content_type_id", id)
		return p.def.Mapping(), nil
	case err == nil:
		p.logger.Info("publishing existing default content type draft", "content_type_id", id)
	case cma.IsNotFound(err):
		ct, err = p.api.CreateContentTypeWithID(ctx, id, DefaultDraft(p.def))
		if err != nil {
			return fieldmap.Parameters{}, p.fail(StepCreateContentType, id, err)
		}
		metrics.ProvisioningStepsTotal.WithLabelValues("create_content_type", metrics.StatusOK).Inc()
	default:
		return fieldmap.Parameters{}, p.fail(StepCreateContentType, id, err)
	}

	version := ct.Sys.Version
	if version == 0 {
		version = 1
	}
	if _, err := p.api.PublishContentType(ctx, id, version); err != nil {
		return fieldmap.Parameters{}, p.fail(StepPublishContentType, id, err)
	}
	metrics.ProvisioningStepsTotal.WithLabelValues("publish_content_type", metrics.StatusOK).Inc()

	p.logger.Info("default content type published", "content_type_id", id)
	return p.def.Mapping(), nil
}

// EnsureEditorRegistration adds the app to the content type's entry editors unless it is
// already there. It reports whether the editor interface was updated.
func (p *Provisioner) EnsureEditorRegistration(ctx context.Context, contentTypeID string) (bool, error) {
	contentTypeID = strings.TrimSpace(contentTypeID)
	ei, err := p.api.GetEditorInterface(ctx, contentTypeID)
	if err != nil {
		return false, p.fail(StepAssignEditor, contentTypeID, err)
	}

	editors, added := AppendEditor(ei.Editors, cma.Editor{WidgetNamespace: WidgetNamespace, WidgetID: p.appID})
	if !added {
		p.logger.Debug("entry editor already assigned", "content_type_id", contentTypeID)
		return false, nil
	}
	ei.Editors = editors

	if _, err := p.api.UpdateEditorInterface(ctx, contentTypeID, ei); err != nil {
		return false, p.fail(StepAssignEditor, contentTypeID, err)
	}
	metrics.ProvisioningStepsTotal.WithLabelValues("assign_editor", metrics.StatusOK).Inc()
	p.logger.Info("entry editor assigned", "content_type_id", contentTypeID, "app_id", p.appID)
	return true, nil
}

// AppendEditor returns editors with e appended when no registration with the same namespace
// and widget id exists. A nil list is treated as empty.
func AppendEditor(editors []cma.Editor, e cma.Editor) ([]cma.Editor, bool) {
	for _, existing := range editors {
		if existing.WidgetNamespace == e.WidgetNamespace && existing.WidgetID == e.WidgetID {
			return editors, false
		}
	}
	out := make([]cma.Editor, 0, len(editors)+1)
	out = append(out, editors...)
	return append(out, e), true
}

func (p *Provisioner) fail(step, contentTypeID string, err error) error {
	metrics.ProvisioningStepsTotal.WithLabelValues(stepLabel(step), metrics.StatusFailed).Inc()
	p.logger.Error("provisioning failed", "step", step, "content_type_id", contentTypeID, "error", err)
	return &ProvisioningError{Step: step, ContentTypeID: contentTypeID, Err: err}
}

func stepLabel(step string) string {
	switch step {
	case StepCreateContentType:
		return "create_content_type"
	case StepPublishContentType:
		return "publish_content_type"
	case StepAssignEditor:
		return "assign_editor"
	}
	return "unknown"
}
