// Package configscreen implements the configuration screen: it turns the editor's content type
// and field selections into validated installation parameters, provisioning the content model
// on the way.
package configscreen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/ceros-embed/ceros-embed/internal/logging"
	"github.com/ceros-embed/ceros-embed/internal/metrics"
	"github.com/ceros-embed/ceros-embed/internal/provision"
	"golang.org/x/sync/errgroup"
)

// ParameterStore reads and replaces the persisted installation parameters.
type ParameterStore interface {
	LoadParameters(ctx context.Context) (fieldmap.Parameters, error)
	SaveParameters(ctx context.Context, p fieldmap.Parameters) error
}

// ContentTypeSource lists the host content types.
type ContentTypeSource interface {
	ContentTypes(ctx context.Context) ([]fieldmap.Descriptor, error)
}

// Provisioner creates the default content type and registers the app as entry editor.
type Provisioner interface {
	EnsureDefaultContentType(ctx context.Context) (fieldmap.Parameters, error)
	EnsureEditorRegistration(ctx context.Context, contentTypeID string) (bool, error)
}

// Result is what the configure hook hands back to the host.
type Result struct {
	Parameters  fieldmap.Parameters `json:"parameters"`
	TargetState json.RawMessage     `json:"targetState,omitempty"`
}

// State is everything the configuration screen renders.
type State struct {
	Parameters   fieldmap.Parameters   `json:"parameters"`
	Configured   bool                  `json:"configured"`
	ContentTypes []fieldmap.Descriptor `json:"contentTypes"`
	Options      []Option              `json:"options"`
	Derived      Derived               `json:"derived"`
}

// LoadError wraps a failure to read the current configuration or content types.
type LoadError struct {
	What string
	Err  error
}

func (e *LoadError) Error() string { return "loading " + e.What + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// SaveError wraps a failure to persist the accepted parameters.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string { return "saving installation parameters: " + e.Err.Error() }
func (e *SaveError) Unwrap() error { return e.Err }

// Screen backs the configuration screen. It is safe for concurrent use.
type Screen struct {
	store  ParameterStore
	types  ContentTypeSource
	prov   Provisioner
	def    fieldmap.DefaultContentType
	logger *slog.Logger
}

// New creates a Screen. A nil logger discards log output.
func New(store ParameterStore, types ContentTypeSource, prov Provisioner, def fieldmap.DefaultContentType, logger *slog.Logger) (*Screen, error) {
	if store == nil || types == nil || prov == nil {
		return nil, errors.New("configscreen: store, content types and provisioner are required")
	}
	return &Screen{
		store:  store,
		types:  types,
		prov:   prov,
		def:    def,
		logger: logging.OrDiscard(logger).With("component", "configscreen"),
	}, nil
}

// Load reads the current parameters and the content types concurrently.
func (s *Screen) Load(ctx context.Context) (State, error) {
	var (
		params      fieldmap.Parameters
		descriptors []fieldmap.Descriptor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.LoadParameters(gctx)
		if err != nil {
			return &LoadError{What: "installation parameters", Err: err}
		}
		params = p
		return nil
	})
	g.Go(func() error {
		d, err := s.types.ContentTypes(gctx)
		if err != nil {
			return &LoadError{What: "content types", Err: err}
		}
		descriptors = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return State{}, err
	}

	return State{
		Parameters:   params,
		Configured:   params.Complete(),
		ContentTypes: descriptors,
		Options:      Options(descriptors, s.def),
		Derived:      Derive(Draft{Parameters: params}, descriptors),
	}, nil
}

// Preview derives the screen state for a draft without side effects. Derived.Err holds the
// first mapping error in fieldmap.Validate order.
func (s *Screen) Preview(ctx context.Context, draft Draft) (Derived, error) {
	descriptors, err := s.types.ContentTypes(ctx)
	if err != nil {
		return Derived{}, &LoadError{What: "content types", Err: err}
	}
	derived := Derive(draft, descriptors)
	if err := fieldmap.Validate(draft.Parameters, descriptors); err != nil {
		derived.Err = err
	}
	return derived, nil
}

// Configure is the save hook. It validates the draft, creates the default content type when
// requested, registers the app as entry editor when the flag is set and only then persists the
// parameters. Any failure leaves the stored configuration untouched.
func (s *Screen) Configure(ctx context.Context, draft Draft, targetState json.RawMessage) (Result, error) {
	res, err := s.configure(ctx, draft, targetState)
	if err != nil {
		metrics.ConfigureTotal.WithLabelValues(metrics.StatusFailed).Inc()
		s.logger.Warn("configuration rejected", "content_type_id", draft.Parameters.ContentTypeID, "error", err)
		return Result{}, err
	}
	metrics.ConfigureTotal.WithLabelValues(metrics.StatusOK).Inc()
	s.logger.Info("configuration saved", "content_type_id", res.Parameters.ContentTypeID)
	return res, nil
}

func (s *Screen) configure(ctx context.Context, draft Draft, targetState json.RawMessage) (Result, error) {
	params := draft.Parameters.Normalize()
	draft.Parameters = params

	descriptors, err := s.types.ContentTypes(ctx)
	if err != nil {
		return Result{}, &LoadError{What: "content types", Err: err}
	}

	if err := fieldmap.Validate(params, descriptors); err != nil {
		return Result{}, err
	}
	derived := Derive(draft, descriptors)
	if derived.Err != nil {
		return Result{}, derived.Err
	}

	if params.CreatesDefault() {
		if DefaultProvisioned(descriptors, s.def) {
			// Stale picker: the default type was published since the options were rendered.
			params = s.def.Mapping()
			return s.finish(ctx, params, derived, targetState)
		}
		mapping, err := s.prov.EnsureDefaultContentType(ctx)
		if err != nil {
			return Result{}, err
		}
		params = mapping
	}
	return s.finish(ctx, params, derived, targetState)
}

func (s *Screen) finish(ctx context.Context, params fieldmap.Parameters, derived Derived, targetState json.RawMessage) (Result, error) {
	if derived.AssignEditor {
		if _, err := s.prov.EnsureEditorRegistration(ctx, params.ContentTypeID); err != nil {
			return Result{}, err
		}
	}

	if err := s.store.SaveParameters(ctx, params); err != nil {
		return Result{}, &SaveError{Err: err}
	}
	return Result{Parameters: params, TargetState: targetState}, nil
}

// UserMessage turns a Load, Preview or Configure error into the text shown on the screen.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var vErr *fieldmap.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message()
	}
	var pErr *provision.ProvisioningError
	if errors.As(err, &pErr) {
		return pErr.Message()
	}
	var lErr *LoadError
	if errors.As(err, &lErr) {
		return fmt.Sprintf("There was an error loading the %s. Please reload the page.", lErr.What)
	}
	var sErr *SaveError
	if errors.As(err, &sErr) {
		return "There was an error saving the configuration. Please try again."
	}
	return "Something went wrong. Please try again."
}
