package host

import (
	"context"
	"errors"

	"github.com/ceros-embed/ceros-embed/internal/cma"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"golang.org/x/sync/singleflight"
)

// ContentTypeLister lists every content type of the environment.
type ContentTypeLister interface {
	ListContentTypes(ctx context.Context) ([]cma.ContentType, error)
}

// ContentTypes lists content types as descriptors. Concurrent calls share one request.
type ContentTypes struct {
	api   ContentTypeLister
	group singleflight.Group
}

func NewContentTypes(api ContentTypeLister) (*ContentTypes, error) {
	if api == nil {
		return nil, errors.New("content type api is required")
	}
	return &ContentTypes{api: api}, nil
}

// ContentTypes returns descriptors for every content type. The shared request is detached from
// any single caller's cancellation; each caller stops waiting when its own ctx is done.
func (c *ContentTypes) ContentTypes(ctx context.Context) ([]fieldmap.Descriptor, error) {
	ch := c.group.DoChan("content_types", func() (any, error) {
		cts, err := c.api.ListContentTypes(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return Descriptors(cts), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]fieldmap.Descriptor), nil
	}
}

// Descriptors converts content types, dropping omitted and disabled fields.
func Descriptors(cts []cma.ContentType) []fieldmap.Descriptor {
	out := make([]fieldmap.Descriptor, 0, len(cts))
	for _, ct := range cts {
		d := fieldmap.Descriptor{
			ID:           ct.Sys.ID,
			Name:         ct.Name,
			DisplayField: ct.DisplayField,
			Fields:       make([]fieldmap.FieldDescriptor, 0, len(ct.Fields)),
			Unpublished:  !ct.IsPublished(),
		}
		for _, f := range ct.Fields {
			if f.Omitted || f.Disabled {
				continue
			}
			d.Fields = append(d.Fields, fieldmap.FieldDescriptor{ID: f.ID, Name: f.Name, Type: f.Type, Required: f.Required})
		}
		out = append(out, d)
	}
	return out
}
