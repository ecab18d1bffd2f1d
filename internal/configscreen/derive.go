package configscreen

import (
	"sort"
	"strings"

	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
)

// Draft is the in-progress configuration edited on the configuration screen.
type Draft struct {
	Parameters fieldmap.Parameters `json:"parameters"`
	// AssignEditor is the editor-registration toggle. Nil means the editor has not touched it
	// and the derived default applies.
	AssignEditor *bool `json:"assignEditor,omitempty"`
}

// Derived is the state computed from a draft and the fetched content types.
type Derived struct {
	SelectedType *fieldmap.Descriptor `json:"selectedType,omitempty"`
	AssignEditor bool                 `json:"assignEditor"`
	// AssignEditorLocked is set when the toggle cannot be turned off.
	AssignEditorLocked bool  `json:"assignEditorLocked"`
	Err                error `json:"-"`
}

// Derive recomputes the selected-type cache and the editor-assignment flag from scratch:
//   - nothing selected: no cached type, no editor assignment
//   - CreateDefault: no cached type, editor assignment forced on
//   - a content type id: cached descriptor and editor assignment on unless toggled off; an id
//     missing from a loaded (non-empty) descriptor list is ContentTypeNotFound
func Derive(draft Draft, descriptors []fieldmap.Descriptor) Derived {
	id := strings.TrimSpace(draft.Parameters.ContentTypeID)
	switch {
	case id == "":
		return Derived{}
	case id == fieldmap.CreateDefault:
		return Derived{AssignEditor: true, AssignEditorLocked: true}
	}

	d, ok := fieldmap.Find(descriptors, id)
	if !ok {
		if len(descriptors) > 0 {
			return Derived{Err: &fieldmap.ValidationError{Kind: fieldmap.KindContentTypeNotFound, ContentTypeID: id}}
		}
		return Derived{AssignEditor: assignEditor(draft)}
	}
	return Derived{SelectedType: &d, AssignEditor: assignEditor(draft)}
}

func assignEditor(draft Draft) bool {
	if draft.AssignEditor == nil {
		return true
	}
	return *draft.AssignEditor
}

// Option is one entry of the content type picker.
type Option struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CreatesDefault bool   `json:"createsDefault,omitempty"`
}

// Options lists the selectable content types sorted by name. Draft content types are left out.
// The CreateDefault option leads the list until the default content type is published.
func Options(descriptors []fieldmap.Descriptor, def fieldmap.DefaultContentType) []Option {
	out := make([]Option, 0, len(descriptors)+1)
	for _, d := range descriptors {
		if d.Unpublished {
			continue
		}
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = d.ID
		}
		out = append(out, Option{ID: d.ID, Name: name})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	if !DefaultProvisioned(descriptors, def) {
		out = append([]Option{{
			ID:             fieldmap.CreateDefault,
			Name:           "Create new content type: " + def.Name,
			CreatesDefault: true,
		}}, out...)
	}
	return out
}

// FieldOptions lists the fields of the selected content type that can hold a value of the
// given role.
func FieldOptions(d fieldmap.Descriptor, role string) []fieldmap.FieldDescriptor {
	var out []fieldmap.FieldDescriptor
	for _, f := range d.Fields {
		if fieldmap.AcceptsType(role, f.Type) {
			out = append(out, f)
		}
	}
	return out
}

// DefaultProvisioned reports whether the default content type exists and is published. A draft
// left behind by a failed publish does not count.
func DefaultProvisioned(descriptors []fieldmap.Descriptor, def fieldmap.DefaultContentType) bool {
	d, ok := fieldmap.Find(descriptors, def.ID)
	return ok && !d.Unpublished
}
