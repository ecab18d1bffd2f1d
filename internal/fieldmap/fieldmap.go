// Package fieldmap holds the installation parameters of the app and the pure rules deciding
// whether a content type and field mapping can be saved.
package fieldmap

import (
	"strings"
)

// CreateDefault is the content type selection meaning "create the default content type".
const CreateDefault = "__create_default__"

// Parameters are the installation parameters persisted by the host platform.
type Parameters struct {
	ContentTypeID    string `json:"contentTypeId"`
	TitleFieldID     string `json:"titleFieldId"`
	URLFieldID       string `json:"urlFieldId"`
	EmbedCodeFieldID string `json:"embedCodeFieldId"`
}

// Normalize trims surrounding whitespace from every id.
func (p Parameters) Normalize() Parameters {
	return Parameters{
		ContentTypeID:    strings.TrimSpace(p.ContentTypeID),
		TitleFieldID:     strings.TrimSpace(p.TitleFieldID),
		URLFieldID:       strings.TrimSpace(p.URLFieldID),
		EmbedCodeFieldID: strings.TrimSpace(p.EmbedCodeFieldID),
	}
}

// Complete reports whether all four ids are set.
func (p Parameters) Complete() bool {
	p = p.Normalize()
	return p.ContentTypeID != "" && p.TitleFieldID != "" && p.URLFieldID != "" && p.EmbedCodeFieldID != ""
}

// CreatesDefault reports whether the content type selection is the CreateDefault sentinel.
func (p Parameters) CreatesDefault() bool {
	return strings.TrimSpace(p.ContentTypeID) == CreateDefault
}

// FieldDescriptor is one field of a content type.
type FieldDescriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Descriptor is a read-only view of a host content type.
type Descriptor struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	DisplayField string            `json:"displayField,omitempty"`
	Fields       []FieldDescriptor `json:"fields"`
	// Unpublished marks a content type that only exists as a draft. Entries cannot be created
	// for it.
	Unpublished bool `json:"unpublished,omitempty"`
}

// Field returns the field with the given id.
func (d Descriptor) Field(id string) (FieldDescriptor, bool) {
	for _, f := range d.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// HasField reports whether the content type has a field with the given id.
func (d Descriptor) HasField(id string) bool {
	_, ok := d.Field(id)
	return ok
}

// Roles of the three mapped fields.
const (
	RoleTitle     = "title"
	RoleURL       = "url"
	RoleEmbedCode = "embedCode"
)

// AcceptsType reports whether a field of fieldType can hold the value written for role. Title
// and URL need short text; the embed code accepts short or long text.
func AcceptsType(role, fieldType string) bool {
	switch fieldType {
	case "Symbol":
		return true
	case "Text":
		return role == RoleEmbedCode
	}
	return false
}

// Find returns the descriptor with the given id.
func Find(descriptors []Descriptor, id string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DefaultContentType names the content type the app creates on request and its fixed fields.
type DefaultContentType struct {
	ID               string
	Name             string
	TitleFieldID     string
	URLFieldID       string
	EmbedCodeFieldID string
}

// NewDefaultContentType returns the standard "Ceros Experience" content type under id.
func NewDefaultContentType(id string) DefaultContentType {
	id = strings.TrimSpace(id)
	if id == "" {
		id = "cerosExperience"
	}
	return DefaultContentType{
		ID:               id,
		Name:             "Ceros Experience",
		TitleFieldID:     "title",
		URLFieldID:       "url",
		EmbedCodeFieldID: "embedCode",
	}
}

// Mapping returns the installation parameters pointing at the default content type.
func (d DefaultContentType) Mapping() Parameters {
	return Parameters{
		ContentTypeID:    d.ID,
		TitleFieldID:     d.TitleFieldID,
		URLFieldID:       d.URLFieldID,
		EmbedCodeFieldID: d.EmbedCodeFieldID,
	}
}

// Validate checks a candidate mapping against the fetched content types. It returns nil or a
// *ValidationError. The CreateDefault selection is always valid because its field ids are
// replaced by the default mapping on save.
func Validate(p Parameters, descriptors []Descriptor) error {
	p = p.Normalize()
	if p.ContentTypeID == CreateDefault {
		return nil
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"contentTypeId", p.ContentTypeID},
		{"titleFieldId", p.TitleFieldID},
		{"urlFieldId", p.URLFieldID},
		{"embedCodeFieldId", p.EmbedCodeFieldID},
	} {
		if f.value == "" {
			return &ValidationError{Kind: KindMissingField, Field: f.name}
		}
	}

	switch {
	case p.TitleFieldID == p.URLFieldID:
		return &ValidationError{Kind: KindDuplicateFieldAssignment, Field: "urlFieldId", FieldID: p.URLFieldID}
	case p.TitleFieldID == p.EmbedCodeFieldID:
		return &ValidationError{Kind: KindDuplicateFieldAssignment, Field: "embedCodeFieldId", FieldID: p.EmbedCodeFieldID}
	case p.URLFieldID == p.EmbedCodeFieldID:
		return &ValidationError{Kind: KindDuplicateFieldAssignment, Field: "embedCodeFieldId", FieldID: p.EmbedCodeFieldID}
	}

	if len(descriptors) == 0 {
		return nil
	}
	d, ok := Find(descriptors, p.ContentTypeID)
	if !ok {
		return &ValidationError{Kind: KindContentTypeNotFound, ContentTypeID: p.ContentTypeID}
	}
	for _, f := range []struct {
		name  string
		role  string
		value string
	}{
		{"titleFieldId", RoleTitle, p.TitleFieldID},
		{"urlFieldId", RoleURL, p.URLFieldID},
		{"embedCodeFieldId", RoleEmbedCode, p.EmbedCodeFieldID},
	} {
		field, ok := d.Field(f.value)
		if !ok {
			return &ValidationError{Kind: KindFieldNotFound, Field: f.name, FieldID: f.value, ContentTypeID: d.ID}
		}
		if !AcceptsType(f.role, field.Type) {
			return &ValidationError{Kind: KindFieldTypeMismatch, Field: f.name, FieldID: f.value, FieldType: field.Type, ContentTypeID: d.ID}
		}
	}
	return nil
}
