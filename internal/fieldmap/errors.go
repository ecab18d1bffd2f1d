package fieldmap

import "fmt"

type Kind string

const (
	KindMissingField             Kind = "missing_field"
	KindDuplicateFieldAssignment Kind = "duplicate_field_assignment"
	KindContentTypeNotFound      Kind = "content_type_not_found"
	KindFieldNotFound            Kind = "field_not_found"
	KindFieldTypeMismatch        Kind = "field_type_mismatch"
)

// Sentinels for errors.Is; a *ValidationError matches the sentinel of the same Kind.
var (
	ErrMissingField             = &ValidationError{Kind: KindMissingField}
	ErrDuplicateFieldAssignment = &ValidationError{Kind: KindDuplicateFieldAssignment}
	ErrContentTypeNotFound      = &ValidationError{Kind: KindContentTypeNotFound}
	ErrFieldNotFound            = &ValidationError{Kind: KindFieldNotFound}
	ErrFieldTypeMismatch        = &ValidationError{Kind: KindFieldTypeMismatch}
)

// ValidationError rejects a mapping before any remote call is made.
type ValidationError struct {
	Kind Kind
	// Field is the parameter name at fault, e.g. "urlFieldId".
	Field         string
	FieldID       string
	FieldType     string
	ContentTypeID string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("%s: %s is required", e.Kind, e.Field)
	case KindDuplicateFieldAssignment:
		return fmt.Sprintf("%s: field %q is assigned more than once", e.Kind, e.FieldID)
	case KindContentTypeNotFound:
		return fmt.Sprintf("%s: content type %q does not exist", e.Kind, e.ContentTypeID)
	case KindFieldNotFound:
		return fmt.Sprintf("%s: content type %q has no field %q", e.Kind, e.ContentTypeID, e.FieldID)
	case KindFieldTypeMismatch:
		return fmt.Sprintf("%s: field %q of type %s cannot hold the %s", e.Kind, e.FieldID, e.FieldType, fieldLabel(e.Field))
	}
	return string(e.Kind)
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

// Message is the text shown to the editor.
func (e *ValidationError) Message() string {
	switch e.Kind {
	case KindMissingField:
		if e.Field == "contentTypeId" {
			return "Select a content type."
		}
		return "Assign a field for the experience " + fieldLabel(e.Field) + "."
	case KindDuplicateFieldAssignment:
		return "Each field can only be used once. Choose different fields for the title, URL and embed code."
	case KindContentTypeNotFound:
		return fmt.Sprintf("The content type %q no longer exists. Select another content type.", e.ContentTypeID)
	case KindFieldNotFound:
		return fmt.Sprintf("The content type %q has no field %q.", e.ContentTypeID, e.FieldID)
	case KindFieldTypeMismatch:
		if e.Field == "embedCodeFieldId" {
			return fmt.Sprintf("The field %q cannot hold the experience embed code. Choose a short or long text field.", e.FieldID)
		}
		return fmt.Sprintf("The field %q cannot hold the experience %s. Choose a short text field.", e.FieldID, fieldLabel(e.Field))
	}
	return "The configuration is invalid."
}

func fieldLabel(param string) string {
	switch param {
	case "titleFieldId":
		return "title"
	case "urlFieldId":
		return "URL"
	case "embedCodeFieldId":
		return "embed code"
	}
	return param
}
