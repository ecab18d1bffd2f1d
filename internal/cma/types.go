package cma

import "encoding/json"

// Sys is the system metadata block attached to every management API resource.
type Sys struct {
	ID               string `json:"id,omitempty"`
	Type             string `json:"type,omitempty"`
	Version          int    `json:"version,omitempty"`
	PublishedVersion int    `json:"publishedVersion,omitempty"`
	ContentType      *Link  `json:"contentType,omitempty"`
}

type Link struct {
	Sys LinkSys `json:"sys"`
}

type LinkSys struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	LinkType string `json:"linkType,omitempty"`
}

// Field describes one field of a content type.
type Field struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	Localized bool   `json:"localized"`
	Disabled  bool   `json:"disabled,omitempty"`
	Omitted   bool   `json:"omitted,omitempty"`
}

// ContentTypeDraft is the writable part of a content type.
type ContentTypeDraft struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	DisplayField string  `json:"displayField,omitempty"`
	Fields       []Field `json:"fields"`
}

type ContentType struct {
	Sys          Sys     `json:"sys"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	DisplayField string  `json:"displayField,omitempty"`
	Fields       []Field `json:"fields"`
}

// IsPublished reports whether the content type has a published version usable by entries.
func (ct ContentType) IsPublished() bool {
	return ct.Sys.PublishedVersion > 0
}

// Editor is one entry-editor widget registration.
type Editor struct {
	WidgetNamespace string         `json:"widgetNamespace"`
	WidgetID        string         `json:"widgetId"`
	Disabled        bool           `json:"disabled,omitempty"`
	Settings        map[string]any `json:"settings,omitempty"`
}

// EditorInterface holds the widget configuration of a content type. Controls, sidebar and
// layout are carried through untouched on update.
type EditorInterface struct {
	Sys          Sys             `json:"sys"`
	Controls     json.RawMessage `json:"controls,omitempty"`
	Sidebar      json.RawMessage `json:"sidebar,omitempty"`
	EditorLayout json.RawMessage `json:"editorLayout,omitempty"`
	Editors      []Editor        `json:"editors,omitempty"`
}

// Entry is an entry with localized field values: fields[fieldID][locale] = value.
type Entry struct {
	Sys    Sys                       `json:"sys"`
	Fields map[string]map[string]any `json:"fields"`
}

// ContentTypeID returns the id of the entry's content type.
func (e Entry) ContentTypeID() string {
	if e.Sys.ContentType == nil {
		return ""
	}
	return e.Sys.ContentType.Sys.ID
}

// AppInstallation is an app's installation record in one environment.
type AppInstallation struct {
	Sys        Sys             `json:"sys"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

type collection[T any] struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Items []T `json:"items"`
}
