package fieldmap

import (
	"errors"
	"testing"
)

func experienceType() Descriptor {
	return Descriptor{
		ID:   "experience",
		Name: "Experience",
		Fields: []FieldDescriptor{
			{ID: "headline", Type: "Symbol"},
			{ID: "link", Type: "Symbol"},
			{ID: "embed", Type: "Text"},
			{ID: "notes", Type: "Text"},
		},
	}
}

func TestValidateValidMapping(t *testing.T) {
	p := Parameters{ContentTypeID: "experience", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "embed"}
	if err := Validate(p, []Descriptor{experienceType()}); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := Validate(p, nil); err != nil {
		t.Fatalf("Validate() before descriptors load error = %v", err)
	}
}

func TestValidateMissingField(t *testing.T) {
	base := Parameters{ContentTypeID: "experience", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "embed"}
	tests := []struct {
		name  string
		edit  func(*Parameters)
		field string
	}{
		{"content type", func(p *Parameters) { p.ContentTypeID = "" }, "contentTypeId"},
		{"title", func(p *Parameters) { p.TitleFieldID = " " }, "titleFieldId"},
		{"url", func(p *Parameters) { p.URLFieldID = "" }, "urlFieldId"},
		{"embed", func(p *Parameters) { p.EmbedCodeFieldID = "" }, "embedCodeFieldId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.edit(&p)
			err := Validate(p, []Descriptor{experienceType()})
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("Validate() error = %v, want missing field", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Fatalf("Field = %v, want %q", err, tt.field)
			}
			if vErr.Message() == "" {
				t.Fatal("expected user message")
			}
		})
	}
}

func TestValidateDuplicateAssignments(t *testing.T) {
	ids := []string{"headline", "link", "embed"}
	// Every combination where at least two of the three ids collide.
	for _, title := range ids {
		for _, url := range ids {
			for _, embed := range ids {
				if title != url && url != embed && title != embed {
					continue
				}
				p := Parameters{ContentTypeID: "experience", TitleFieldID: title, URLFieldID: url, EmbedCodeFieldID: embed}
				if err := Validate(p, []Descriptor{experienceType()}); !errors.Is(err, ErrDuplicateFieldAssignment) {
					t.Fatalf("Validate(%+v) error = %v, want duplicate assignment", p, err)
				}
			}
		}
	}
}

func TestValidateSentinelAlwaysValid(t *testing.T) {
	for _, p := range []Parameters{
		{ContentTypeID: CreateDefault},
		{ContentTypeID: CreateDefault, TitleFieldID: "a", URLFieldID: "a", EmbedCodeFieldID: "a"},
		{ContentTypeID: " " + CreateDefault + " ", TitleFieldID: "x"},
	} {
		if err := Validate(p, []Descriptor{experienceType()}); err != nil {
			t.Fatalf("Validate(%+v) error = %v, want nil", p, err)
		}
	}
}

func TestValidateContentTypeNotFound(t *testing.T) {
	p := Parameters{ContentTypeID: "deleted", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "embed"}
	if err := Validate(p, []Descriptor{experienceType()}); !errors.Is(err, ErrContentTypeNotFound) {
		t.Fatalf("Validate() error = %v, want content type not found", err)
	}
	if err := Validate(p, nil); err != nil {
		t.Fatalf("Validate() with no descriptors loaded error = %v, want nil", err)
	}
}

func TestValidateFieldNotFound(t *testing.T) {
	p := Parameters{ContentTypeID: "experience", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "html"}
	err := Validate(p, []Descriptor{experienceType()})
	if !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("Validate() error = %v, want field not found", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldID != "html" || vErr.Field != "embedCodeFieldId" {
		t.Fatalf("unexpected error detail: %#v", err)
	}
}

func TestDefaultContentTypeMapping(t *testing.T) {
	d := NewDefaultContentType("")
	got := d.Mapping()
	want := Parameters{ContentTypeID: "cerosExperience", TitleFieldID: "title", URLFieldID: "url", EmbedCodeFieldID: "embedCode"}
	if got != want {
		t.Fatalf("Mapping() = %+v, want %+v", got, want)
	}
	if !got.Complete() {
		t.Fatal("default mapping should be complete")
	}
	if err := Validate(got, nil); err != nil {
		t.Fatalf("default mapping invalid: %v", err)
	}
	if NewDefaultContentType("custom").ID != "custom" {
		t.Fatal("expected injected content type id")
	}
}

func TestValidateFieldTypeMismatch(t *testing.T) {
	ct := experienceType()
	ct.Fields = append(ct.Fields, FieldDescriptor{ID: "count", Type: "Integer"})

	tests := []struct {
		name  string
		p     Parameters
		field string
	}{
		{"integer title", Parameters{ContentTypeID: "experience", TitleFieldID: "count", URLFieldID: "link", EmbedCodeFieldID: "embed"}, "titleFieldId"},
		{"long text url", Parameters{ContentTypeID: "experience", TitleFieldID: "headline", URLFieldID: "notes", EmbedCodeFieldID: "embed"}, "urlFieldId"},
		{"integer embed", Parameters{ContentTypeID: "experience", TitleFieldID: "headline", URLFieldID: "link", EmbedCodeFieldID: "count"}, "embedCodeFieldId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p, []Descriptor{ct})
			if !errors.Is(err, ErrFieldTypeMismatch) {
				t.Fatalf("Validate() error = %v, want field type mismatch", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Fatalf("Field = %v, want %q", err, tt.field)
			}
			if vErr.Message() == "" {
				t.Fatal("expected user message")
			}
		})
	}
}

func TestAcceptsType(t *testing.T) {
	tests := []struct {
		role, fieldType string
		want            bool
	}{
		{RoleTitle, "Symbol", true},
		{RoleTitle, "Text", false},
		{RoleURL, "Symbol", true},
		{RoleURL, "Text", false},
		{RoleEmbedCode, "Symbol", true},
		{RoleEmbedCode, "Text", true},
		{RoleEmbedCode, "Integer", false},
		{RoleTitle, "", false},
	}
	for _, tt := range tests {
		if got := AcceptsType(tt.role, tt.fieldType); got != tt.want {
			t.Fatalf("AcceptsType(%q, %q) = %v, want %v", tt.role, tt.fieldType, got, tt.want)
		}
	}
}
