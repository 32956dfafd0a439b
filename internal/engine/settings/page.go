package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	PageSlug       = "github_actions_hooks_fields"
	PageTitle      = "GitHub Actions Hooks"
	PageCapability = "manage_options"
	SectionID      = "github_settings_section"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
)

type Field struct {
	UID         string    `json:"uid"`
	Label       string    `json:"label"`
	Section     string    `json:"section"`
	Type        FieldType `json:"type"`
	Default     string    `json:"default"`
	Description string    `json:"description"`
}

type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Page describes the options page: one section with the two webhook fields.
type Page struct {
	Slug       string
	Title      string
	Capability string
	Sections   []Section
	Fields     []Field
}

// Writer is the write side of the option store.
type Writer interface {
	Store
	Register(ctx context.Context, name, defaultValue string) error
	// SetMany stores all values or none of them.
	SetMany(ctx context.Context, values map[string]string) error
}

func DefaultPage() *Page {
	return &Page{
		Slug:       PageSlug,
		Title:      PageTitle,
		Capability: PageCapability,
		Sections:   []Section{{ID: SectionID, Title: "Settings"}},
		Fields: []Field{
			{
				UID:         OptionWebhookAddress,
				Label:       "API Endpoint",
				Section:     SectionID,
				Type:        FieldText,
				Default:     "https://api.github.com/repos/<:owner>/<:repo>/dispatches",
				Description: "Repository dispatch event API: https://api.github.com/repos/<:owner>/<:repository>/dispatches",
			},
			{
				UID:         OptionWebhookToken,
				Label:       "Personal Access Token",
				Section:     SectionID,
				Type:        FieldPassword,
				Description: "New personal access token: https://github.com/settings/tokens/new",
			},
		},
	}
}

// Setup registers an option for every field. Field defaults are display
// values only and are never stored.
func (p *Page) Setup(ctx context.Context, store Writer) error {
	for _, f := range p.Fields {
		if err := store.Register(ctx, f.UID, ""); err != nil {
			return fmt.Errorf("register option %s: %w", f.UID, err)
		}
	}
	return nil
}

func (p *Page) field(uid string) (Field, bool) {
	for _, f := range p.Fields {
		if f.UID == uid {
			return f, true
		}
	}
	return Field{}, false
}

type FieldView struct {
	Field
	Value string `json:"value"`
	IsSet bool   `json:"is_set"`
}

type View struct {
	Slug     string      `json:"slug"`
	Title    string      `json:"title"`
	Sections []Section   `json:"sections"`
	Fields   []FieldView `json:"fields"`
	Notices  []string    `json:"notices,omitempty"`
}

// View renders the page state as data. Password values are masked and empty
// values fall back to the field's display default.
func (p *Page) View(ctx context.Context, store Store, overrides Overrides) (*View, error) {
	v := &View{
		Slug:     p.Slug,
		Title:    p.Title,
		Sections: p.Sections,
	}

	for _, f := range p.Fields {
		value, err := store.Get(ctx, f.UID)
		if err != nil {
			return nil, fmt.Errorf("read option %s: %w", f.UID, err)
		}

		fv := FieldView{Field: f, IsSet: value != ""}
		switch {
		case value == "":
			fv.Value = f.Default
		case f.Type == FieldPassword:
			fv.Value = mask(value)
		default:
			fv.Value = value
		}
		v.Fields = append(v.Fields, fv)
	}

	if overrides.APIDefined() {
		v.Notices = append(v.Notices, "Now GITHUB_ACTIONS_HOOKS_API is set in the environment.")
	}
	if overrides.TokenDefined() {
		v.Notices = append(v.Notices, "Now GITHUB_ACTIONS_HOOKS_TOKEN is set in the environment.")
	}

	return v, nil
}

// ErrUnknownFields lists submitted keys that are not fields of the page.
type ErrUnknownFields struct {
	Keys []string
}

func (e *ErrUnknownFields) Error() string {
	return "unknown settings fields: " + strings.Join(e.Keys, ", ")
}

// Update stores the submitted values in a single SetMany call. Nothing is
// written when any key is unknown or when the store fails part way.
func (p *Page) Update(ctx context.Context, store Writer, values map[string]string) error {
	var unknown []string
	for k := range values {
		if _, ok := p.field(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ErrUnknownFields{Keys: unknown}
	}

	cleaned := make(map[string]string, len(values))
	for k, v := range values {
		cleaned[k] = strings.TrimSpace(v)
	}
	if len(cleaned) == 0 {
		return nil
	}
	if err := store.SetMany(ctx, cleaned); err != nil {
		return fmt.Errorf("store options: %w", err)
	}
	return nil
}

// mask hides all but the last four characters. It counts runes so a
// multi-byte character is never split.
func mask(secret string) string {
	r := []rune(secret)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
