// Package notification renders in-app and email content for workflow events.
package notification

import (
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// EventCode identifies a notification type and its templates.
type EventCode string

// Notification event codes.
const (
	ProjectSubmitted EventCode = "PROJECT_SUBMITTED"
	ReviewerAssigned EventCode = "REVIEWER_ASSIGNED"
	StatusChanged    EventCode = "STATUS_CHANGED"
	NewComment       EventCode = "NEW_COMMENT"
	ProjectApproved  EventCode = "PROJECT_APPROVED"
	ProjectRejected  EventCode = "PROJECT_REJECTED"
	DocumentUploaded EventCode = "DOCUMENT_UPLOADED"
)

// Template tokens.
const (
	TokenUserName       = "user_name"
	TokenProjectTitle   = "project_title"
	TokenNewStatus      = "new_status"
	TokenReason         = "reason"
	TokenCommentPreview = "comment_preview"
	TokenDocumentName   = "document_name"
	TokenStageName      = "stage_name"
	TokenProjectURL     = "project_url"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]*)\s*\}\}`)

// Template is the subject, plain body and email HTML bound to an event code.
type Template struct {
	TypeID  uint
	Code    EventCode
	Name    string
	Subject string
	Body    string
	HTML    string
}

// Rendered is the result of substituting data into a template.
type Rendered struct {
	Code    EventCode
	TypeID  uint
	Title   string
	Message string
	HTML    string
}

// Catalog is an immutable set of templates keyed by event code.
type Catalog struct {
	templates map[EventCode]Template
	sanitizer *bluemonday.Policy
}

// NewCatalog builds a catalogue from templates. Later entries with the same
// code replace earlier ones.
func NewCatalog(templates ...Template) *Catalog {
	byCode := make(map[EventCode]Template, len(templates))
	for _, tpl := range templates {
		byCode[tpl.Code] = tpl
	}
	return &Catalog{templates: byCode, sanitizer: bluemonday.StrictPolicy()}
}

// DefaultCatalog returns the built-in templates.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultTemplates()...)
}

// Lookup returns the template bound to code.
func (c *Catalog) Lookup(code EventCode) (Template, bool) {
	tpl, ok := c.templates[code]
	return tpl, ok
}

// Templates returns every template ordered by type id.
func (c *Catalog) Templates() []Template {
	out := make([]Template, 0, len(c.templates))
	for _, tpl := range c.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out
}

// Render substitutes values into the template bound to code. Unknown or
// missing tokens render as empty strings. Values are escaped for the HTML
// body only.
func (c *Catalog) Render(code EventCode, values map[string]string) (Rendered, bool) {
	tpl, ok := c.templates[code]
	if !ok {
		return Rendered{}, false
	}

	plain := make(map[string]string, len(values))
	escaped := make(map[string]string, len(values))
	for key, value := range values {
		value = scrubTokens(value)
		plain[strings.ToLower(key)] = value
		escaped[strings.ToLower(key)] = scrubTokens(c.sanitizer.Sanitize(value))
	}

	return Rendered{
		Code:    tpl.Code,
		TypeID:  tpl.TypeID,
		Title:   substitute(tpl.Subject, plain),
		Message: substitute(tpl.Body, plain),
		HTML:    substitute(tpl.HTML, escaped),
	}, true
}

// scrubTokens removes token syntax from a value until none is left, so
// nested input such as "{{us{{x}}er_name}}" cannot rebuild a token.
func scrubTokens(value string) string {
	for {
		scrubbed := tokenPattern.ReplaceAllString(value, "")
		if scrubbed == value {
			return value
		}
		value = scrubbed
	}
}

func substitute(text string, values map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := tokenPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return ""
		}
		return values[strings.ToLower(parts[1])]
	})
}
