package notification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogHasEveryEvent(t *testing.T) {
	catalog := DefaultCatalog()
	codes := []EventCode{ProjectSubmitted, ReviewerAssigned, StatusChanged, NewComment, ProjectApproved, ProjectRejected, DocumentUploaded}

	ids := map[uint]bool{}
	for _, code := range codes {
		tpl, ok := catalog.Lookup(code)
		require.True(t, ok, code)
		require.NotEmpty(t, tpl.Subject)
		require.NotEmpty(t, tpl.Body)
		require.NotEmpty(t, tpl.HTML)
		require.False(t, ids[tpl.TypeID], "duplicate type id %d", tpl.TypeID)
		ids[tpl.TypeID] = true
	}
	require.Len(t, catalog.Templates(), len(codes))
}

func TestRenderNeverLeavesTokens(t *testing.T) {
	catalog := DefaultCatalog()
	full := map[string]string{
		TokenUserName:       "Ana Perez",
		TokenProjectTitle:   "Graph databases",
		TokenNewStatus:      "Approved",
		TokenReason:         "Great work",
		TokenCommentPreview: "Please fix chapter 2",
		TokenDocumentName:   "draft.pdf",
		TokenStageName:      "Proposal",
		TokenProjectURL:     "http://localhost/projects/1",
	}

	for _, tpl := range catalog.Templates() {
		for key := range full {
			partial := make(map[string]string, len(full))
			for k, v := range full {
				if k != key {
					partial[k] = v
				}
			}

			rendered, ok := catalog.Render(tpl.Code, partial)
			require.True(t, ok)
			for _, text := range []string{rendered.Title, rendered.Message, rendered.HTML} {
				require.NotContains(t, text, "{{", "%s without %s", tpl.Code, key)
				require.NotContains(t, text, "}}", "%s without %s", tpl.Code, key)
			}
		}
	}
}

func TestRenderScrubsNestedTokensFromValues(t *testing.T) {
	catalog := DefaultCatalog()
	for _, value := range []string{
		"see {{us{{x}}er_name}} here",
		"see {{{{user_name}}user_name}} here",
		"see {{<b></b>user_name}} here",
		"see {{us{{pro{{y}}ject_url}}er_name}} here",
	} {
		rendered, ok := catalog.Render(NewComment, map[string]string{
			TokenUserName:       "Ana",
			TokenProjectTitle:   "T",
			TokenCommentPreview: value,
		})
		require.True(t, ok)
		for _, text := range []string{rendered.Title, rendered.Message, rendered.HTML} {
			require.NotContains(t, text, "{{user_name}}", value)
			require.NotContains(t, text, "{{project_url}}", value)
			require.NotRegexp(t, tokenPattern, text, value)
		}
		require.Contains(t, rendered.Message, "see ", value)
		require.Contains(t, rendered.Message, " here", value)
	}
}

func TestRenderSubstitutesEveryOccurrence(t *testing.T) {
	catalog := NewCatalog(Template{
		TypeID:  1,
		Code:    "CUSTOM",
		Subject: "{{ user_name }} / {{user_name}}",
		Body:    "{{unknown}}{{reason}}",
		HTML:    "<p>{{reason}}</p>",
	})

	rendered, ok := catalog.Render("CUSTOM", map[string]string{"user_name": "Ana", "reason": "<b>scope</b> & {{user_name}}"})
	require.True(t, ok)
	require.Equal(t, "Ana / Ana", rendered.Title)
	require.Equal(t, "<b>scope</b> & ", rendered.Message)
	require.True(t, strings.HasPrefix(rendered.HTML, "<p>scope &amp; "))
	require.NotContains(t, rendered.HTML, "<b>")
}

func TestRenderRejectedIncludesReason(t *testing.T) {
	rendered, ok := DefaultCatalog().Render(ProjectRejected, map[string]string{TokenReason: "insufficient scope"})
	require.True(t, ok)
	require.Contains(t, rendered.Message, "insufficient scope")
	require.Contains(t, rendered.HTML, "insufficient scope")
}

func TestRenderUnknownCode(t *testing.T) {
	_, ok := DefaultCatalog().Render("NOPE", nil)
	require.False(t, ok)
}
