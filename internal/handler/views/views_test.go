package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/docgrader/internal/i18n"
	"github.com/pavelanni/docgrader/internal/model"
)

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))
	ctx := model.ContextWithBasePath(context.Background(), "/grader")
	return model.ContextWithCSRFToken(ctx, `tok"en`)
}

func TestRecordValuesAreEscaped(t *testing.T) {
	ctx := testContext(t)
	recs := []model.GradedSubmission{{
		ID: 7, TeacherName: `<script>alert(1)</script>`, TeacherEmail: "t@bu.edu",
		StudentName: `"><img src=x>`, Grade: "A&B", Marks: 90, Remarks: "fine",
	}}

	for name, c := range map[string]templ.Component{
		"records": RecordsPage(recs, "<b>oops</b>"),
		"admin":   AdminPage(AdminData{Records: recs, Message: "<i>done</i>"}),
	} {
		t.Run(name, func(t *testing.T) {
			body := renderString(t, ctx, c)
			assert.NotContains(t, body, "<script>")
			assert.NotContains(t, body, "<img")
			assert.NotContains(t, body, "<b>oops")
			assert.NotContains(t, body, "<i>done")
			assert.Contains(t, body, "&lt;script&gt;")
			assert.Contains(t, body, "A&amp;B")
			assert.Contains(t, body, "<td>90</td>")
			assert.Contains(t, body, `value="tok&#34;en"`)
		})
	}
}

func TestIndexPageKeepsInputEscaped(t *testing.T) {
	ctx := testContext(t)
	body := renderString(t, ctx, IndexPage(FormData{
		TeacherName: `Ms. "Frizzle"`,
		Material:    "</textarea><script>x</script>",
	}))

	assert.Contains(t, body, `value="Ms. &#34;Frizzle&#34;"`)
	assert.Contains(t, body, `action="/grader/grade/document"`)
	assert.Contains(t, body, `formaction="/grader/grade/material"`)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, `lang="en"`)
}

func TestIndexPageWithoutMaterial(t *testing.T) {
	body := renderString(t, testContext(t), IndexPage(FormData{}))
	assert.NotContains(t, body, "/grade/material")
	assert.Contains(t, body, `formaction="/grader/generate"`)
}

func TestPageShowsLogoutForUser(t *testing.T) {
	ctx := testContext(t)
	assert.NotContains(t, renderString(t, ctx, LoginPage("")), "/logout")

	ctx = model.ContextWithUser(ctx, &model.User{Username: "<admin>"})
	body := renderString(t, ctx, LoginPage("bad"))
	assert.Contains(t, body, `action="/grader/logout"`)
	assert.Contains(t, body, "(&lt;admin&gt;)")
	assert.Contains(t, body, `<p class="error">bad</p>`)
}

func TestResultPage(t *testing.T) {
	body := renderString(t, testContext(t), ResultPage(model.GradedSubmission{
		ID: 3, Grade: "B", Marks: 85, Remarks: "Good effort",
	}))
	assert.Contains(t, body, "Record #3")
	assert.Contains(t, body, "<dd>85</dd>")
	assert.Contains(t, body, "Good effort")
}
