package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/docgrader/internal/auth"
	"github.com/pavelanni/docgrader/internal/grading"
	appI18n "github.com/pavelanni/docgrader/internal/i18n"
	"github.com/pavelanni/docgrader/internal/metrics"
	"github.com/pavelanni/docgrader/internal/model"
	"github.com/pavelanni/docgrader/internal/store"
)

type fakeEvaluator struct {
	raw    string
	err    error
	graded []string
}

func (f *fakeEvaluator) GenerateMaterial(_ context.Context, topic string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Material about " + topic, nil
}

func (f *fakeEvaluator) Grade(_ context.Context, text string) (string, error) {
	f.graded = append(f.graded, text)
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

type testClient struct {
	t    *testing.T
	srv  *httptest.Server
	base string
	http *http.Client
}

func newTestClient(t *testing.T, cfg model.AppConfig) (*testClient, *store.Store, *fakeEvaluator) {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))

	st, err := store.New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	require.NoError(t, auth.SeedAdmin(st, "secret"))

	ev := &fakeEvaluator{raw: "Grade: B\nMarks: 85\nRemarks: Good effort but needs improvement."}
	m := metrics.New()
	h, err := New(st, grading.NewService(st, ev, m), auth.NewPasswordVerifier(st), m, cfg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	if cfg.BasePath != "" {
		r.Route(cfg.BasePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testClient{t: t, srv: srv, base: cfg.BasePath, http: client}, st, ev
}

func (c *testClient) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *testClient) cookie(name string) string {
	u, _ := url.Parse(c.srv.URL + c.base + "/")
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *testClient) csrfToken() string {
	if tok := c.cookie(csrfCookieName); tok != "" {
		return tok
	}
	c.get("/")
	return c.cookie(csrfCookieName)
}

func (c *testClient) post(path string, vals url.Values) (*http.Response, string) {
	c.t.Helper()
	if vals == nil {
		vals = url.Values{}
	}
	vals.Set("csrf_token", c.csrfToken())
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+c.base+path, strings.NewReader(vals.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) postFile(path string, vals url.Values, filename string, content []byte) (*http.Response, string) {
	c.t.Helper()
	vals.Set("csrf_token", c.csrfToken())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k := range vals {
		require.NoError(c.t, mw.WriteField(k, vals.Get(k)))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("document", filename)
		require.NoError(c.t, err)
		_, err = fw.Write(content)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *testClient) login(password string) *http.Response {
	c.t.Helper()
	resp, _ := c.post("/login", url.Values{"username": {auth.AdminUsername}, "password": {password}})
	return resp
}

func identity() url.Values {
	return url.Values{
		"teacher_name":  {"Ms. Frizzle"},
		"teacher_email": {"frizzle@bu.edu"},
		"student_name":  {"Arnold"},
	}
}

func pdfBytes(t *testing.T, text string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, text)
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestIndexRendersForm(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{})

	resp, body := c.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Document Analyzer for Teachers")
	assert.Contains(t, body, `name="csrf_token"`)
	assert.NotEmpty(t, c.cookie(csrfCookieName))
}

func TestMaterialFlow(t *testing.T) {
	c, st, ev := newTestClient(t, model.AppConfig{})

	vals := identity()
	vals.Set("topic", "fractions")
	resp, body := c.post("/generate", vals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Material about fractions")
	assert.Contains(t, body, "Grade This Material")

	vals.Set("material", "Material about fractions")
	resp, _ = c.post("/grade/material", vals)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []string{"Material about fractions"}, ev.graded)
	assert.Equal(t, string(model.StateShowingResult), c.cookie(viewStateCookieName))

	resp, body = c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Record #1")
	assert.Contains(t, body, "Good effort but needs improvement.")
	assert.Contains(t, body, "<dd>85</dd>")

	resp, _ = c.post("/continue", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, string(model.StateResetting), c.cookie(viewStateCookieName))

	_, body = c.get("/")
	assert.Contains(t, body, "Analyze Document")
	assert.NotContains(t, body, "Record #1")
	assert.Equal(t, string(model.StateCollectingInput), c.cookie(viewStateCookieName))

	count, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGenerateRequiresTopic(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{})

	resp, body := c.post("/generate", url.Values{"topic": {"   "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Please enter a topic.")
}

func TestGradeValidation(t *testing.T) {
	c, st, ev := newTestClient(t, model.AppConfig{})

	bad := identity()
	bad.Set("teacher_email", "frizzle@yahoo.com")
	bad.Set("material", "text")
	resp, body := c.post("/grade/material", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Email must end with @gmail.com or @bu.edu.")
	assert.Contains(t, body, `value="Ms. Frizzle"`, "form keeps what was typed")

	missing := identity()
	missing.Del("student_name")
	resp, body = c.post("/grade/material", missing)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Please fill in all fields.")

	assert.Empty(t, ev.graded)
	count, _ := st.Count()
	assert.Zero(t, count)
}

func TestEvaluatorFailureShowsError(t *testing.T) {
	c, st, ev := newTestClient(t, model.AppConfig{})
	ev.err = errors.New("insufficient_quota")

	vals := identity()
	vals.Set("material", "some text")
	resp, body := c.post("/grade/material", vals)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "insufficient_quota")

	count, _ := st.Count()
	assert.Zero(t, count)
}

func TestGradeDocumentUpload(t *testing.T) {
	c, st, ev := newTestClient(t, model.AppConfig{})

	resp, _ := c.postFile("/grade/document", identity(), "essay.pdf", pdfBytes(t, "Volcanoes erupt"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Len(t, ev.graded, 1)
	assert.Contains(t, ev.graded[0], "Volcanoes erupt")

	latest, err := st.GetLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Arnold", latest.StudentName)
	assert.Equal(t, "B", latest.Grade)
}

func TestGradeDocumentRejectsBadUploads(t *testing.T) {
	c, st, ev := newTestClient(t, model.AppConfig{})

	resp, body := c.postFile("/grade/document", identity(), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Please upload a PDF document.")

	resp, _ = c.postFile("/grade/document", identity(), "essay.docx", []byte("PK"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = c.postFile("/grade/document", identity(), "broken.pdf", []byte("not a pdf at all"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Could not read the document")

	assert.Empty(t, ev.graded)
	count, _ := st.Count()
	assert.Zero(t, count)
}

func TestUploadTooLarge(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{MaxUploadSize: 1024})

	resp, _ := c.postFile("/grade/document", identity(), "big.pdf", bytes.Repeat([]byte("x"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestCSRFRequired(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{})
	c.get("/")

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/continue", strings.NewReader("csrf_token=forged"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ := c.do(req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRecordsPage(t *testing.T) {
	c, st, _ := newTestClient(t, model.AppConfig{})

	_, body := c.get("/records")
	assert.Contains(t, body, "No records found.")

	_, err := st.Insert(model.GradedSubmission{TeacherName: "T", TeacherEmail: "t@gmail.com", StudentName: "<script>", Grade: "A", Marks: 90, Remarks: "ok"})
	require.NoError(t, err)

	_, body = c.get("/records")
	assert.Contains(t, body, "1 record found.")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestAdminRequiresLogin(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{})

	resp, _ := c.get("/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = c.login("wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = c.get("/admin/export?format=json")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestAdminActions(t *testing.T) {
	c, st, _ := newTestClient(t, model.AppConfig{})
	for _, name := range []string{"S1", "S2", "S3"} {
		_, err := st.Insert(model.GradedSubmission{TeacherName: "T", TeacherEmail: "t@bu.edu", StudentName: name, Grade: "A", Marks: 90, Remarks: "r"})
		require.NoError(t, err)
	}

	resp := c.login("secret")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, body := c.get("/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "3 records found.")
	assert.Contains(t, body, "Log out")

	resp, body = c.post("/admin/records/delete", url.Values{"record_id": {"abc"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Please enter a valid numeric ID.")

	resp, body = c.post("/admin/records/delete", url.Values{"record_id": {"99"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Record 99 deleted.")

	resp, _ = c.post("/admin/records/delete", url.Values{"record_id": {"1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = c.post("/admin/records/delete-latest", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Latest record deleted.")

	all, err := st.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "S2", all[0].StudentName)

	resp, body = c.post("/admin/records/clear", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "All records cleared.")
	count, _ := st.Count()
	assert.Zero(t, count)

	resp, _ = c.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = c.get("/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestAdminExport(t *testing.T) {
	c, st, _ := newTestClient(t, model.AppConfig{})
	_, err := st.Insert(model.GradedSubmission{TeacherName: "T", TeacherEmail: "t@bu.edu", StudentName: "S", Grade: "A", Marks: 90, Remarks: "r"})
	require.NoError(t, err)
	require.Equal(t, http.StatusSeeOther, c.login("secret").StatusCode)

	tests := []struct {
		format      string
		contentType string
		prefix      string
	}{
		{"json", "application/json", "{"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "PK"},
		{"pdf", "application/pdf", "%PDF-"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp, body := c.get("/admin/export?format=" + tt.format)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			assert.Contains(t, resp.Header.Get("Content-Disposition"), "."+tt.format)
			assert.True(t, strings.HasPrefix(body, tt.prefix))
		})
	}

	resp, _ := c.get("/admin/export?format=csv")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{})

	vals := identity()
	vals.Set("material", "text")
	c.post("/grade/material", vals)

	resp, body := c.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "docgrader_gradings_total")
}

func TestBasePath(t *testing.T) {
	c, _, _ := newTestClient(t, model.AppConfig{BasePath: "/grader"})

	_, body := c.get("/")
	assert.Contains(t, body, `action="/grader/grade/document"`)

	vals := identity()
	vals.Set("material", "text")
	resp, _ := c.post("/grade/material", vals)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/grader/", resp.Header.Get("Location"))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil, model.AppConfig{})
	assert.Error(t, err)
}
