package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/config"
	"github.com/JonMunkholm/vizboard/internal/core"
)

const salesCSV = "city,revenue\nA,10\nA,20\nB,30\n"

type testClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestServer(t *testing.T, vars map[string]string) *testClient {
	t.Helper()
	if vars == nil {
		vars = map[string]string{}
	}
	if _, ok := vars["RATE_LIMIT_ENABLED"]; !ok {
		vars["RATE_LIMIT_ENABLED"] = "false"
	}
	cfg, err := config.LoadFrom(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	svc := core.NewService(core.Config{
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		PreviewRows:          cfg.Upload.PreviewRows,
		ChartWidth:           200,
		ChartHeight:          150,
	}, chart.NewRenderer(chart.Options{Width: 200, Height: 150}), nil)

	srv := NewServer(svc, cfg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(t.Context())
	})

	jar, _ := cookiejar.New(nil)
	return &testClient{
		t:    t,
		base: ts.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (c *testClient) get(path string, header map[string]string) (*http.Response, string) {
	c.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, c.base+path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *testClient) upload(name, content string, header map[string]string) (*http.Response, string) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			c.t.Fatal(err)
		}
		io.WriteString(fw, content)
	}
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, c.base+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *testClient) postForm(path string, form url.Values, header map[string]string) (*http.Response, string) {
	c.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

var (
	jsonHeader = map[string]string{"Accept": "application/json"}
	htmxHeader = map[string]string{"HX-Request": "true"}
)

func TestPage_NewSessionSetsCookie(t *testing.T) {
	c := newTestServer(t, nil)

	resp, body := c.get("/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", resp.StatusCode)
	}
	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == "vizboard_session" && ck.HttpOnly && ck.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("GET / did not set an HttpOnly session cookie")
	}
	if !strings.Contains(body, `action="/upload"`) {
		t.Error("page is missing the upload form")
	}
	if strings.Contains(body, "Chart Slot") {
		t.Error("page shows panels before any upload")
	}

	resp, _ = c.get("/", nil)
	if len(resp.Cookies()) != 0 {
		t.Error("cookie re-issued for an existing session")
	}
}

func TestUpload_FormPostRedirectsAndShowsPanels(t *testing.T) {
	c := newTestServer(t, nil)

	resp, _ := c.upload("sales.csv", salesCSV, nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("upload status = %d, want 303", resp.StatusCode)
	}

	_, body := c.get("/", nil)
	for _, want := range []string{"Preview of Data", "<td>A</td>", "Chart Slot 1", "Chart Slot 8", "/panels/7/chart.png"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Chart Slot 9") {
		t.Error("page has more than eight panels")
	}
}

func TestUpload_JSONReturnsRecord(t *testing.T) {
	c := newTestServer(t, nil)

	resp, body := c.upload("sales.csv", salesCSV, jsonHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want 200: %s", resp.StatusCode, body)
	}
	var rec core.UploadRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Status != core.UploadSucceeded || rec.Rows != 3 || rec.Numerical != 1 || rec.Categorical != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		wantStatus int
		wantCode   string
	}{
		{"no file", "", "", http.StatusBadRequest, "FILE004"},
		{"empty file", "empty.csv", "", http.StatusBadRequest, "FILE005"},
		{"corrupt workbook", "data.xlsx", "not a zip archive", http.StatusBadRequest, "FILE002"},
		{"too large", "big.csv", strings.Repeat("a,b\n", 100), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, map[string]string{"UPLOAD_MAX_FILE_SIZE": "128"})
			resp, body := c.upload(tt.file, tt.content, jsonHeader)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var er ErrorResponse
			if err := json.Unmarshal([]byte(body), &er); err != nil {
				t.Fatalf("decode error response: %v (%s)", err, body)
			}
			if er.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", er.Code, tt.wantCode)
			}
		})
	}
}

func TestUpload_FailureKeepsDataset(t *testing.T) {
	c := newTestServer(t, nil)
	c.upload("sales.csv", salesCSV, nil)

	resp, body := c.upload("broken.xlsx", "garbage", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "FILE002") {
		t.Error("page does not show the upload error")
	}
	if !strings.Contains(body, "sales.csv") || !strings.Contains(body, "Chart Slot 1") {
		t.Error("failed upload replaced the loaded dataset")
	}
}

func TestUpload_HTMXErrorRetargetsAlert(t *testing.T) {
	c := newTestServer(t, nil)

	resp, body := c.upload("empty.csv", "", htmxHeader)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for htmx swap", resp.StatusCode)
	}
	if resp.Header.Get("HX-Retarget") != "#alerts" {
		t.Errorf("HX-Retarget = %q, want #alerts", resp.Header.Get("HX-Retarget"))
	}
	if !strings.Contains(body, `role="alert"`) || !strings.Contains(body, "FILE005") {
		t.Errorf("body = %q, want alert fragment with FILE005", body)
	}
}

func TestUpdatePanel(t *testing.T) {
	c := newTestServer(t, nil)
	c.upload("sales.csv", salesCSV, nil)

	resp, body := c.postForm("/panels/2", url.Values{"kind": {"barplot"}}, htmxHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	for _, want := range []string{`id="panel-2"`, "Chart Slot 3", `value="barplot" selected`, `value="city" selected`, `value="revenue" selected`} {
		if !strings.Contains(body, want) {
			t.Errorf("fragment missing %q", want)
		}
	}

	resp, body = c.postForm("/panels/2", url.Values{"kind": {"barplot"}, "col0": {"revenue"}}, jsonHeader)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("ineligible column status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "PNL002") {
		t.Errorf("ineligible column body = %s, want PNL002", body)
	}

	resp, _ = c.postForm("/panels/2", url.Values{"kind": {"radar"}}, jsonHeader)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", resp.StatusCode)
	}

	resp, _ = c.postForm("/panels/8", url.Values{"kind": {"histogram"}}, jsonHeader)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("out of range status = %d, want 404", resp.StatusCode)
	}

	resp, _ = c.postForm("/panels/2", url.Values{"kind": {"pie"}}, nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/#panel-2" {
		t.Errorf("form post = %d %q, want 303 to /#panel-2", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestUpdatePanel_BeforeUpload(t *testing.T) {
	c := newTestServer(t, nil)
	resp, body := c.postForm("/panels/0", url.Values{"kind": {"countplot"}}, jsonHeader)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if !strings.Contains(body, "DATA001") {
		t.Errorf("body = %s, want DATA001", body)
	}
}

func TestChartImage(t *testing.T) {
	c := newTestServer(t, nil)
	c.upload("sales.csv", salesCSV, nil)

	for _, path := range []string{"/panels/0/chart.png", "/panels/7/chart.png"} {
		resp, body := c.get(path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != chart.ContentType {
			t.Errorf("Content-Type = %q, want %q", ct, chart.ContentType)
		}
		if !strings.HasPrefix(body, "\x89PNG") {
			t.Errorf("GET %s did not return a PNG", path)
		}
	}

	resp, _ := c.get("/panels/abc/chart.png", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad index status = %d, want 400", resp.StatusCode)
	}
}

func TestChartImage_NoEligibleColumns(t *testing.T) {
	c := newTestServer(t, nil)
	c.upload("names.csv", "first,last\nada,lovelace\n", nil)

	_, page := c.get("/", nil)
	if !strings.Contains(page, "No eligible numerical columns") {
		t.Error("histogram panel should explain there are no numerical columns")
	}

	resp, body := c.get("/panels/0/chart.png", nil)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "\x89PNG") {
		t.Errorf("placeholder = %d, want 200 PNG", resp.StatusCode)
	}
}

func TestSessionAPIAndReset(t *testing.T) {
	c := newTestServer(t, nil)
	c.upload("sales.csv", salesCSV, nil)

	_, body := c.get("/api/session", nil)
	var v core.View
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if v.Dataset == nil || len(v.Panels) != 8 {
		t.Fatalf("view = %+v, want dataset and 8 panels", v)
	}
	if v.Panels[0].Kind != chart.Histogram {
		t.Errorf("panel 0 kind = %v, want histogram", v.Panels[0].Kind)
	}

	_, body = c.get("/api/uploads?limit=5", nil)
	if !strings.Contains(body, `"fileName":"sales.csv"`) {
		t.Errorf("uploads = %s, want sales.csv", body)
	}
	if resp, _ := c.get("/api/uploads?limit=-1", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", resp.StatusCode)
	}

	resp, _ := c.postForm("/reset", nil, nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("reset status = %d, want 303", resp.StatusCode)
	}
	_, body = c.get("/api/session", nil)
	v = core.View{}
	json.Unmarshal([]byte(body), &v)
	if v.Dataset != nil || len(v.Panels) != 0 {
		t.Errorf("after reset view = %+v, want empty", v)
	}
}

func TestHealthz(t *testing.T) {
	c := newTestServer(t, nil)
	resp, body := c.get("/healthz", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
	if len(resp.Cookies()) != 0 {
		t.Error("healthz created a session")
	}
}

func TestSecurityHeaders(t *testing.T) {
	c := newTestServer(t, nil)
	resp, _ := c.get("/", nil)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestRateLimit(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"RATE_LIMIT_ENABLED":             "true",
		"RATE_LIMIT_REQUESTS_PER_MINUTE": "2",
	})

	for i := 0; i < 2; i++ {
		if resp, _ := c.get("/api/session", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, resp.StatusCode)
		}
	}
	resp, body := c.get("/api/session", nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", resp.Header.Get("Retry-After"))
	}
	if !strings.Contains(body, "RATE001") {
		t.Errorf("body = %s, want RATE001", body)
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	rl := newRateLimiter(1, time.Minute, stop)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("1.2.3.4") {
		t.Fatal("first request rejected")
	}
	if rl.allow("1.2.3.4") {
		t.Error("second request in window allowed")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other IP rejected")
	}
	now = now.Add(61 * time.Second)
	if !rl.allow("1.2.3.4") {
		t.Error("request after window rejected")
	}
}
