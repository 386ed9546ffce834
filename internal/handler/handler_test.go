package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	appI18n "github.com/pavelanni/contestreport/internal/i18n"
	"github.com/pavelanni/contestreport/internal/metrics"
	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/store"
)

func newTestServer(t *testing.T) (http.Handler, *store.Store, string) {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n Init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	outDir := t.TempDir()
	h, err := New(s, metrics.New(), model.ServerConfig{OutDir: outDir, ExportTTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	r.Use(appI18n.Middleware())
	r.Use(h.BasePathMiddleware)
	h.Routes(r)
	return r, s, outDir
}

func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, event string, uploads []upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, u := range uploads {
		fw, err := mw.CreateFormFile(u.field, u.filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(u.data); err != nil {
			t.Fatalf("write upload: %v", err)
		}
	}
	if err := mw.WriteField("event", event); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validUploads(t *testing.T, roster string) []upload {
	return []upload{
		{"results", "codechef.xlsx", xlsxBytes(t, [][]any{
			{"Roll No", "Batch", "Starters 1", "Starters 2"},
			{"r1", "B1", 1, 1},
			{"r2", "B1", "Not Participated", "Not Participated"},
		})},
		{"roster", "members.csv", []byte(roster)},
		{"feedback", "feedback.xlsx", xlsxBytes(t, [][]any{
			{"Timestamp", "Roll Number", "Reason"},
			{"2024-03-01", "R2", "sick"},
		})},
		{"handles", "handles.xlsx", xlsxBytes(t, [][]any{
			{"roll_number", "CODECHEF"},
			{"r1", "alice_cc"},
		})},
	}
}

func TestIndexPage(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="results"`) {
		t.Error("index page should contain the upload form")
	}
}

func TestGenerateAndDownload(t *testing.T) {
	srv, s, _ := newTestServer(t)

	req := multipartRequest(t, "85", validUploads(t, "username,email\nr1-Alice,a@x.com\nr2-Bob,b@x.com\n"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	m := regexp.MustCompile(`href="/download/([0-9a-f]{64})"`).FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatalf("no full-length download link in response: %s", rec.Body.String())
	}
	name := regexp.MustCompile(`output_start_85_([0-9a-f]{8})\.xlsx`).FindStringSubmatch(rec.Body.String())
	if name == nil {
		t.Fatalf("no export filename in response: %s", rec.Body.String())
	}
	if strings.HasPrefix(m[1], name[1]) {
		t.Error("download token must not be derived from the filename suffix")
	}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/download/"+name[1], nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("filename suffix should not open the export, status = %d", rec.Code)
	}
	count, _ := s.ExportCount()
	if count != 1 {
		t.Errorf("expected 1 registered export, got %d", count)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/download/"+m[1], nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open downloaded workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %v", rows)
	}
	if rows[1][3] != "CODECHEF-START85 ATTENDED, SOLVED : 2 (alice_cc)" {
		t.Errorf("row 1 feedback = %q", rows[1][3])
	}
	if rows[2][1] != "R2" || rows[2][2] != "0" || rows[2][3] != "CODECHEF-START85 DID NOT PARTICIPATE, REASON - sick (N/A)" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestGenerateSchemaError(t *testing.T) {
	srv, s, outDir := newTestServer(t)

	req := multipartRequest(t, "85", validUploads(t, "user,email\nr1-Alice,a@x.com\n"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "username") {
		t.Errorf("response should name the missing column: %s", rec.Body.String())
	}
	assertNoExport(t, s, outDir)
}

func TestGenerateProcessingError(t *testing.T) {
	srv, s, outDir := newTestServer(t)

	req := multipartRequest(t, "85", validUploads(t, "username,email\nr9-Zed,z@x.com\n"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	assertNoExport(t, s, outDir)
}

func TestGenerateDuplicateFeedbackHint(t *testing.T) {
	srv, s, outDir := newTestServer(t)

	uploads := validUploads(t, "username,email\nr1-Alice,a@x.com\nr2-Bob,b@x.com\n")
	uploads[2] = upload{"feedback", "feedback.xlsx", xlsxBytes(t, [][]any{
		{"Timestamp", "Roll Number", "Reason"},
		{"2024-03-01", "r1", "sick"},
		{"2024-03-02", "R1", "travel"},
	})}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "85", uploads))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "keep only the latest submission") {
		t.Errorf("response should suggest de-duplicating the feedback sheet: %s", rec.Body.String())
	}
	assertNoExport(t, s, outDir)
}

func TestGenerateBadInput(t *testing.T) {
	srv, s, outDir := newTestServer(t)

	tests := []struct {
		name    string
		event   string
		uploads []upload
	}{
		{"zero event", "0", validUploads(t, "username,email\n")},
		{"non-numeric event", "abc", validUploads(t, "username,email\n")},
		{"missing file", "85", validUploads(t, "username,email\n")[:3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, multipartRequest(t, tt.event, tt.uploads))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	assertNoExport(t, s, outDir)
}

func TestDownloadUnknownToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/download/deadbeef", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "expired") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func assertNoExport(t *testing.T, s *store.Store, outDir string) {
	t.Helper()
	count, err := s.ExportCount()
	if err != nil {
		t.Fatalf("ExportCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no registered exports, got %d", count)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("expected empty output dir, found %v", entries)
	}
}
