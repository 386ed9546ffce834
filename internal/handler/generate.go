package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/contestreport/internal/export"
	"github.com/pavelanni/contestreport/internal/handler/views"
	appI18n "github.com/pavelanni/contestreport/internal/i18n"
	"github.com/pavelanni/contestreport/internal/metrics"
	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/report"
	"github.com/pavelanni/contestreport/internal/store"
	"github.com/pavelanni/contestreport/internal/table"
)

// Multipart field names for the four uploaded sources.
var uploadFields = []struct {
	field  string
	label  string
	source model.Source
}{
	{"results", "ResultsFile", model.SourceResults},
	{"roster", "RosterFile", model.SourceRoster},
	{"feedback", "FeedbackFile", model.SourceFeedback},
	{"handles", "HandlesFile", model.SourceHandles},
}

type missingUploadError struct {
	label string
}

func (e *missingUploadError) Error() string {
	return "missing upload: " + e.label
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUpload)
	if err := r.ParseMultipartForm(h.config.MaxUpload); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	eventStr := strings.TrimSpace(r.FormValue("event"))
	event, err := strconv.Atoi(eventStr)
	if err != nil || event < 1 {
		h.metrics.ObserveFailure(metrics.KindProcessing)
		h.render(w, r, http.StatusBadRequest, views.UploadPage{Event: eventStr, Error: appI18n.T(r.Context(), "InvalidEvent")})
		return
	}

	tables, err := readUploads(r)
	if err != nil {
		h.fail(w, r, eventStr, err)
		return
	}

	rep, err := report.Generate(tables[0], tables[1], tables[2], tables[3], event)
	if err != nil {
		h.fail(w, r, eventStr, err)
		return
	}

	token, err := store.NewDownloadToken()
	if err != nil {
		slog.Error("failed to create download token", "error", err)
		h.metrics.ObserveFailure(metrics.KindProcessing)
		http.Error(w, "failed to save report", http.StatusInternalServerError)
		return
	}
	_, path, err := export.Save(h.config.OutDir, h.config.Prefix, rep)
	if err != nil {
		slog.Error("failed to save report", "event", event, "error", err)
		h.metrics.ObserveFailure(metrics.KindProcessing)
		http.Error(w, "failed to save report", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	err = h.store.RecordExport(model.ExportRecord{
		Token:       token,
		Filename:    filepath.Base(path),
		Path:        path,
		EventNumber: event,
		RowCount:    len(rep.Rows),
		CreatedAt:   now,
		ExpiresAt:   now.Add(h.config.ExportTTL),
	})
	if err != nil {
		// An unregistered file can never be downloaded, so drop it.
		_ = os.Remove(path)
		h.metrics.ObserveFailure(metrics.KindProcessing)
		http.Error(w, "failed to register report", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveReport(rep)

	h.render(w, r, http.StatusOK, views.UploadPage{
		Event: eventStr,
		Result: &views.Result{
			Event:       event,
			Rows:        len(rep.Rows),
			DownloadURL: model.BasePathFromContext(r.Context()) + "/download/" + token,
			Filename:    filepath.Base(path),
			Summary: appI18n.Td(r.Context(), "ReportReady", map[string]any{"Event": event}) + " " +
				appI18n.Tp(r.Context(), "StudentsInReport", len(rep.Rows)),
		},
	})
}

// readUploads decodes the four uploaded files in source order.
func readUploads(r *http.Request) ([]*table.Table, error) {
	tables := make([]*table.Table, 0, len(uploadFields))
	for _, u := range uploadFields {
		file, header, err := r.FormFile(u.field)
		if err != nil {
			return nil, &missingUploadError{label: u.label}
		}
		t, err := table.Read(string(u.source), header.Filename, file)
		file.Close()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// fail converts a generation error into a user-facing page. Nothing is exported.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	ctx := r.Context()
	data := views.UploadPage{Event: event}
	status := http.StatusUnprocessableEntity

	var mu *missingUploadError
	var je *report.JoinIntegrityError
	switch col, isSchema := report.MissingColumn(err); {
	case errors.As(err, &mu):
		status = http.StatusBadRequest
		data.Error = appI18n.Td(ctx, "MissingFile", map[string]any{"Field": appI18n.T(ctx, mu.label)})
		h.metrics.ObserveFailure(metrics.KindProcessing)
	case isSchema:
		status = http.StatusBadRequest
		data.Error = appI18n.Td(ctx, "MissingColumn", map[string]any{"Source": schemaSource(err), "Column": col})
		h.metrics.ObserveFailure(metrics.KindSchema)
	case errors.As(err, &je):
		data.Error = appI18n.T(ctx, "ProcessingFailed")
		data.Detail = err.Error()
		if src, key, dup := report.DuplicateKey(err); dup {
			data.Detail += ". " + appI18n.Td(ctx, "DuplicateKeyHint", map[string]any{"Source": string(src), "Key": key})
		}
		h.metrics.ObserveFailure(metrics.KindIntegrity)
	default:
		data.Error = appI18n.T(ctx, "ProcessingFailed")
		data.Detail = err.Error()
		h.metrics.ObserveFailure(metrics.KindProcessing)
	}
	slog.Warn("report generation failed", "event", event, "status", status, "error", err)
	h.render(w, r, status, data)
}

func schemaSource(err error) string {
	var se *report.SchemaError
	if errors.As(err, &se) {
		return string(se.Source)
	}
	var rf *report.RequiredFieldError
	if errors.As(err, &rf) {
		return string(rf.Source)
	}
	return ""
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	rec, err := h.store.GetExport(token)
	if err != nil {
		slog.Error("failed to look up export", "token", token, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, appI18n.T(r.Context(), "ExportNotFound"), http.StatusNotFound)
		return
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		slog.Error("export file missing", "token", token, "path", rec.Path, "error", err)
		http.Error(w, appI18n.T(r.Context(), "ExportNotFound"), http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	http.ServeContent(w, r, rec.Filename, rec.CreatedAt, f)
}
