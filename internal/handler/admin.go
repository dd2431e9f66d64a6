package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pavelanni/docgrader/internal/export"
	"github.com/pavelanni/docgrader/internal/form"
	"github.com/pavelanni/docgrader/internal/handler/views"
	appI18n "github.com/pavelanni/docgrader/internal/i18n"
)

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, d views.AdminData) {
	recs, err := h.store.GetAll()
	if err != nil {
		slog.Error("failed to list records", "error", err)
		d.Error = appI18n.Td(r.Context(), "ErrStorage", map[string]any{"Error": err.Error()})
		status = http.StatusInternalServerError
	}
	d.Records = recs
	render(w, r, status, views.AdminPage(d))
}

func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, views.AdminData{})
}

func (h *Handler) handleDeleteLatest(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteLatest(); err != nil {
		slog.Error("failed to delete latest record", "error", err)
		h.renderAdmin(w, r, http.StatusInternalServerError, views.AdminData{
			Error: appI18n.Td(r.Context(), "ErrStorage", map[string]any{"Error": err.Error()}),
		})
		return
	}
	h.metrics.ObserveAdminAction("delete_latest")
	h.renderAdmin(w, r, http.StatusOK, views.AdminData{Message: appI18n.T(r.Context(), "MsgDeletedLatest")})
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("record_id")
	id, err := form.ParseRecordID(raw)
	if err != nil {
		slog.Warn("rejected record id", "value", raw)
		h.renderAdmin(w, r, http.StatusBadRequest, views.AdminData{Error: appI18n.T(r.Context(), "ErrInvalidRecordID")})
		return
	}

	if err := h.store.DeleteByID(id); err != nil {
		slog.Error("failed to delete record", "id", id, "error", err)
		h.renderAdmin(w, r, http.StatusInternalServerError, views.AdminData{
			Error: appI18n.Td(r.Context(), "ErrStorage", map[string]any{"Error": err.Error()}),
		})
		return
	}
	h.metrics.ObserveAdminAction("delete_by_id")
	h.renderAdmin(w, r, http.StatusOK, views.AdminData{
		Message: appI18n.Td(r.Context(), "MsgDeletedID", map[string]any{"ID": id}),
	})
}

func (h *Handler) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(); err != nil {
		slog.Error("failed to clear records", "error", err)
		h.renderAdmin(w, r, http.StatusInternalServerError, views.AdminData{
			Error: appI18n.Td(r.Context(), "ErrStorage", map[string]any{"Error": err.Error()}),
		})
		return
	}
	h.metrics.ObserveAdminAction("clear")
	h.renderAdmin(w, r, http.StatusOK, views.AdminData{Message: appI18n.T(r.Context(), "MsgCleared")})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	recs, err := h.store.GetAll()
	if err != nil {
		slog.Error("failed to list records", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := export.Render(format, recs)
	if err != nil {
		slog.Error("failed to render export", "format", format, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveAdminAction("export_" + string(format))
	slog.Info("exported records", "format", format, "count", len(recs))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}
