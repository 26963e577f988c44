package ui

import (
	"encoding/csv"
	"net/http"
	"strings"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/insight"
	"bank-analytics/internal/plan"
)

func (h *Handler) Home(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, homePage())
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
		return
	}
	resp := h.Analytics.Execute(r.Context(), q)
	renderHTML(w, http.StatusOK, reportPage(q, resp))
}

// ReportCSV answers q and downloads the flattened result table.
func (h *Handler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		renderHTML(w, http.StatusBadRequest, errorPage("Bad Request", "A question is required."))
		return
	}
	resp := h.Analytics.Execute(r.Context(), q)
	if !resp.Success() {
		renderHTML(w, http.StatusUnprocessableEntity, errorPage("No answer", resp.Result.Error))
		return
	}
	var p plan.Plan
	if resp.Plan != nil {
		p = *resp.Plan
	}
	headers, rows := insight.Table(resp.Result, p)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write(headers)
	_ = cw.WriteAll(rows)
	if err := cw.Error(); err != nil {
		h.Logger.Warn("write report csv", "error", err)
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	page := pageFromRequest(r, historyPageSize)
	records, total, err := h.Analytics.History(r.Context(), domain.QueryHistoryFilter{Page: page})
	if err != nil {
		h.Logger.Error("list history", "error", err)
		renderHTML(w, http.StatusInternalServerError, errorPage("History unavailable", err.Error()))
		return
	}
	renderHTML(w, http.StatusOK, historyPage(records, page, total))
}

func (h *Handler) Datasets(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, datasetsPage(h.Analytics.Datasets()))
}
