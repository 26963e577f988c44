package ui

import (
	"github.com/go-chi/chi/v5"
)

func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Home)
	r.Get("/report", h.Report)
	r.Get("/report.csv", h.ReportCSV)
	r.Get("/history", h.History)
	r.Get("/datasets", h.Datasets)
}
