package ui

import (
	"fmt"
	"net/url"
	"strings"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/insight"
	"bank-analytics/internal/service/analytics"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

func historyPage(records []domain.QueryRecord, page domain.PageRequest, total int64) Node {
	if len(records) == 0 {
		return appPage("History", "history", emptyStateCard("No queries have been run yet.", "Ask a question", "/ui"))
	}

	rows := make([]Node, 0, len(records))
	for _, rec := range records {
		status := statusLabel("ok", "success")
		if !rec.Success {
			status = statusLabel("failed", "danger")
		}
		answer := stringPtr(rec.Error)
		if rec.Value != nil {
			answer = insight.FormatNumber(*rec.Value)
		}
		rows = append(rows, Tr(
			data.Show(containsExpr(rec.Query+" "+rec.Source)),
			Td(Text(formatTime(rec.CreatedAt))),
			Td(A(Href("/ui/report?q="+url.QueryEscape(rec.Query)), Text(rec.Query))),
			Td(Text(rec.Source)),
			Td(status),
			Td(Text(answer)),
			Td(Class("num"), Text(fmt.Sprintf("%d ms", rec.DurationMs))),
		))
	}

	return appPage("History", "history",
		quickFilterCard("Filter by query text or planner"),
		Div(Class(cardClass("table-wrap")),
			Table(
				THead(Tr(Th(Text("When")), Th(Text("Query")), Th(Text("Planner")), Th(Text("Status")), Th(Text("Answer")), Th(Text("Took")))),
				TBody(Group(rows)),
			),
		),
		paginationCard("/ui/history", page, total),
	)
}

func datasetsPage(infos []analytics.DatasetInfo) Node {
	cards := make([]Node, 0, len(infos))
	for _, ds := range infos {
		status := statusLabel("loaded", "success")
		detail := fmt.Sprintf("%d rows from %s", ds.Rows, ds.File)
		if !ds.Loaded {
			status = statusLabel("not loaded", "danger")
			detail = "Expected file: " + ds.File
		}
		cards = append(cards, Div(Class(cardClass()),
			data.Show(containsExpr(ds.Name+" "+strings.Join(ds.Columns, " "))),
			H2(Text(ds.Name), Text(" "), status),
			P(Class(mutedClass()), Text(detail)),
			P(Text("Default metric: "+insight.Label(ds.DefaultMetric))),
			P(Class(mutedClass()), Text("Columns: "+strings.Join(ds.Columns, ", "))),
		))
	}
	return appPage("Datasets", "datasets",
		quickFilterCard("Filter by dataset or column"),
		Group(cards),
	)
}
