package ui

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"

	"bank-analytics/internal/clarify"
	"bank-analytics/internal/insight"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/service/analytics"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

var exampleQueries = []string{
	"Which branch has the highest gold loan?",
	"Top 3 branches by UPI transactions in Q1 2024",
	"Show card transaction trend for 2024",
	"Compare gold loan and home loan by branch",
	"Branches where UPI grows faster than card transactions",
	"Average credit score in Mumbai and Pune",
}

func queryForm(query string) Node {
	examples := make([]Node, 0, len(exampleQueries))
	for _, q := range exampleQueries {
		examples = append(examples, Li(A(Href("/ui/report?q="+url.QueryEscape(q)), Text(q))))
	}
	return Div(
		Class(cardClass()),
		Form(
			Method("get"),
			Action("/ui/report"),
			Input(Type("text"), Name("q"), Class("query-input"), Value(query),
				Placeholder("Ask about loans, payments or customers"), AutoFocus()),
			Button(Type("submit"), Class(primaryButtonClass()), Text("Ask")),
		),
		P(Class(mutedClass()), Text("Try one of these:")),
		Ul(Group(examples)),
	)
}

func homePage() Node {
	return appPage("Ask a question", "ask", queryForm(""))
}

func reportPage(query string, resp *analytics.Response) Node {
	res := resp.Result
	if res == nil || !res.Success {
		msg := "The query failed."
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return appPage("Report", "ask",
			queryForm(query),
			Div(Class(cardClass()),
				H2(Text("No answer")),
				P(statusLabel("failed", "danger"), Text(" "+msg)),
			),
			clarificationsCard(resp.Clarifications),
		)
	}

	var p plan.Plan
	if resp.Plan != nil {
		p = *resp.Plan
	}
	headers, rows := insight.Table(res, p)

	headerCells := make([]Node, 0, len(headers))
	for _, h := range headers {
		headerCells = append(headerCells, Th(Text(h)))
	}
	bodyRows := make([]Node, 0, len(rows))
	for _, row := range rows {
		cells := make([]Node, 0, len(row))
		for i, c := range row {
			if i == 0 {
				cells = append(cells, Td(Text(c)))
			} else {
				cells = append(cells, Td(Class("num"), Text(c)))
			}
		}
		bodyRows = append(bodyRows, Tr(Group(cells)))
	}

	return appPage("Report", "ask",
		queryForm(query),
		Div(Class(cardClass()),
			H2(Text("Insights")),
			Pre(Class("insights"), Text(resp.Insights)),
			P(Class(mutedClass()),
				Text(fmt.Sprintf("Planned by %s on dataset %s in %d ms. ", resp.Source, p.Dataset, resp.DurationMs)),
				A(Href("/ui/report.csv?q="+url.QueryEscape(query)), Text("Download CSV")),
			),
		),
		chartCard(resp.Chart),
		Div(Class(cardClass("table-wrap")),
			H2(Text("Data")),
			Table(
				THead(Tr(Group(headerCells))),
				TBody(Group(bodyRows)),
			),
		),
	)
}

func clarificationsCard(questions []clarify.Question) Node {
	if len(questions) == 0 {
		return nil
	}
	items := make([]Node, 0, len(questions))
	for _, q := range questions {
		items = append(items, Li(Strong(Text(q.Prompt)), Text(" "+strings.Join(q.Options, " / "))))
	}
	return Div(Class(cardClass()),
		H2(Text("Could you be more specific?")),
		Ul(Group(items)),
	)
}

// chartCard draws the suggested chart as plain CSS bars. Grouped bars are
// drawn one series after another.
func chartCard(spec *insight.ChartSpec) Node {
	if spec == nil || len(spec.Series) == 0 {
		return nil
	}
	if spec.Type == insight.ChartIndicator {
		var v float64
		if pts := spec.Series[0].Points; len(pts) > 0 {
			v = pts[0].Value
		}
		return Div(Class(cardClass()),
			H2(Text(spec.Title)),
			Div(Class("indicator"), Text(insight.FormatNumber(v))),
		)
	}

	var peak float64
	for _, s := range spec.Series {
		for _, pt := range s.Points {
			peak = math.Max(peak, math.Abs(pt.Value))
		}
	}

	nodes := []Node{H2(Text(spec.Title))}
	if spec.Subtitle != "" {
		nodes = append(nodes, P(Class(mutedClass()), Text(spec.Subtitle)))
	}
	for _, s := range spec.Series {
		if len(spec.Series) > 1 {
			nodes = append(nodes, H3(Text(s.Name)))
		}
		for _, pt := range s.Points {
			width := 0.0
			if peak > 0 {
				width = math.Abs(pt.Value) / peak * 100
			}
			barClass := "bar"
			if slices.Contains(spec.Highlight, pt.Key) {
				barClass += " highlight"
			}
			nodes = append(nodes, Div(Class("bar-row"),
				Span(Class("bar-label"), Text(pt.Key)),
				Div(Class(barClass), Style(fmt.Sprintf("width:%.1f%%", width))),
				Span(Class(mutedClass()), Text(insight.FormatNumber(pt.Value))),
			))
		}
	}
	return Div(Class(cardClass("chart")), Group(nodes))
}
