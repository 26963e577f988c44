package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bank-analytics/internal/domain"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

type navItem struct {
	Label string
	Href  string
	Key   string
}

var navItems = []navItem{
	{Label: "Ask", Href: "/ui", Key: "ask"},
	{Label: "History", Href: "/ui/history", Key: "history"},
	{Label: "Datasets", Href: "/ui/datasets", Key: "datasets"},
}

const appCSS = `
body{font-family:Inter,system-ui,sans-serif;margin:0;color:#1f2328;background:#f6f8fa}
.app-shell{display:flex;min-height:100vh}
.app-sidebar{width:200px;padding:16px;background:#fff;border-right:1px solid #d0d7de}
.app-nav a{display:block;padding:6px 8px;border-radius:6px;color:#1f2328;text-decoration:none}
.app-nav a.active{background:#ddf4ff;font-weight:600}
.app-main{flex:1;padding:24px;max-width:1100px}
.card{background:#fff;border:1px solid #d0d7de;border-radius:6px;padding:16px;margin-bottom:16px}
.muted{color:#656d76;font-size:13px}
.btn{padding:5px 14px;border:1px solid #d0d7de;border-radius:6px;background:#f6f8fa;cursor:pointer}
.btn-primary{background:#1f883d;color:#fff;border-color:#1f883d}
.query-input{width:70%;padding:6px 8px;font-size:15px}
table{border-collapse:collapse;width:100%}
th,td{text-align:left;padding:4px 8px;border-bottom:1px solid #eaeef2}
td.num{text-align:right;font-variant-numeric:tabular-nums}
.bar-row{display:flex;align-items:center;gap:8px;margin:2px 0}
.bar-label{width:140px;font-size:13px}
.bar{height:14px;background:#54aeff;border-radius:2px}
.bar.highlight{background:#1f883d}
.indicator{font-size:40px;font-weight:700}
.Label{font-size:12px;padding:1px 7px;border-radius:10px;border:1px solid #d0d7de}
.Label--success{color:#1a7f37;border-color:#1a7f37}
.Label--danger{color:#cf222e;border-color:#cf222e}
pre.insights{white-space:pre-wrap;font-size:14px}
`

func appPage(title, active string, body ...Node) Node {
	nav := make([]Node, 0, len(navItems))
	for _, item := range navItems {
		className := "app-nav-link"
		if item.Key == active {
			className += " active"
		}
		nav = append(nav, A(Href(item.Href), Class(className), Text(item.Label)))
	}

	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | Bank Analytics")),
			Link(Rel("icon"), Href("data:,")),
			StyleEl(Raw(appCSS)),
			Script(
				Type("module"),
				Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"),
			),
		),
		Body(
			Main(Class("app-shell"),
				Aside(
					Class("app-sidebar"),
					Div(
						Class("brand"),
						Strong(Text("Bank Analytics")),
						P(Class(mutedClass()), Text("Branch loans, payments and customers")),
					),
					Nav(Class("app-nav"), Group(nav)),
				),
				Section(
					Class("app-main"),
					H1(Class("page-title"), Text(title)),
					Div(Class("content"), Group(body)),
				),
			),
		),
	)
}

func errorPage(title, message string) Node {
	return appPage(title, "",
		Div(Class(cardClass()),
			P(Text(message)),
			P(A(Href("/ui"), Text("Back to the query page"))),
		),
	)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.RFC3339)
}

func stringPtr(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "-"
	}
	return *v
}

func containsExpr(value string) string {
	lower := strings.ToLower(value)
	return "$q === '' || " + strconv.Quote(lower) + ".includes($q.toLowerCase())"
}

func paginationCard(basePath string, page domain.PageRequest, total int64) Node {
	nextToken := domain.NextPageToken(page.Offset(), page.Limit(), total)
	if nextToken == "" {
		return Div(Class(cardClass()), P(Class(mutedClass()), Text(fmt.Sprintf("Showing %d of %d entries.", min(page.Limit(), int(total)), total))))
	}
	url := fmt.Sprintf("%s?max_results=%d&page_token=%s", basePath, page.Limit(), nextToken)
	return Div(
		Class(cardClass()),
		P(Class(mutedClass()), Text(fmt.Sprintf("Showing up to %d of %d entries.", page.Limit(), total))),
		A(Href(url), Text("Next page ->")),
	)
}

func cardClass(extra ...string) string {
	parts := []string{"card"}
	parts = append(parts, extra...)
	return strings.Join(parts, " ")
}

func mutedClass() string {
	return "muted"
}

func primaryButtonClass() string {
	return "btn btn-primary"
}

// quickFilterCard binds a client-side filter signal $q for rows carrying
// data.Show(containsExpr(...)).
func quickFilterCard(placeholder string) Node {
	return Div(
		Class(cardClass("toolbar")),
		data.Signals(map[string]any{"q": ""}),
		Label(Class("sr-only"), Text("Quick filter")),
		Input(Type("search"), Class("query-input"), Placeholder(placeholder), data.Bind("q"), AutoComplete("off")),
	)
}

func emptyStateCard(message, ctaLabel, ctaHref string) Node {
	cta := Node(nil)
	if ctaLabel != "" && ctaHref != "" {
		cta = A(Href(ctaHref), Class(primaryButtonClass()), Text(ctaLabel))
	}
	return Div(
		Class(cardClass("blankslate")),
		P(Class(mutedClass()), Text(message)),
		cta,
	)
}

func statusLabel(text, tone string) Node {
	className := "Label"
	if tone != "" {
		className += " Label--" + tone
	}
	return Span(Class(className), Text(text))
}
