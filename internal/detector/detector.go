// Package detector implements the deterministic keyword-based query parser.
// It maps a free-text question to metrics, dataset, branch and date filters
// and a comparison shape, and builds canonical plans from them. It is used as
// the fallback when the text-generation backend is unavailable.
package detector

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
)

var (
	topNRe     = regexp.MustCompile(`\btop\s+(\d+)\b`)
	bottomNRe  = regexp.MustCompile(`\bbottom\s+(\d+)\b`)
	lastNRe    = regexp.MustCompile(`(?i)last\s+(\d+)\s+(day|week|month|year)s?`)
	quarterRe  = regexp.MustCompile(`(?i)\bq([1-4])\b.*?(\d{4})`)
	yearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
	loanWordRe = regexp.MustCompile(`\bloan\b`)
	monthRe    = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

type metricMatcher struct {
	MetricKeyword
	re *regexp.Regexp
}

type branchMatcher struct {
	name string
	re   *regexp.Regexp
}

// Detector is safe for concurrent use; it holds only immutable tables.
type Detector struct {
	vocab       Vocabulary
	metrics     []metricMatcher
	branches    []branchMatcher
	crossGrowth []*regexp.Regexp
}

// New compiles a Detector from vocab.
func New(vocab Vocabulary) (*Detector, error) {
	v := vocab.clone()
	d := &Detector{vocab: v}

	// Longest phrase first, so "home loan" consumes its span before any
	// shorter phrase inside it gets a chance to match.
	sorted := slices.Clone(v.Metrics)
	slices.SortStableFunc(sorted, func(a, b MetricKeyword) int {
		return cmp.Compare(len(b.Phrase), len(a.Phrase))
	})
	for _, m := range sorted {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(lower(m.Phrase)) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("metric keyword %q: %w", m.Phrase, err)
		}
		d.metrics = append(d.metrics, metricMatcher{MetricKeyword: m, re: re})
	}
	for _, b := range v.Branches {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(lower(b)) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("branch %q: %w", b, err)
		}
		d.branches = append(d.branches, branchMatcher{name: plan.Capitalize(b), re: re})
	}
	for _, p := range v.CrossGrowthPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("cross growth pattern %q: %w", p, err)
		}
		d.crossGrowth = append(d.crossGrowth, re)
	}
	return d, nil
}

// Default returns a Detector over DefaultVocabulary.
func Default() *Detector {
	d, err := New(DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return d
}

// IsComparisonQuery reports whether the query asks to rank or compare branches.
func (d *Detector) IsComparisonQuery(query string) bool {
	return containsAny(lower(query), d.vocab.ComparisonKeywords)
}

// IsCrossGrowthQuery reports whether the query asks which branches grow one
// metric faster than another.
func (d *Detector) IsCrossGrowthQuery(query string) bool {
	q := lower(query)
	for _, re := range d.crossGrowth {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// IsMultiMetricQuery reports whether the query names two or more metrics
// joined by a connector such as "and", "vs" or a comma.
func (d *Detector) IsMultiMetricQuery(query string) bool {
	metrics, _ := d.ExtractMetrics(query)
	if len(metrics) < 2 {
		return false
	}
	return containsAny(lower(query), d.vocab.MultiMetricConnectors)
}

// ExtractBranches returns the branches named in the query, capitalized, in
// registry order. An explicit "all branches" yields an empty list.
func (d *Detector) ExtractBranches(query string) []string {
	q := lower(query)
	if containsAny(q, d.vocab.AllBranchesPhrases) {
		return nil
	}
	var out []string
	for _, b := range d.branches {
		if b.re.MatchString(q) {
			out = append(out, b.name)
		}
	}
	return out
}

type metricHit struct {
	start   int
	column  string
	dataset string
}

// ExtractMetrics returns the metric columns named in the query, in the order
// they appear, and the dataset they belong to.
//
// Phrases are tried longest first and each match consumes its span, so a
// phrase lying inside an already matched span is ignored. When the query
// mentions a value word, volume columns are upgraded to their value
// counterparts. The dataset is the one most metrics belong to; with no
// metrics it is inferred from category words, defaulting to loan. A bare
// "loan" with no specific metric yields gold_loan_amt.
func (d *Detector) ExtractMetrics(query string) ([]string, string) {
	q := lower(query)
	wantsValue := containsAny(q, d.vocab.ValueWords)

	var hits []metricHit
	var consumed [][2]int
	for _, m := range d.metrics {
		for _, loc := range m.re.FindAllStringIndex(q, -1) {
			s, e := loc[0], loc[1]
			if insideAny(consumed, s, e) {
				continue
			}
			col := m.Column
			if wantsValue {
				if up, ok := d.vocab.ValueUpgrades[col]; ok {
					col = up
				}
			}
			if !slices.ContainsFunc(hits, func(h metricHit) bool { return h.column == col }) {
				hits = append(hits, metricHit{start: s, column: col, dataset: m.Dataset})
			}
			consumed = append(consumed, [2]int{s, e})
			break
		}
	}

	if len(hits) == 0 && loanWordRe.MatchString(q) {
		return []string{"gold_loan_amt"}, domain.DatasetLoan
	}
	if len(hits) == 0 {
		return nil, d.inferDataset(q)
	}

	slices.SortStableFunc(hits, func(a, b metricHit) int { return cmp.Compare(a.start, b.start) })
	columns := make([]string, len(hits))
	counts := map[string]int{}
	best := 0
	for i, h := range hits {
		columns[i] = h.column
		counts[h.dataset]++
		best = max(best, counts[h.dataset])
	}
	for _, h := range hits {
		if counts[h.dataset] == best {
			return columns, h.dataset
		}
	}
	return columns, domain.DatasetLoan
}

// ExtractDateRange recognizes, in priority order, "last N <unit>", "Q<n> ...
// <year>", "<month name> <year>" and a bare 20xx year. It returns nil when
// none matches.
func (d *Detector) ExtractDateRange(query string) *plan.DateFilter {
	q := lower(query)

	if m := lastNRe.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return plan.Relative(n, m[2])
		}
	}
	if m := quarterRe.FindStringSubmatch(q); m != nil {
		quarter, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		return plan.InQuarter(quarter, year)
	}
	if m := monthRe.FindStringSubmatch(q); m != nil {
		year, _ := strconv.Atoi(m[2])
		return plan.InMonth(monthNumbers[m[1]], year)
	}
	if m := yearRe.FindStringSubmatch(q); m != nil {
		year, _ := strconv.Atoi(m[1])
		return plan.InYear(year)
	}
	return nil
}

// BuildPlan is the full rule-based chain: cross growth, then comparison, then
// a plain aggregate.
func (d *Detector) BuildPlan(query string) plan.Plan {
	switch {
	case d.IsCrossGrowthQuery(query):
		return d.BuildCrossGrowthPlan(query)
	case d.IsComparisonQuery(query):
		return d.BuildComparisonPlan(query)
	default:
		return d.BuildSimplePlan(query)
	}
}

// BuildComparisonPlan builds a branch ranking plan.
//
// An explicit "top N" or "bottom N" sets the limit and direction. Two or more
// metrics joined by a connector produce a multi-metric comparison in which
// superlatives only set the direction, so every branch stays ranked. For a
// single metric, "highest" or "lowest" without an explicit N limits the
// result to the winner.
func (d *Detector) BuildComparisonPlan(query string) plan.Plan {
	if d.IsCrossGrowthQuery(query) {
		return d.BuildCrossGrowthPlan(query)
	}

	q := lower(query)
	metrics, dataset := d.ExtractMetrics(query)

	limit, sortOrder := 0, plan.SortDescending
	top := topNRe.FindStringSubmatch(q)
	bottom := bottomNRe.FindStringSubmatch(q)
	switch {
	case top != nil:
		limit, _ = strconv.Atoi(top[1])
	case bottom != nil:
		limit, _ = strconv.Atoi(bottom[1])
		sortOrder = plan.SortAscending
	case containsAny(q, d.vocab.LowestKeywords):
		sortOrder = plan.SortAscending
	}

	first := ""
	if len(metrics) > 0 {
		first = metrics[0]
	}
	p := plan.Plan{
		Dataset:          dataset,
		Aggregation:      d.aggregation(q, first, false),
		Filters:          branchFilter(d.ExtractBranches(query)),
		DateFilter:       d.ExtractDateRange(query),
		ComparisonColumn: domain.ColumnBranch,
		SortOrder:        sortOrder,
	}

	if len(metrics) >= 2 && containsAny(q, d.vocab.MultiMetricConnectors) {
		p.ComparisonType = plan.ComparisonMultiMetric
		p.Metrics = metrics
		p.Metric = metrics[0]
		p.Limit = limit
		return p
	}

	switch {
	case containsAny(q, d.vocab.HighestKeywords) && top == nil:
		limit = 1
	case containsAny(q, d.vocab.LowestKeywords) && bottom == nil:
		limit = 1
	}
	p.Limit = limit
	p.ComparisonType = plan.ComparisonBranch
	p.Metric = first
	if p.Metric == "" {
		p.Metric = domain.DefaultMetric(dataset)
	}
	return p
}

// BuildCrossGrowthPlan builds a plan comparing the growth of two metrics per
// branch. With fewer than two metrics in the query the second one defaults to
// gold_loan_amt, or fd_deposit_amt when gold_loan_amt is already the first.
// A query naming no metric at all starts from the dataset default.
func (d *Detector) BuildCrossGrowthPlan(query string) plan.Plan {
	metrics, dataset := d.ExtractMetrics(query)
	if len(metrics) == 0 {
		metrics = []string{domain.DefaultMetric(dataset)}
	}
	if len(metrics) < 2 {
		other := "gold_loan_amt"
		if len(metrics) > 0 && metrics[0] == "gold_loan_amt" {
			other = "fd_deposit_amt"
		}
		metrics = append(metrics, other)
	}
	metrics = metrics[:2]

	return plan.Plan{
		Dataset:          dataset,
		Metric:           metrics[0],
		Metrics:          metrics,
		MetricA:          metrics[0],
		MetricB:          metrics[1],
		Aggregation:      plan.AggGrowth,
		Filters:          branchFilter(d.ExtractBranches(query)),
		DateFilter:       d.ExtractDateRange(query),
		ComparisonType:   plan.ComparisonCrossGrowth,
		ComparisonColumn: domain.ColumnBranch,
		SortOrder:        plan.SortDescending,
	}
}

// BuildSimplePlan builds a standard aggregate over one metric. Trend words
// group the result by date and report levels, so growth wording falls back to
// sum there.
func (d *Detector) BuildSimplePlan(query string) plan.Plan {
	q := lower(query)
	metrics, dataset := d.ExtractMetrics(query)
	metric := domain.DefaultMetric(dataset)
	if len(metrics) > 0 {
		metric = metrics[0]
	}
	trend := containsAny(q, d.vocab.TrendKeywords)
	p := plan.Plan{
		Dataset:     dataset,
		Metric:      metric,
		Aggregation: d.aggregation(q, metric, trend),
		Filters:     branchFilter(d.ExtractBranches(query)),
		DateFilter:  d.ExtractDateRange(query),
		SortOrder:   plan.SortDescending,
	}
	if trend {
		p.GroupBy = domain.ColumnDate
	}
	return p
}

// aggregation picks the reduction named by the query's wording. A date-grouped
// series never uses growth.
func (d *Detector) aggregation(q, metric string, dateGrouped bool) string {
	switch {
	case !dateGrouped && containsAny(q, d.vocab.GrowthKeywords):
		return plan.AggGrowth
	case containsAny(q, d.vocab.MeanKeywords):
		return plan.AggMean
	case containsAny(q, d.vocab.CountKeywords):
		return plan.AggCount
	case containsAny(metric, d.vocab.RateColumnHints):
		return plan.AggMean
	}
	return plan.AggSum
}

// inferDataset scores each dataset by its hint words; ties go to the earlier
// hint and no hits at all default to loan.
func (d *Detector) inferDataset(q string) string {
	best, bestScore := domain.DatasetLoan, 0
	for _, h := range d.vocab.DatasetHints {
		score := 0
		for _, w := range h.Words {
			if strings.Contains(q, w) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = h.Dataset, score
		}
	}
	return best
}

func branchFilter(branches []string) map[string]plan.Filter {
	if len(branches) == 0 {
		return nil
	}
	return map[string]plan.Filter{domain.ColumnBranch: plan.InStrings(branches...)}
}

func insideAny(spans [][2]int, s, e int) bool {
	for _, sp := range spans {
		if sp[0] <= s && e <= sp[1] {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func lower(s string) string { return strings.ToLower(s) }
