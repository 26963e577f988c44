package parser

import (
	"fmt"
	"strings"
	"sync"

	"bank-analytics/internal/domain"
)

// UserMessage wraps a query into the user turn sent to the backend.
func UserMessage(query string) string {
	return "Convert this query:\n\n" + query
}

var (
	promptOnce sync.Once
	promptText string
)

// SystemPrompt returns the planner instructions sent with every request. The
// dataset, column and branch names come from the schema registry so the
// backend and the engine always agree on them.
func SystemPrompt() string {
	promptOnce.Do(func() { promptText = buildSystemPrompt() })
	return promptText
}

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a banking analytics query planner.\n")
	b.WriteString("Convert the user query into a JSON execution plan using the schema below.\n\n")

	b.WriteString("DATASETS AND COLUMNS:\n")
	for _, ds := range domain.Datasets() {
		fmt.Fprintf(&b, "- %-10q: %s\n", ds.Name, strings.Join(ds.Columns, ", "))
	}
	fmt.Fprintf(&b, "\nBranches : %s\n", strings.Join(domain.Branches(), ", "))
	fmt.Fprintf(&b, "Date range: %s to %s\n\n", domain.DataStartDate, domain.DataEndDate)

	b.WriteString(`PLAN TYPES - set "type" to one of:
  "branch_comparison"              one metric ranked across branches
  "multi_metric_branch_comparison" multiple metrics side-by-side across branches
  "cross_metric_growth_comparison" branches where metric_a grows faster than metric_b
  "trend"                          metric over time (group_by = "date")
  "simple"                         single aggregated number

FIELDS:
  type, dataset, metric (single), metrics (list), metric_a, metric_b,
  aggregation, group_by, sort_order ("ascending"/"descending"), limit (int or null),
  filters: { branch: ["Mumbai","Pune"] },
  date_filter: one of:
    { "type":"relative", "n":6, "unit":"month" }
    { "type":"quarter",  "quarter":3, "year":2024, "months":[7,8,9] }
    { "type":"month",    "month":6, "year":2024 }
    { "type":"year",     "year":2024 }

AGGREGATIONS: sum, mean, growth, count, min, max, median
  - percent/rate columns  → mean
  - amounts/volumes       → sum
  - trend/growing         → growth

NATURAL LANGUAGE → COLUMN:
  deposit/fd/fixed deposit/savings → fd_deposit_amt
  gold loan / gl                   → gold_loan_amt
  home loan / housing / mortgage   → home_loan_amt
  personal loan / pl               → personal_loan_amt
  casa / current account           → casa_balance
  npa / non performing / bad loan  → npa_percent
  upi (default volume)             → upi_volume   ; if "value/amount" → upi_value
  card (default volume)            → card_txn_volume ; if "value/amount" → card_txn_value
  wallet                           → wallet_txn_volume ; if "value/amount" → wallet_txn_value
  fraud                            → fraud_rate_percent
  new customer / acquisition       → new_customers
  active customer                  → active_customers
  credit score                     → avg_credit_score
  default rate / loan default      → loan_default_rate_percent
  churn / attrition                → customer_churn_rate_percent
  generic "loan" (only if no specific loan type mentioned) → gold_loan_amt
  generic "performance"/"stats"    → active_customers (customer dataset)

RULES:
  - "top N"    → sort_order=descending, limit=N
  - "bottom N" → sort_order=ascending,  limit=N
  - "vs/and/both" with 2+ metrics     → multi_metric_branch_comparison, set metrics list
  - "highest X and Y"               → multi_metric_branch_comparison (NOT branch_comparison)
  - "growing faster than/outpacing"  → cross_metric_growth_comparison
  - "trend/over time/monthly"        → trend
`)
	fmt.Fprintf(&b, "  - For relative dates, data ends %s (use data max, not today)\n", domain.DataEndDate)
	b.WriteString("  - Vague query → pick most sensible default\n\n")
	b.WriteString("OUTPUT: valid JSON only - no markdown, no explanation.")
	return b.String()
}
