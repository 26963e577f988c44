// Package clarify flags vague queries and proposes clarifications before
// they reach the parser.
package clarify

import (
	"fmt"
	"strings"
)

// Question is one clarification with its answer options.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

var (
	vagueTerms = []string{"show", "give", "tell", "display", "present", "what", "how", "the"}

	specificMetrics = []string{
		"gold loan", "home loan", "personal loan",
		"upi", "card", "wallet",
		"new customer", "active customer",
		"npa", "fraud", "churn", "credit score",
		"casa", "fd", "deposit",
	}

	actionWords = []string{"highest", "lowest", "trend", "growth", "compare", "total", "average"}
)

// IsAmbiguous reports whether q is too short or too vague to plan reliably.
func IsAmbiguous(q string) bool {
	q = strings.ToLower(q)
	if len(strings.Fields(q)) <= 2 {
		return true
	}
	return containsAny(q, vagueTerms...) && !containsAny(q, specificMetrics...)
}

// Suggestions lists the clarifying questions that apply to q, in a fixed
// order.
func Suggestions(q string) []Question {
	q = strings.ToLower(q)
	var out []Question

	if strings.Contains(q, "loan") && !containsAny(q, "gold", "home", "personal") {
		out = append(out, Question{"Which type of loan?",
			[]string{"Gold loan", "Home loan", "Personal loan", "All loans combined"}})
	}
	if containsAny(q, "transaction", "payment") && !containsAny(q, "upi", "card", "wallet") {
		out = append(out, Question{"Which payment type?",
			[]string{"UPI transactions", "Card transactions", "Wallet transactions", "All payment types"}})
	}
	if strings.Contains(q, "customer") && !containsAny(q, "new", "active") {
		out = append(out, Question{"Which customer metric?",
			[]string{"New customers", "Active customers", "Customer churn", "Credit score"}})
	}
	if strings.Contains(q, "deposit") && !containsAny(q, "fd", "casa", "fixed") {
		out = append(out, Question{"Which deposit type?",
			[]string{"FD deposits", "CASA balance", "All deposits"}})
	}
	if !containsAny(q, actionWords...) {
		out = append(out, Question{"What would you like to see?",
			[]string{"Total amount", "Highest branch", "Trend over time", "Growth rate", "Compare all branches"}})
	}
	return out
}

// AutoClarify rewrites q with default choices for vague terms. It returns
// false when no rewrite applies.
func AutoClarify(q string) (string, bool) {
	lower := strings.ToLower(q)
	out := lower

	if strings.Contains(lower, "loan") && !containsAny(lower, "gold", "home", "personal") {
		out = strings.ReplaceAll(out, "loan", "gold loan")
	}
	if strings.Contains(lower, "transaction") && !containsAny(lower, "upi", "card", "wallet") {
		out = strings.ReplaceAll(out, "transaction", "upi transaction")
	}
	if strings.Contains(lower, "customer") && !containsAny(lower, "new", "active") {
		out = strings.ReplaceAll(out, "customer", "active customer")
	}
	if !containsAny(lower, "highest", "lowest", "trend", "total", "compare") {
		out = "total " + out
	}

	if out == lower {
		return q, false
	}
	return out, true
}

// FormatPrompt renders questions as a numbered prompt for a terminal.
func FormatPrompt(questions []Question) string {
	var b strings.Builder
	b.WriteString("Your query seems ambiguous. Please clarify:\n")
	for _, qn := range questions {
		fmt.Fprintf(&b, "\n%s\n", qn.Prompt)
		for i, opt := range qn.Options {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, opt)
		}
	}
	b.WriteString("\nOr rephrase your query with more details.")
	return b.String()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
