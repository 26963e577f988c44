package detector

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"bank-analytics/internal/domain"
)

// MetricKeyword maps a phrase to the metric column it names.
type MetricKeyword struct {
	Phrase  string `yaml:"phrase"`
	Column  string `yaml:"column"`
	Dataset string `yaml:"dataset"`
}

// DatasetHint lists words that vote for a dataset when no metric matched.
type DatasetHint struct {
	Dataset string   `yaml:"dataset"`
	Words   []string `yaml:"words"`
}

// Vocabulary is the keyword configuration of a Detector. A Detector copies
// the vocabulary it is built from, so a Vocabulary value may be reused.
type Vocabulary struct {
	Metrics []MetricKeyword `yaml:"metrics"`
	// ValueUpgrades maps a volume column to its value counterpart, applied
	// when any of ValueWords occurs in the query.
	ValueUpgrades map[string]string `yaml:"value_upgrades"`
	ValueWords    []string          `yaml:"value_words"`

	Branches           []string `yaml:"branches"`
	AllBranchesPhrases []string `yaml:"all_branches_phrases"`

	ComparisonKeywords    []string `yaml:"comparison_keywords"`
	MultiMetricConnectors []string `yaml:"multi_metric_connectors"`
	// CrossGrowthPatterns are regular expressions.
	CrossGrowthPatterns []string `yaml:"cross_growth_patterns"`

	GrowthKeywords []string `yaml:"growth_keywords"`
	TrendKeywords  []string `yaml:"trend_keywords"`
	MeanKeywords   []string `yaml:"mean_keywords"`
	CountKeywords  []string `yaml:"count_keywords"`
	// RateColumnHints mark metric columns that are averaged rather than summed.
	RateColumnHints []string `yaml:"rate_column_hints"`

	HighestKeywords []string `yaml:"highest_keywords"`
	LowestKeywords  []string `yaml:"lowest_keywords"`

	DatasetHints []DatasetHint `yaml:"dataset_hints"`
}

// DefaultVocabulary returns the built-in keyword tables.
func DefaultVocabulary() Vocabulary {
	branches := domain.Branches()
	for i, b := range branches {
		branches[i] = lower(b)
	}
	return Vocabulary{
		Metrics: []MetricKeyword{
			{"gold loan", "gold_loan_amt", domain.DatasetLoan},
			{"gold loans", "gold_loan_amt", domain.DatasetLoan},
			{"gold lending", "gold_loan_amt", domain.DatasetLoan},
			{"home loan", "home_loan_amt", domain.DatasetLoan},
			{"home loans", "home_loan_amt", domain.DatasetLoan},
			{"housing loan", "home_loan_amt", domain.DatasetLoan},
			{"mortgage", "home_loan_amt", domain.DatasetLoan},
			{"personal loan", "personal_loan_amt", domain.DatasetLoan},
			{"personal loans", "personal_loan_amt", domain.DatasetLoan},
			{"fixed deposit", "fd_deposit_amt", domain.DatasetLoan},
			{"fixed deposits", "fd_deposit_amt", domain.DatasetLoan},
			{"fd", "fd_deposit_amt", domain.DatasetLoan},
			{"deposits", "fd_deposit_amt", domain.DatasetLoan},
			{"deposit", "fd_deposit_amt", domain.DatasetLoan},
			{"casa", "casa_balance", domain.DatasetLoan},
			{"current account", "casa_balance", domain.DatasetLoan},
			{"savings account", "casa_balance", domain.DatasetLoan},
			{"npa", "npa_percent", domain.DatasetLoan},
			{"non performing", "npa_percent", domain.DatasetLoan},
			{"bad loan", "npa_percent", domain.DatasetLoan},
			{"bad loans", "npa_percent", domain.DatasetLoan},

			{"upi", "upi_volume", domain.DatasetPayment},
			{"unified payment", "upi_volume", domain.DatasetPayment},
			{"credit card", "card_txn_volume", domain.DatasetPayment},
			{"debit card", "card_txn_volume", domain.DatasetPayment},
			{"card", "card_txn_volume", domain.DatasetPayment},
			{"digital wallet", "wallet_txn_volume", domain.DatasetPayment},
			{"e-wallet", "wallet_txn_volume", domain.DatasetPayment},
			{"wallet", "wallet_txn_volume", domain.DatasetPayment},
			{"fraud rate", "fraud_rate_percent", domain.DatasetPayment},
			{"fraud", "fraud_rate_percent", domain.DatasetPayment},

			{"new customer", "new_customers", domain.DatasetCustomer},
			{"active customer", "active_customers", domain.DatasetCustomer},
			{"credit score", "avg_credit_score", domain.DatasetCustomer},
			{"default rate", "loan_default_rate_percent", domain.DatasetCustomer},
			{"loan default", "loan_default_rate_percent", domain.DatasetCustomer},
			{"churn", "customer_churn_rate_percent", domain.DatasetCustomer},
			{"attrition", "customer_churn_rate_percent", domain.DatasetCustomer},
			{"customer", "active_customers", domain.DatasetCustomer},
		},
		ValueUpgrades: map[string]string{
			"upi_volume":        "upi_value",
			"card_txn_volume":   "card_txn_value",
			"wallet_txn_volume": "wallet_txn_value",
		},
		ValueWords:         []string{"value", "amount", "rupee", "inr"},
		Branches:           branches,
		AllBranchesPhrases: []string{"all branches", "all branch", "every branch", "each branch"},
		ComparisonKeywords: []string{
			"compare", "versus", "vs", "between", "against",
			"which branch", "what branch", "which location",
			"highest", "lowest", "best", "worst", "top", "bottom",
			"all branches", "each branch", "by branch", "across branches",
			"ranking", "rank", "growing faster", "outperform",
			"find branches", "branches where", "faster than",
		},
		MultiMetricConnectors: []string{
			"compared to", "vs", "versus", "against",
			"and", "or", "plus", "&", "also", "with", ",",
		},
		CrossGrowthPatterns: []string{
			`growing faster than`,
			`grows? faster than`,
			`growth.*faster.*than`,
			`faster.*growth.*than`,
			`faster than`,
			`outpac(ing|e)`,
			`higher growth than`,
		},
		GrowthKeywords: []string{
			"growth", "trend", "increase", "decrease", "rise", "fall",
			"growing", "declining", "over time", "timeline", "progression",
		},
		TrendKeywords:   []string{"trend", "over time", "monthly", "timeline"},
		MeanKeywords:    []string{"average", "mean", "avg"},
		CountKeywords:   []string{"count", "how many"},
		RateColumnHints: []string{"percent", "rate", "score"},
		HighestKeywords: []string{"highest", "best", "most", "maximum"},
		LowestKeywords:  []string{"lowest", "worst", "least", "minimum"},
		DatasetHints: []DatasetHint{
			{domain.DatasetPayment, []string{"payment", "transaction", "digital", "transfer"}},
			{domain.DatasetCustomer, []string{"customer", "user", "client", "member", "performance"}},
			{domain.DatasetLoan, []string{"loan", "lending", "credit", "borrow", "disburse"}},
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Sections absent from the file
// keep their built-in values; sections present replace them entirely, except
// value_upgrades which is merged key by key.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	v := DefaultVocabulary()
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Validate checks that every metric keyword names a known column of its
// dataset.
func (v Vocabulary) Validate() error {
	for _, m := range v.Metrics {
		if m.Phrase == "" {
			return domain.ErrValidation("metric keyword for %q has an empty phrase", m.Column)
		}
		ds, ok := domain.LookupDataset(m.Dataset)
		if !ok {
			return domain.ErrValidation("metric keyword %q: unknown dataset %q", m.Phrase, m.Dataset)
		}
		if !ds.HasColumn(m.Column) {
			return domain.ErrValidation("metric keyword %q: dataset %q has no column %q", m.Phrase, m.Dataset, m.Column)
		}
	}
	return nil
}

func (v Vocabulary) clone() Vocabulary {
	out := v
	out.Metrics = slices.Clone(v.Metrics)
	out.ValueUpgrades = maps.Clone(v.ValueUpgrades)
	out.DatasetHints = make([]DatasetHint, len(v.DatasetHints))
	for i, h := range v.DatasetHints {
		out.DatasetHints[i] = DatasetHint{Dataset: h.Dataset, Words: slices.Clone(h.Words)}
	}
	for _, s := range []*[]string{
		&out.ValueWords, &out.Branches, &out.AllBranchesPhrases, &out.ComparisonKeywords,
		&out.MultiMetricConnectors, &out.CrossGrowthPatterns, &out.GrowthKeywords,
		&out.TrendKeywords, &out.MeanKeywords, &out.CountKeywords, &out.RateColumnHints,
		&out.HighestKeywords, &out.LowestKeywords,
	} {
		*s = slices.Clone(*s)
	}
	return out
}
