package domain

import (
	"slices"
	"strings"
)

// Dataset names. These are part of the contract with the text-generation
// backend and must match the prompt text exactly.
const (
	DatasetLoan     = "loan"
	DatasetPayment  = "payment"
	DatasetCustomer = "customer"
)

// Well-known column names shared by every dataset.
const (
	ColumnDate   = "date"
	ColumnBranch = "branch"
)

// Date bounds of the bundled datasets. Relative windows are anchored on the
// data's own maximum date, never on the wall clock.
const (
	DataStartDate = "2024-01-01"
	DataEndDate   = "2024-12-30"
)

// DatasetSchema describes one of the fixed tabular datasets.
type DatasetSchema struct {
	Name          string
	File          string
	Columns       []string
	DefaultMetric string
}

// HasColumn reports whether the schema declares the column.
func (d DatasetSchema) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// Metrics returns the numeric metric columns (everything except date and branch).
func (d DatasetSchema) Metrics() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c == ColumnDate || c == ColumnBranch {
			continue
		}
		out = append(out, c)
	}
	return out
}

var datasets = []DatasetSchema{
	{
		Name: DatasetLoan,
		File: "loan_deposit_performance.csv",
		Columns: []string{
			ColumnDate, ColumnBranch, "gold_loan_amt", "home_loan_amt", "personal_loan_amt",
			"fd_deposit_amt", "casa_balance", "npa_percent",
		},
		DefaultMetric: "gold_loan_amt",
	},
	{
		Name: DatasetPayment,
		File: "digital_payments_data.csv",
		Columns: []string{
			ColumnDate, ColumnBranch, "upi_volume", "upi_value", "card_txn_volume",
			"card_txn_value", "wallet_txn_volume", "wallet_txn_value", "fraud_rate_percent",
		},
		DefaultMetric: "upi_volume",
	},
	{
		Name: DatasetCustomer,
		File: "customer_credit_data.csv",
		Columns: []string{
			ColumnDate, ColumnBranch, "new_customers", "active_customers", "avg_credit_score",
			"loan_default_rate_percent", "customer_churn_rate_percent",
		},
		DefaultMetric: "active_customers",
	},
}

var branches = []string{
	"Mumbai", "Delhi", "Pune", "Bangalore", "Chennai",
	"Kolkata", "Hyderabad", "Ahmedabad", "Jaipur", "Surat",
}

// Datasets returns the registered dataset schemas in canonical order.
func Datasets() []DatasetSchema {
	out := make([]DatasetSchema, len(datasets))
	for i, d := range datasets {
		d.Columns = slices.Clone(d.Columns)
		out[i] = d
	}
	return out
}

// DatasetNames returns the three dataset names in canonical order.
func DatasetNames() []string {
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = d.Name
	}
	return names
}

// LookupDataset returns the schema registered under name.
func LookupDataset(name string) (DatasetSchema, bool) {
	for _, d := range datasets {
		if d.Name == name {
			d.Columns = slices.Clone(d.Columns)
			return d, true
		}
	}
	return DatasetSchema{}, false
}

// DefaultMetric returns the metric used when a query names a dataset but no
// metric. Unknown datasets fall back to gold_loan_amt.
func DefaultMetric(dataset string) string {
	if d, ok := LookupDataset(dataset); ok {
		return d.DefaultMetric
	}
	return "gold_loan_amt"
}

// DatasetForColumn returns the dataset that declares column, if any.
func DatasetForColumn(column string) (string, bool) {
	if column == ColumnDate || column == ColumnBranch {
		return "", false
	}
	for _, d := range datasets {
		if d.HasColumn(column) {
			return d.Name, true
		}
	}
	return "", false
}

// Branches returns the canonical branch names.
func Branches() []string {
	return slices.Clone(branches)
}

// IsBranch reports whether name is a known branch, case-insensitively.
func IsBranch(name string) bool {
	for _, b := range branches {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}
