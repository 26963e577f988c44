package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-analytics/internal/db"
	"bank-analytics/internal/db/repository"
	"bank-analytics/internal/domain"
	"bank-analytics/internal/loader"
	"bank-analytics/internal/metrics"
	"bank-analytics/internal/parser"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loanTable() *table.Table {
	return table.MustNew(
		[]string{"date", "branch", "gold_loan_amt", "home_loan_amt"},
		[][]any{
			{"2024-01-31", "Mumbai", 100, 50},
			{"2024-01-31", "Delhi", 200, 10},
			{"2024-01-31", "Pune", 0, 30},
			{"2024-02-29", "Mumbai", 150, 50},
			{"2024-02-29", "Delhi", 180, 20},
			{"2024-02-29", "Pune", 40, 30},
			{"2024-03-31", "Mumbai", 200, 60},
			{"2024-03-31", "Delhi", 160, 40},
			{"2024-03-31", "Pune", 80, 30},
		},
	)
}

func tables() map[string]*table.Table {
	return map[string]*table.Table{domain.DatasetLoan: loanTable()}
}

// fakePlanner returns a fixed plan bag.
type fakePlanner struct {
	raw    plan.Raw
	source parser.Source
	panics bool
}

func (f *fakePlanner) Parse(_ context.Context, _ string) (plan.Raw, parser.Source) {
	if f.panics {
		panic("planner exploded")
	}
	return f.raw, f.source
}

// failingHistory rejects every write.
type failingHistory struct{}

func (failingHistory) Create(context.Context, *domain.QueryRecord) error {
	return errors.New("disk full")
}

func (failingHistory) List(context.Context, domain.QueryHistoryFilter) ([]domain.QueryRecord, int64, error) {
	return nil, 0, nil
}

func newService(t *testing.T, planner Planner) (*Service, *repository.QueryHistoryRepo) {
	t.Helper()
	repo := repository.NewQueryHistoryRepo(db.OpenTestSQLite(t))
	return New(planner, loader.NewStaticCatalog(tables()), repo, testLogger()), repo
}

func TestExecute_PackageLevel(t *testing.T) {
	res := Execute(tables(), "total gold loan in Mumbai")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 450.0, res.Value)

	res = Execute(tables(), "which branch has the highest gold loan")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Delhi", res.Winner)
	assert.Equal(t, 540.0, res.Value)
}

func TestExecute_MissingDataset(t *testing.T) {
	res := Execute(tables(), "total upi transactions")
	assert.False(t, res.Success)
	assert.Equal(t, "Dataset 'payment' not found. Available: ['loan']", res.Error)
}

func TestExecute_EmptyQuery(t *testing.T) {
	svc, _ := newService(t, &fakePlanner{})
	resp := svc.Execute(context.Background(), "   ")
	assert.False(t, resp.Success())
	assert.Contains(t, resp.Result.Error, "must not be empty")
	assert.NotEmpty(t, resp.ID)
}

func TestService_Execute_DecoratesAndRecords(t *testing.T) {
	planner := &fakePlanner{
		raw: plan.Raw{
			"comparison_type": plan.ComparisonBranch,
			"metric":          "gold_loan_amt",
			"limit":           2,
		},
		source: parser.SourceLLM,
	}
	svc, repo := newService(t, planner)
	reg := prometheus.NewRegistry()
	svc.SetMetrics(metrics.New(reg))

	resp := svc.Execute(context.Background(), "top 2 branches by gold loan")
	require.True(t, resp.Success(), resp.Result.Error)
	assert.Equal(t, "llm", resp.Source)
	assert.Equal(t, []string{"Delhi", "Mumbai"}, resp.Result.ComparisonData.Keys())
	assert.Contains(t, resp.Insights, "Winner: Delhi")
	require.NotNil(t, resp.Chart)
	assert.Equal(t, "bar", resp.Chart.Type)
	require.NotNil(t, resp.Plan)
	assert.Equal(t, domain.DatasetLoan, resp.Plan.Dataset)

	recs, total, err := repo.List(context.Background(), domain.QueryHistoryFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, resp.ID, recs[0].ID)
	assert.True(t, recs[0].Success)
	require.NotNil(t, recs[0].Value)
	assert.Equal(t, 540.0, *recs[0].Value)

	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(recs[0].PlanJSON), &stored))
	assert.Equal(t, "gold_loan_amt", stored["metric"])

	n, err := testutil.GatherAndCount(reg, "bank_analytics_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_Execute_FailureRecorded(t *testing.T) {
	planner := &fakePlanner{
		raw:    plan.Raw{"metric": "gold_loan_amt", "filters": map[string]any{"branch": []any{"atlantis"}}},
		source: parser.SourceFallback,
	}
	svc, repo := newService(t, planner)

	resp := svc.Execute(context.Background(), "gold loan in atlantis")
	assert.False(t, resp.Success())
	assert.Equal(t, domain.NoDataMessage, resp.Result.Error)
	assert.Empty(t, resp.Insights)
	assert.Nil(t, resp.Chart)

	success := false
	recs, _, err := repo.List(context.Background(), domain.QueryHistoryFilter{Success: &success})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Error)
	assert.Equal(t, domain.NoDataMessage, *recs[0].Error)
}

func TestService_Execute_AmbiguousFailureSuggestsClarifications(t *testing.T) {
	planner := &fakePlanner{raw: plan.Raw{"metric": "no_such_column"}, source: parser.SourceFallback}
	svc, _ := newService(t, planner)

	resp := svc.Execute(context.Background(), "show loans")
	assert.False(t, resp.Success())
	assert.NotEmpty(t, resp.Clarifications)
}

func TestService_Execute_RecoversPanics(t *testing.T) {
	svc, _ := newService(t, &fakePlanner{panics: true})
	resp := svc.Execute(context.Background(), "total gold loan")
	assert.False(t, resp.Success())
	assert.Equal(t, "internal error: planner exploded", resp.Result.Error)

	svc2 := New(&fakePlanner{raw: plan.Raw{"metric": "gold_loan_amt"}}, panickyTables{}, nil, testLogger())
	resp = svc2.Execute(context.Background(), "total gold loan")
	assert.False(t, resp.Success())
	assert.Equal(t, "internal error: catalog corrupted", resp.Result.Error)
}

type panickyTables struct{}

func (panickyTables) Get(string) (*table.Table, bool) { panic("catalog corrupted") }
func (panickyTables) Names() []string                 { return nil }

func TestService_Execute_HistoryFailureIgnored(t *testing.T) {
	svc := New(&fakePlanner{raw: plan.Raw{"metric": "gold_loan_amt"}}, loader.NewStaticCatalog(tables()), failingHistory{}, testLogger())
	resp := svc.Execute(context.Background(), "total gold loan")
	require.True(t, resp.Success())
	assert.Equal(t, 1110.0, resp.Result.Value)
}

func TestService_ExecutePlan(t *testing.T) {
	svc, _ := newService(t, &fakePlanner{})
	resp := svc.ExecutePlan(context.Background(), plan.Raw{
		"metric":      "home_loan_amt",
		"aggregation": "mean",
		"filters":     map[string]any{"branch": "pune"},
	})
	require.True(t, resp.Success(), resp.Result.Error)
	assert.Equal(t, SourcePlan, resp.Source)
	assert.Equal(t, 30.0, resp.Result.Value)
}

func TestService_Datasets(t *testing.T) {
	svc, _ := newService(t, &fakePlanner{})
	infos := svc.Datasets()
	require.Len(t, infos, 3)
	assert.Equal(t, domain.DatasetLoan, infos[0].Name)
	assert.True(t, infos[0].Loaded)
	assert.Equal(t, 9, infos[0].Rows)
	assert.False(t, infos[1].Loaded)
	assert.NotEmpty(t, infos[1].Columns)
}

func TestService_History_Disabled(t *testing.T) {
	svc := New(&fakePlanner{}, loader.NewStaticCatalog(nil), nil, testLogger())
	recs, total, err := svc.History(context.Background(), domain.QueryHistoryFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, recs)
}
