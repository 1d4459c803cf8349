package query

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	ierrors "github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
	"github.com/danilshahmanov/Infotecs/internal/store"
)

var testBase = time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(store.Config{DSN: store.MemoryDSN, QueryTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func putSummary(t *testing.T, st *store.Store, fileID string, avgIndicator float64, avgDuration int64) {
	t.Helper()
	summary := types.FileSummary{
		FileID:           fileID,
		FirstStart:       testBase,
		LastStart:        testBase.Add(time.Hour),
		MinDuration:      1,
		MaxDuration:      avgDuration * 2,
		AverageDuration:  avgDuration,
		MinIndicator:     0.1,
		MaxIndicator:     avgIndicator * 2,
		AverageIndicator: avgIndicator,
		MedianIndicator:  avgIndicator,
		Count:            10,
	}
	err := st.Transaction(context.Background(), func(tx *store.Tx) error {
		return tx.InsertSummary(context.Background(), &summary)
	})
	if err != nil {
		t.Fatalf("insert summary failed: %v", err)
	}
}

func f64(v float64) *float64 { return &v }
func str(v string) *string    { return &v }

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(Filter) bool
		wantErr bool
	}{
		{
			name:  "file name",
			query: "fileName=a.csv",
			check: func(f Filter) bool { return f.FileName != nil && *f.FileName == "a.csv" },
		},
		{
			name:  "indicator range",
			query: "minAverageIndicatorValue=1.5&maxAverageIndicatorValue=3",
			check: func(f Filter) bool {
				return *f.MinAverageIndicator == 1.5 && *f.MaxAverageIndicator == 3 && f.FileName == nil
			},
		},
		{
			name:  "blank values are absent",
			query: "fileName=&minAverageDuration=",
			check: func(f Filter) bool { return f.FileName == nil && f.MinAverageDuration == nil },
		},
		{
			name:    "not a number",
			query:   "minAverageDuration=abc&maxAverageDuration=3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			f, err := ParseFilter(values)
			if tt.wantErr {
				if !ierrors.IsInvalidFilter(err) {
					t.Errorf("expected invalid filter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter: %v", err)
			}
			if !tt.check(f) {
				t.Errorf("unexpected filter %+v", f)
			}
		})
	}
}

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"empty", Filter{}, true},
		{"file name only", Filter{FileName: str("a")}, false},
		{"indicator half range", Filter{MinAverageIndicator: f64(1)}, true},
		{"indicator max only", Filter{FileName: str("a"), MaxAverageIndicator: f64(1)}, true},
		{"duration half range", Filter{MaxAverageDuration: f64(1)}, true},
		{"indicator range", Filter{MinAverageIndicator: f64(1), MaxAverageIndicator: f64(2)}, false},
		{"duration range", Filter{MinAverageDuration: f64(1), MaxAverageDuration: f64(2)}, false},
		{"all", Filter{
			FileName:            str("a"),
			MinAverageIndicator: f64(1), MaxAverageIndicator: f64(2),
			MinAverageDuration: f64(1), MaxAverageDuration: f64(2),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr && !ierrors.IsInvalidFilter(err) {
				t.Errorf("expected invalid filter, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResults(t *testing.T) {
	st := setupTestStore(t)
	putSummary(t, st, "a.csv", 1.0, 10)
	putSummary(t, st, "b.csv", 2.0, 20)
	putSummary(t, st, "c.csv", 3.0, 30)

	collector := metrics.NewCollector()
	svc := New(st, collector)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"by name", Filter{FileName: str("b.csv")}, []string{"b.csv"}},
		{"indicator inclusive", Filter{MinAverageIndicator: f64(1), MaxAverageIndicator: f64(2)}, []string{"a.csv", "b.csv"}},
		{"duration", Filter{MinAverageDuration: f64(15), MaxAverageDuration: f64(35)}, []string{"b.csv", "c.csv"}},
		{"combined", Filter{
			MinAverageIndicator: f64(0), MaxAverageIndicator: f64(2.5),
			MinAverageDuration: f64(15), MaxAverageDuration: f64(100),
		}, []string{"b.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Results(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Results: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].FileID != id {
					t.Errorf("result %d: expected %s, got %s", i, id, got[i].FileID)
				}
			}
		})
	}

	stats := svc.GetStats()
	if stats.RowsReturned != 6 {
		t.Errorf("expected 6 rows returned, got %d", stats.RowsReturned)
	}
}

func TestResultsNotFound(t *testing.T) {
	st := setupTestStore(t)
	putSummary(t, st, "a.csv", 1.0, 10)
	svc := New(st, nil)

	_, err := svc.Results(context.Background(), Filter{FileName: str("missing.csv")})
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
	if ierrors.HTTPStatus(err) != 404 {
		t.Errorf("expected 404, got %d", ierrors.HTTPStatus(err))
	}
	if svc.GetStats().NotFound != 1 {
		t.Errorf("expected NotFound=1, got %d", svc.GetStats().NotFound)
	}
}

func TestResultsRejectsHalfRange(t *testing.T) {
	svc := New(setupTestStore(t), nil)

	_, err := svc.Results(context.Background(), Filter{MinAverageIndicator: f64(1)})
	if !ierrors.IsInvalidFilter(err) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
	if ierrors.HTTPStatus(err) != 400 {
		t.Errorf("expected 400, got %d", ierrors.HTTPStatus(err))
	}
	if svc.GetStats().Rejected != 1 {
		t.Errorf("expected Rejected=1, got %d", svc.GetStats().Rejected)
	}
}

func TestSummary(t *testing.T) {
	st := setupTestStore(t)
	putSummary(t, st, "a.csv", 1.5, 10)
	svc := New(st, nil)

	got, err := svc.Summary(context.Background(), "a.csv")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got.AverageIndicator != 1.5 || got.Count != 10 {
		t.Errorf("unexpected summary %+v", got)
	}

	_, err = svc.Summary(context.Background(), "b.csv")
	if !errors.Is(err, ierrors.ErrSummaryNotFound) {
		t.Errorf("expected ErrSummaryNotFound, got %v", err)
	}
}

// countingStore counts GetSummary calls and blocks them until release or
// until the lookup context is done.
type countingStore struct {
	Store
	mu      sync.Mutex
	calls   int
	release chan struct{}
	entered chan struct{}
}

func (c *countingStore) GetSummary(ctx context.Context, fileID string) (*types.FileSummary, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	select {
	case <-c.release:
		return &types.FileSummary{FileID: fileID, Count: 1}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSummaryConcurrentCallsShareLookup(t *testing.T) {
	cs := &countingStore{release: make(chan struct{})}
	svc := New(cs, nil)

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	results := make([]*types.FileSummary, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], _ = svc.Summary(context.Background(), "a.csv")
		}(i)
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(cs.release)
	wg.Wait()

	if cs.calls < 1 || cs.calls > callers {
		t.Fatalf("unexpected call count %d", cs.calls)
	}
	for i, r := range results {
		if r == nil || r.FileID != "a.csv" {
			t.Fatalf("caller %d: unexpected result %+v", i, r)
		}
	}
	if results[0] == results[1] {
		t.Error("callers share one summary value")
	}
}

func TestSummaryFirstCallerCancelDoesNotFailOthers(t *testing.T) {
	cs := &countingStore{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := New(cs, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Summary(firstCtx, "a.csv")
		firstDone <- err
	}()
	<-cs.entered

	var second *types.FileSummary
	secondDone := make(chan error, 1)
	go func() {
		var err error
		second, err = svc.Summary(context.Background(), "a.csv")
		secondDone <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(cs.release)

	if err := <-secondDone; err != nil {
		t.Fatalf("second caller failed: %v", err)
	}
	if second == nil || second.FileID != "a.csv" {
		t.Fatalf("unexpected result %+v", second)
	}
	<-firstDone

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.calls != 1 {
		t.Errorf("expected one shared lookup, got %d", cs.calls)
	}
}
