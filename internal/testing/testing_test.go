package testing

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoroutineTestBasic(t *testing.T) {
	gt := NewGoroutineTest(t)

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		gt.Go(func() error {
			count.Add(1)
			return nil
		})
	}

	gt.Wait()

	if count.Load() != 5 {
		t.Errorf("expected 5 goroutines to run, got %d", count.Load())
	}
}

func TestGoroutineTestWithContext(t *testing.T) {
	gt := NewGoroutineTestWithTimeout(t, 5*time.Second)
	defer gt.Wait()

	gt.GoWithContext(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Log("expected a deadline on the context")
		}
		return nil
	})
}

func TestWithTimeout(t *testing.T) {
	if err := WithTimeout(time.Second, func() error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := WithTimeout(10*time.Millisecond, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if err == nil {
		t.Error("expected timeout error")
	}
}

func TestFileBuilder(t *testing.T) {
	b := NewFileBuilder().
		Row(BaseTime, 10, 1.5).
		CommaRow(BaseTime.Add(time.Minute), 20, 2.25).
		Raw("bad;row")

	want := "2023-05-10_08-00-00;10;1.5\n" +
		"2023-05-10_08-01-00;20;2,25\n" +
		"bad;row\n"

	if b.String() != want {
		t.Errorf("expected %q, got %q", want, b.String())
	}
	if b.Len() != 3 {
		t.Errorf("expected 3 lines, got %d", b.Len())
	}
}

func TestFileBuilderRows(t *testing.T) {
	body := NewFileBuilder().Rows(BaseTime, 4).String()
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[3] != "2023-05-10_08-03-00;4;4" {
		t.Errorf("unexpected last line %q", lines[3])
	}
}
