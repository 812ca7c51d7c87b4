package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	logx "coinbot/pkg/logx"
)

func openTestStore(t *testing.T, opt Options) *SQLStore {
	t.Helper()
	if opt.Path == "" {
		opt.Path = filepath.Join(t.TempDir(), "settings.db")
	}
	st, err := Open(opt, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestEnsureRecipientIdempotent(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()

	if err := st.EnsureRecipient(ctx, 42); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := st.EnsureRecipient(ctx, 42); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	n, err := st.ResultCount(ctx, 42)
	if err != nil {
		t.Fatalf("ResultCount: %v", err)
	}
	if n != 100 {
		t.Fatalf("default result count = %d, want 100", n)
	}

	hours, err := st.Schedule(ctx, 42)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(hours) != 24 {
		t.Fatalf("default schedule has %d hours, want 24", len(hours))
	}
	for i, h := range hours {
		if h != i {
			t.Fatalf("default schedule[%d] = %d, want %d", i, h, i)
		}
	}
}

func TestEnsureRecipientCustomDefaults(t *testing.T) {
	st := openTestStore(t, Options{DefaultResultCount: 10, DefaultHours: []int{8, 20}})
	ctx := context.Background()

	if err := st.EnsureRecipient(ctx, 1); err != nil {
		t.Fatalf("EnsureRecipient: %v", err)
	}
	n, err := st.ResultCount(ctx, 1)
	if err != nil {
		t.Fatalf("ResultCount: %v", err)
	}
	if n != 10 {
		t.Fatalf("result count = %d, want 10", n)
	}
	hours, err := st.Schedule(ctx, 1)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(hours) != 2 || hours[0] != 8 || hours[1] != 20 {
		t.Fatalf("schedule = %v, want [8 20]", hours)
	}
}

func TestResultCountRoundTrip(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()
	if err := st.EnsureRecipient(ctx, 7); err != nil {
		t.Fatalf("EnsureRecipient: %v", err)
	}

	for _, n := range []int{1, 50, 100} {
		if err := st.SetResultCount(ctx, 7, n); err != nil {
			t.Fatalf("SetResultCount(%d): %v", n, err)
		}
		got, err := st.ResultCount(ctx, 7)
		if err != nil {
			t.Fatalf("ResultCount: %v", err)
		}
		if got != n {
			t.Fatalf("ResultCount = %d, want %d", got, n)
		}
	}
}

func TestSetResultCountRejectsOutOfRange(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()
	if err := st.EnsureRecipient(ctx, 7); err != nil {
		t.Fatalf("EnsureRecipient: %v", err)
	}
	if err := st.SetResultCount(ctx, 7, 55); err != nil {
		t.Fatalf("SetResultCount(55): %v", err)
	}

	for _, n := range []int{0, -1, 101, 1000} {
		err := st.SetResultCount(ctx, 7, n)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("SetResultCount(%d) = %v, want ValidationError", n, err)
		}
	}

	// Prior value intact after rejections.
	got, err := st.ResultCount(ctx, 7)
	if err != nil {
		t.Fatalf("ResultCount: %v", err)
	}
	if got != 55 {
		t.Fatalf("ResultCount = %d after rejected writes, want 55", got)
	}
}

func TestResultCountNotFound(t *testing.T) {
	st := openTestStore(t, Options{})
	_, err := st.ResultCount(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ResultCount for unknown recipient = %v, want ErrNotFound", err)
	}
	if err := st.SetResultCount(context.Background(), 999, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetResultCount for unknown recipient = %v, want ErrNotFound", err)
	}
}

func TestReplaceScheduleAtomicReplace(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()
	if err := st.EnsureRecipient(ctx, 3); err != nil {
		t.Fatalf("EnsureRecipient: %v", err)
	}

	if err := st.ReplaceSchedule(ctx, 3, []int{23, 5, 12}); err != nil {
		t.Fatalf("ReplaceSchedule: %v", err)
	}
	hours, err := st.Schedule(ctx, 3)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(hours) != 3 || hours[0] != 5 || hours[1] != 12 || hours[2] != 23 {
		t.Fatalf("schedule = %v, want [5 12 23]", hours)
	}

	// Replacing with a disjoint set leaves no residual hours.
	if err := st.ReplaceSchedule(ctx, 3, []int{8}); err != nil {
		t.Fatalf("ReplaceSchedule: %v", err)
	}
	hours, err = st.Schedule(ctx, 3)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(hours) != 1 || hours[0] != 8 {
		t.Fatalf("schedule = %v, want [8]", hours)
	}
}

func TestReplaceScheduleValidation(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()
	if err := st.EnsureRecipient(ctx, 3); err != nil {
		t.Fatalf("EnsureRecipient: %v", err)
	}
	if err := st.ReplaceSchedule(ctx, 3, []int{10, 11}); err != nil {
		t.Fatalf("ReplaceSchedule: %v", err)
	}

	// Mixed sets with some in-range hours are rejected whole, never
	// partially stored.
	for _, hours := range [][]int{nil, {}, {24}, {-1}, {30, 99}, {5, 99}, {0, 12, -1, 23}} {
		err := st.ReplaceSchedule(ctx, 3, hours)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("ReplaceSchedule(%v) = %v, want ValidationError", hours, err)
		}
	}

	// Old schedule survives rejected replacements.
	got, err := st.Schedule(ctx, 3)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("schedule = %v after rejected writes, want [10 11]", got)
	}
}

func TestReplaceScheduleCollapsesDuplicates(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()
	if err := st.EnsureRecipient(ctx, 3); err != nil {
		t.Fatalf("EnsureRecipient: %v", err)
	}
	if err := st.ReplaceSchedule(ctx, 3, []int{7, 7, 7}); err != nil {
		t.Fatalf("ReplaceSchedule: %v", err)
	}
	hours, err := st.Schedule(ctx, 3)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(hours) != 1 || hours[0] != 7 {
		t.Fatalf("schedule = %v, want [7]", hours)
	}
}

func TestListDue(t *testing.T) {
	st := openTestStore(t, Options{})
	ctx := context.Background()

	// Three recipients with overlapping and disjoint schedules.
	want := map[int64][]int{
		1: {8},
		2: {8, 20},
		3: {0, 23},
	}
	counts := map[int64]int{1: 5, 2: 50, 3: 100}
	for id, hours := range want {
		if err := st.EnsureRecipient(ctx, id); err != nil {
			t.Fatalf("EnsureRecipient(%d): %v", id, err)
		}
		if err := st.ReplaceSchedule(ctx, id, hours); err != nil {
			t.Fatalf("ReplaceSchedule(%d): %v", id, err)
		}
		if err := st.SetResultCount(ctx, id, counts[id]); err != nil {
			t.Fatalf("SetResultCount(%d): %v", id, err)
		}
	}

	for hour := 0; hour < 24; hour++ {
		expect := map[int64]int{}
		for id, hours := range want {
			for _, h := range hours {
				if h == hour {
					expect[id] = counts[id]
				}
			}
		}

		due, err := st.ListDue(ctx, hour)
		if err != nil {
			t.Fatalf("ListDue(%d): %v", hour, err)
		}
		got := map[int64]int{}
		for _, d := range due {
			got[d.ID] = d.ResultCount
		}
		if len(got) != len(expect) {
			t.Fatalf("hour %d: due = %v, want %v", hour, got, expect)
		}
		for id, n := range expect {
			if got[id] != n {
				t.Fatalf("hour %d: recipient %d count = %d, want %d", hour, id, got[id], n)
			}
		}
	}
}
