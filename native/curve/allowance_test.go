package curve

import (
	"testing"

	"bcmm/core/types"
)

const (
	allowanceCreatedAt = int64(1761177600)
	day                = int64(86400)
)

func TestShouldReset(t *testing.T) {
	cases := []struct {
		name     string
		lastBurn int64
		now      int64
		want     bool
	}{
		{"on creation", 0, allowanceCreatedAt, true},
		{"immediately after creation", allowanceCreatedAt, allowanceCreatedAt + 1, false},
		{"never burned", 0, allowanceCreatedAt + 1, true},
		{"same day", allowanceCreatedAt + day - 2, allowanceCreatedAt + day - 1, false},
		{"burned just before boundary", allowanceCreatedAt + day - 1, allowanceCreatedAt + day, true},
		{"exactly at boundary", allowanceCreatedAt + day, allowanceCreatedAt + day + 1, false},
		{"twenty days later", allowanceCreatedAt + day, allowanceCreatedAt + 20*day - 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowance := NewUserBurnAllowance(types.Address{}, types.Address{}, types.RecordID{}, 0, 0, allowanceCreatedAt)
			allowance.LastBurnTimestamp = tc.lastBurn
			if got := allowance.ShouldReset(tc.now); got != tc.want {
				t.Fatalf("ShouldReset(%d) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestPopCountsAndResets(t *testing.T) {
	allowance := NewUserBurnAllowance(types.Address{}, types.Address{}, types.RecordID{}, 0, 0, allowanceCreatedAt)
	if got := allowance.Pop(allowanceCreatedAt + 10); got != 1 {
		t.Fatalf("first pop = %d, want 1", got)
	}
	if got := allowance.Pop(allowanceCreatedAt + 20); got != 2 {
		t.Fatalf("second pop = %d, want 2", got)
	}
	if allowance.LastBurnTimestamp != allowanceCreatedAt+20 {
		t.Fatalf("last burn = %d, want %d", allowance.LastBurnTimestamp, allowanceCreatedAt+20)
	}
	// Crossing the anchored boundary restarts the count at one.
	if got := allowance.Pop(allowanceCreatedAt + day); got != 1 {
		t.Fatalf("post-boundary pop = %d, want 1", got)
	}
}

func TestBurnsAvailableToday(t *testing.T) {
	allowance := NewUserBurnAllowance(types.Address{}, types.Address{}, types.RecordID{}, 0, 0, allowanceCreatedAt)
	allowance.Pop(allowanceCreatedAt + 10)
	allowance.Pop(allowanceCreatedAt + 20)
	if got := allowance.BurnsAvailableToday(allowanceCreatedAt + 30); got != 2 {
		t.Fatalf("same-day count = %d, want 2", got)
	}
	if got := allowance.BurnsAvailableToday(allowanceCreatedAt + day); got != 0 {
		t.Fatalf("post-boundary count = %d, want 0", got)
	}
}

func TestAllowanceInactive(t *testing.T) {
	allowance := NewUserBurnAllowance(types.Address{}, types.Address{}, types.RecordID{}, 0, 7, allowanceCreatedAt)
	if !allowance.Inactive(7, allowanceCreatedAt) {
		t.Fatal("unused allowance should be inactive")
	}
	allowance.Pop(allowanceCreatedAt + 10)
	if allowance.Inactive(7, allowanceCreatedAt+20) {
		t.Fatal("freshly used allowance should be active")
	}
	if !allowance.Inactive(7, allowanceCreatedAt+10+day) {
		t.Fatal("day-idle allowance should be inactive")
	}
	// A tier change orphans the allowance regardless of recent use.
	if !allowance.Inactive(8, allowanceCreatedAt+20) {
		t.Fatal("superseded allowance should be inactive")
	}
}
