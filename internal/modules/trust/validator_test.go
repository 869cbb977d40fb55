package trust

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	testNow    = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	testConfig = SecurityConfig{
		MaxBookingsPerDay:      5,
		MinTimeBetweenBookings: 5 * time.Minute,
		MaxCancellationRate:    0.3,
		MinTrustScore:          50,
	}
)

func goodTrust() *RiderTrust {
	return &RiderTrust{
		RiderID:           "r1",
		TotalBookings:     10,
		CompletedBookings: 9,
		CancelledBookings: 1,
		TrustScore:        80,
		LastBookingTime:   testNow.Add(-48 * time.Hour),
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		trust  func() *RiderTrust
		recent int
		want   Outcome
	}{
		{name: "no profile", trust: func() *RiderTrust { return nil }, want: OutcomePhoneNotVerified},
		{name: "valid", trust: goodTrust, want: OutcomeValid},
		{name: "blocked", trust: func() *RiderTrust { t := goodTrust(); t.IsBlocked = true; return t }, want: OutcomeUserBlocked},
		{name: "low trust score", trust: func() *RiderTrust { t := goodTrust(); t.TrustScore = 49; return t }, want: OutcomeLowTrustScore},
		{name: "score equal to minimum passes", trust: func() *RiderTrust { t := goodTrust(); t.TrustScore = 50; return t }, want: OutcomeValid},
		{name: "too soon", trust: func() *RiderTrust { t := goodTrust(); t.LastBookingTime = testNow.Add(-time.Minute); return t }, want: OutcomeTooSoon},
		{name: "exactly min interval passes", trust: func() *RiderTrust { t := goodTrust(); t.LastBookingTime = testNow.Add(-5 * time.Minute); return t }, want: OutcomeValid},
		{name: "never booked", trust: func() *RiderTrust { return &RiderTrust{RiderID: "new", TrustScore: InitialScore} }, want: OutcomeValid},
		{
			name: "high cancellation rate",
			trust: func() *RiderTrust {
				return &RiderTrust{TotalBookings: 10, CompletedBookings: 6, CancelledBookings: 4, TrustScore: 80, LastBookingTime: testNow.AddDate(-1, 0, 0)}
			},
			want: OutcomeHighCancellation,
		},
		{name: "rate equal to maximum passes", trust: func() *RiderTrust { t := goodTrust(); t.CancelledBookings = 3; return t }, want: OutcomeValid},
		{name: "too many bookings", trust: goodTrust, recent: 5, want: OutcomeTooManyBookings},
		{name: "one below daily limit", trust: goodTrust, recent: 4, want: OutcomeValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.trust(), testConfig, testNow, tt.recent); got != tt.want {
				t.Errorf("Validate() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestValidate_BlockedDominates checks that a blocked rider is refused as
// blocked whatever else is wrong with the record.
func TestValidate_BlockedDominates(t *testing.T) {
	variants := []RiderTrust{
		{IsBlocked: true, TrustScore: 0},
		{IsBlocked: true, TrustScore: 100, LastBookingTime: testNow},
		{IsBlocked: true, TotalBookings: 1, CancelledBookings: 1},
		{IsBlocked: true, TotalBookings: 100, CancelledBookings: 100, TrustScore: 0, LastBookingTime: testNow},
	}
	for i := range variants {
		for _, recent := range []int{0, 5, 100} {
			if got := Validate(&variants[i], testConfig, testNow, recent); got != OutcomeUserBlocked {
				t.Errorf("variant %d recent %d: got %s, want %s", i, recent, got, OutcomeUserBlocked)
			}
		}
	}
}

func TestValidate_OrderIsFixed(t *testing.T) {
	both := &RiderTrust{TotalBookings: 10, CancelledBookings: 9, TrustScore: 10}
	if got := Validate(both, testConfig, testNow, 0); got != OutcomeLowTrustScore {
		t.Errorf("score+rate violation: got %s, want %s", got, OutcomeLowTrustScore)
	}

	tooSoonAndRate := &RiderTrust{TotalBookings: 10, CancelledBookings: 9, TrustScore: 90, LastBookingTime: testNow}
	if got := Validate(tooSoonAndRate, testConfig, testNow, 99); got != OutcomeTooSoon {
		t.Errorf("interval+rate+count violation: got %s, want %s", got, OutcomeTooSoon)
	}

	rateAndCount := &RiderTrust{TotalBookings: 10, CancelledBookings: 9, TrustScore: 90}
	if got := Validate(rateAndCount, testConfig, testNow, 99); got != OutcomeHighCancellation {
		t.Errorf("rate+count violation: got %s, want %s", got, OutcomeHighCancellation)
	}
}

func TestValidate_IsPure(t *testing.T) {
	tr := goodTrust()
	before := *tr
	first := Validate(tr, testConfig, testNow, 2)
	second := Validate(tr, testConfig, testNow, 2)
	if first != second {
		t.Fatalf("non-deterministic: %s then %s", first, second)
	}
	if *tr != before {
		t.Fatalf("Validate mutated its input: %+v -> %+v", before, *tr)
	}
}

func TestCancellationRate_ZeroBookings(t *testing.T) {
	if got := (RiderTrust{}).CancellationRate(); got != 0 {
		t.Errorf("CancellationRate() = %v, want 0", got)
	}
}

func TestValidationError(t *testing.T) {
	var err error = &ValidationError{Reason: OutcomeLowTrustScore}
	if !errors.Is(err, ErrRefused) {
		t.Fatalf("expected errors.Is(err, ErrRefused)")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Reason != OutcomeLowTrustScore {
		t.Fatalf("errors.As failed: %v", err)
	}
	if err.Error() != "booking refused: LOW_TRUST_SCORE" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestSecurityConfig_Validate(t *testing.T) {
	if err := testConfig.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	bad := []SecurityConfig{
		{MaxBookingsPerDay: 0, MaxCancellationRate: 0.3, MinTrustScore: 50},
		{MaxBookingsPerDay: 1, MaxCancellationRate: 1.5, MinTrustScore: 50},
		{MaxBookingsPerDay: 1, MaxCancellationRate: 0.3, MinTrustScore: 101},
		{MaxBookingsPerDay: 1, MinTimeBetweenBookings: -time.Second},
	}
	for i, c := range bad {
		if err := c.Validate(); !errors.Is(err, ErrInvalidSecurityConfig) {
			t.Errorf("case %d: got %v, want ErrInvalidSecurityConfig", i, err)
		}
	}
}

func TestScorePolicy_Apply(t *testing.T) {
	at := testNow
	tr := RiderTrust{TotalBookings: 2, CompletedBookings: 2, TrustScore: 100}

	done := DefaultScorePolicy.Apply(tr, BookingCompleted, at)
	if done.TotalBookings != 3 || done.CompletedBookings != 3 || done.TrustScore != 100 || !done.LastBookingTime.Equal(at) {
		t.Errorf("completed: unexpected %+v", done)
	}

	cancelled := DefaultScorePolicy.Apply(tr, BookingCancelled, at)
	if cancelled.TotalBookings != 3 || cancelled.CancelledBookings != 1 || cancelled.TrustScore != 95 {
		t.Errorf("cancelled: unexpected %+v", cancelled)
	}

	if got := DefaultScorePolicy.Adjust(3, BookingCancelled); got != MinScore {
		t.Errorf("Adjust floor = %d, want %d", got, MinScore)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(DefaultScorePolicy, testConfig)

	if tr, err := m.GetTrust(ctx, "missing"); err != nil || tr != nil {
		t.Fatalf("missing rider: got %v, %v", tr, err)
	}
	m.PutUnverified("unverified")
	if tr, err := m.GetTrust(ctx, "unverified"); err != nil || tr != nil {
		t.Fatalf("unverified rider: got %v, %v", tr, err)
	}

	m.Put(RiderTrust{RiderID: "r1", TrustScore: 90})
	if err := m.ApplyBookingOutcome(ctx, "r1", BookingCancelled, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	tr, err := m.GetTrust(ctx, "r1")
	if err != nil || tr == nil {
		t.Fatalf("get: %v, %v", tr, err)
	}
	if tr.TotalBookings != 1 || tr.CancelledBookings != 1 || tr.TrustScore != 85 {
		t.Errorf("unexpected trust after cancel: %+v", tr)
	}

	if err := m.SetBlocked(ctx, "r1", true); err != nil {
		t.Fatalf("block: %v", err)
	}
	tr, _ = m.GetTrust(ctx, "r1")
	if !tr.IsBlocked {
		t.Errorf("expected rider to be blocked")
	}
	if err := m.ApplyBookingOutcome(ctx, "missing", BookingCompleted, testNow); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("apply to missing: got %v", err)
	}
}

func TestMemoryStore_Register(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(DefaultScorePolicy, testConfig)

	if err := m.Register(ctx, "r1", false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if tr, _ := m.GetTrust(ctx, "r1"); tr != nil {
		t.Fatalf("unverified registration should not be admissible: %+v", tr)
	}
	if err := m.Register(ctx, "r1", true); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	tr, _ := m.GetTrust(ctx, "r1")
	if tr == nil || tr.TrustScore != InitialScore {
		t.Fatalf("verified profile = %+v", tr)
	}

	if err := m.ApplyBookingOutcome(ctx, "r1", BookingCompleted, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := m.Register(ctx, "r1", false); err != nil {
		t.Fatalf("register again: %v", err)
	}
	tr, _ = m.GetTrust(ctx, "r1")
	if tr == nil || tr.CompletedBookings != 1 {
		t.Fatalf("re-registering must keep history and verification: %+v", tr)
	}
}
