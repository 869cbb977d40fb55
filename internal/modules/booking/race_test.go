// README: Concurrency tests for booking state transitions (run with -race).
package booking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"toda/internal/types"
)

func TestConcurrentAcceptSameBooking_Memory(t *testing.T) {
	runConcurrentAccept(t, NewMemoryStore())
}

func TestConcurrentAcceptSameBooking_Postgres(t *testing.T) {
	runConcurrentAccept(t, setupTestStore(t))
}

func TestConcurrentAcceptVsCancel_Memory(t *testing.T) {
	runAcceptVsCancel(t, NewMemoryStore())
}

func TestConcurrentAcceptVsCancel_Postgres(t *testing.T) {
	runAcceptVsCancel(t, setupTestStore(t))
}

func runConcurrentAccept(t *testing.T, store Store) {
	t.Helper()
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()
	b := mustCreate(t, svc, "r_multi_accept")

	const attempts = 8
	type result struct {
		driverID types.ID
		err      error
	}
	results := make(chan result, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			<-start
			_, err := svc.Accept(ctx, AcceptCommand{BookingID: b.ID, DriverID: did})
			results <- result{driverID: did, err: err}
		}(types.ID(fmt.Sprintf("d%d", i)))
	}

	close(start)
	wg.Wait()
	close(results)

	var winner types.ID
	success := 0
	for r := range results {
		if r.err == nil {
			success++
			winner = r.driverID
			continue
		}
		if !errors.Is(r.err, ErrConflict) {
			t.Fatalf("loser %s: expected ErrConflict, got %v", r.driverID, r.err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	got := assertStatus(t, svc, b.ID, StatusAccepted)
	if got.DriverID != winner {
		t.Fatalf("assigned driver = %s, want winner %s", got.DriverID, winner)
	}
}

func runAcceptVsCancel(t *testing.T, store Store) {
	t.Helper()
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()
	b := mustCreate(t, svc, "r_accept_cancel")

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Accept(ctx, AcceptCommand{BookingID: b.ID, DriverID: "d1"})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Cancel(ctx, CancelCommand{BookingID: b.ID, Actor: ActorRider})
		errs <- err
	}()

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success < 1 {
		t.Fatalf("expected at least one success, got %d", success)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if success == 2 && got.Status != StatusCancelled {
		t.Fatalf("expected cancelled after accept+cancel, got %s", got.Status)
	}
	if got.Status != StatusAccepted && got.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", got.Status)
	}
}

func TestSubscribeActive_Memory(t *testing.T) {
	store := NewMemoryStore()
	svc, _, _ := newTestService(t, store)
	existing := mustCreate(t, svc, "r_existing")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed, err := svc.SubscribeActive(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	first := receive(t, feed)
	if first.ID != existing.ID {
		t.Fatalf("expected snapshot of %s first, got %s", existing.ID, first.ID)
	}

	if _, err := svc.Cancel(context.Background(), CancelCommand{BookingID: existing.ID, Actor: ActorRider}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	update := receive(t, feed)
	if update.ID != existing.ID || update.Status != StatusCancelled {
		t.Fatalf("expected cancellation update, got %+v", update)
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-feed:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("feed not closed after context cancel")
		}
	}
}

func receive(t *testing.T, feed <-chan Booking) Booking {
	t.Helper()
	select {
	case b := <-feed:
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for booking update")
	}
	return Booking{}
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	b := mustCreate(t, svc, "r_pg_roundtrip")
	if _, err := svc.Accept(ctx, AcceptCommand{BookingID: b.ID, DriverID: "d1", TricycleID: "t1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got := assertStatus(t, svc, b.ID, StatusAccepted)
	if got.DriverID != "d1" || got.TricycleID != "t1" || got.AcceptedAt == nil || got.Version != 1 {
		t.Fatalf("unexpected stored booking: %+v", got)
	}
	if got.Pickup != b.Pickup || got.VerificationCode != b.VerificationCode {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, b)
	}

	n, last, err := store.RiderActivity(ctx, "r_pg_roundtrip", time.Now().Add(-time.Hour))
	if err != nil || n != 1 || last.Sub(b.CreatedAt).Abs() > time.Millisecond {
		t.Fatalf("RiderActivity = %d, %v, %v", n, last, err)
	}
}

func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TODA_TEST_DSN")
	if dsn == "" {
		t.Skip("TODA_TEST_DSN not set; skipping DB-backed booking tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE booking_events, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPostgresStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}

	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
