package booking

import (
	"errors"
	"testing"
)

// TestNext verifies the transition table without a store.
func TestNext(t *testing.T) {
	legal := map[Status]map[Transition]Status{
		StatusPending:    {TransitionAccept: StatusAccepted, TransitionReject: StatusRejected, TransitionCancel: StatusCancelled},
		StatusAccepted:   {TransitionStart: StatusInProgress, TransitionComplete: StatusCompleted, TransitionCancel: StatusCancelled},
		StatusInProgress: {TransitionComplete: StatusCompleted, TransitionCancel: StatusCancelled},
	}
	for _, from := range AllStatuses {
		for _, tr := range AllTransitions {
			got, err := Next(from, tr)
			want, ok := legal[from][tr]
			if ok {
				if err != nil || got != want {
					t.Errorf("Next(%s, %s) = %s, %v; want %s", from, tr, got, err, want)
				}
				continue
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Errorf("Next(%s, %s): expected InvalidTransitionError, got %v", from, tr, err)
				continue
			}
			if ite.From != from || ite.Attempted != tr {
				t.Errorf("Next(%s, %s): error fields = %s/%s", from, tr, ite.From, ite.Attempted)
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Next(%s, %s): errors.Is(ErrInvalidTransition) is false", from, tr)
			}
		}
	}
}

func TestNext_UnknownTransition(t *testing.T) {
	if _, err := Next(StatusPending, Transition("teleport")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusRejected} {
		if !s.Terminal() || s.Active() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusAccepted, StatusInProgress} {
		if s.Terminal() || !s.Active() {
			t.Errorf("%s should be active", s)
		}
	}
	if got, err := ParseStatus(" in_progress "); err != nil || got != StatusInProgress {
		t.Errorf("ParseStatus = %s, %v", got, err)
	}
	if _, err := ParseStatus("driving"); err == nil {
		t.Errorf("ParseStatus accepted an unknown status")
	}
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{From: StatusCompleted, Attempted: TransitionStart}
	want := "invalid booking transition: cannot start a COMPLETED booking"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
