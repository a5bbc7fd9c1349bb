package kafka

import (
	"errors"
	"testing"
	"time"
)

func TestReportErrDeliversWhenRoom(t *testing.T) {
	t.Parallel()

	errs := make(chan error, 1)
	want := errors.New("handler failed")
	reportErr(errs, want)

	select {
	case got := <-errs:
		if !errors.Is(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	default:
		t.Fatal("expected the error to be queued")
	}
}

func TestReportErrDoesNotBlockWhenFull(t *testing.T) {
	t.Parallel()

	errs := make(chan error, 1)
	errs <- errors.New("first")

	done := make(chan struct{})
	go func() {
		reportErr(errs, errors.New("second"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reportErr blocked on a full channel")
	}
}
