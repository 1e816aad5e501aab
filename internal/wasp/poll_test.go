package wasp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPoll(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		predicate func(calls int) (bool, error)
		timeout   time.Duration
		wantCalls int
		wantErr   error
		timedOut  bool
	}{
		{
			name:      "done immediately",
			predicate: func(int) (bool, error) { return true, nil },
			timeout:   time.Second,
			wantCalls: 1,
		},
		{
			name:      "done after retries",
			predicate: func(n int) (bool, error) { return n == 3, nil },
			timeout:   time.Second,
			wantCalls: 3,
		},
		{
			name:      "predicate error",
			predicate: func(n int) (bool, error) { return false, boom },
			timeout:   time.Second,
			wantCalls: 1,
			wantErr:   boom,
		},
		{
			name:      "zero timeout still evaluates once",
			predicate: func(int) (bool, error) { return true, nil },
			timeout:   0,
			wantCalls: 1,
		},
		{
			name:      "expires",
			predicate: func(int) (bool, error) { return false, nil },
			timeout:   10 * time.Millisecond,
			timedOut:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Poll(context.Background(), time.Millisecond, tt.timeout, func() (bool, error) {
				calls++
				return tt.predicate(calls)
			})

			switch {
			case tt.timedOut:
				var te *TimeoutError
				if !errors.As(err, &te) {
					t.Fatalf("expected TimeoutError, got %v", err)
				}
				if te.Timeout != tt.timeout || te.Err != nil {
					t.Errorf("TimeoutError = %+v", te)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}

			if tt.wantCalls > 0 && calls != tt.wantCalls {
				t.Errorf("predicate called %d times, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestPoll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Poll(ctx, time.Millisecond, time.Second, func() (bool, error) {
		called = true
		return true, nil
	})
	if called {
		t.Error("predicate evaluated after cancellation")
	}
	if !IsTimeoutError(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancelled TimeoutError, got %v", err)
	}
}

func TestPoll_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err := Poll(ctx, 5*time.Millisecond, 5*time.Second, func() (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Poll returned after %s, cancellation was ignored", elapsed)
	}
}

func TestSleep(t *testing.T) {
	if err := sleep(context.Background(), 0); err != nil {
		t.Errorf("sleep(0) = %v", err)
	}
	if err := sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleep(1ms) = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep on cancelled context = %v", err)
	}
}
