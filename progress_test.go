package rescale_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/korsva/rescale"
)

// recorder collects progress fractions. Listeners run on the sampler
// goroutine, so access is guarded for the duration of the resample.
type recorder struct {
	mu        sync.Mutex
	fractions []float64
}

func (r *recorder) listen(fraction float64) {
	r.mu.Lock()
	r.fractions = append(r.fractions, fraction)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.fractions...)
}

func TestProgressMonotone(t *testing.T) {
	src := randNRGBA(400, 250, 8)
	r := rescale.New(rescale.Options{})
	rec := &recorder{}
	r.OnProgress(rec.listen)
	if _, err := r.Resample(context.Background(), src, 300, 300); err != nil {
		t.Fatalf("Resample() error = %v", err)
	}

	got := rec.snapshot()
	if len(got) == 0 {
		t.Fatal("no progress notifications")
	}
	prev := -1.0
	for i, f := range got {
		if f < 0 || f > 1 {
			t.Fatalf("notification %d = %v, want within [0, 1]", i, f)
		}
		if f <= prev {
			t.Fatalf("notification %d = %v is not above previous %v", i, f, prev)
		}
		prev = f
	}
	if final := got[len(got)-1]; final < 0.99 {
		t.Errorf("final notification = %v, want >= 0.99", final)
	}
}

func TestProgressStopsAfterReturn(t *testing.T) {
	src := randNRGBA(200, 150, 9)
	r := rescale.New(rescale.Options{})
	rec := &recorder{}
	r.OnProgress(rec.listen)
	if _, err := r.Resample(context.Background(), src, 100, 100); err != nil {
		t.Fatalf("Resample() error = %v", err)
	}

	seen := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	if got := len(rec.snapshot()); got != seen {
		t.Errorf("%d notifications arrived after Resample returned", got-seen)
	}
}

func TestProgressPanickyListener(t *testing.T) {
	src := randNRGBA(64, 64, 10)
	r := rescale.New(rescale.Options{})
	r.OnProgress(func(fraction float64) {
		panic("listener boom")
	})
	rec := &recorder{}
	r.OnProgress(rec.listen)
	if _, err := r.Resample(context.Background(), src, 32, 32); err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(rec.snapshot()) == 0 {
		t.Error("panicking listener starved the remaining listeners")
	}
}

func TestProgressNoneOnFailure(t *testing.T) {
	src := randNRGBA(64, 64, 11)
	r := rescale.New(rescale.Options{})
	rec := &recorder{}
	r.OnProgress(rec.listen)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resample(ctx, src, 32, 32); err == nil {
		t.Fatal("Resample() succeeded on a cancelled context")
	}
	for _, f := range rec.snapshot() {
		if f >= 1 {
			t.Errorf("aborted resample reported completion fraction %v", f)
		}
	}
}
