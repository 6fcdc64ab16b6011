package breaker

import "fmt"

// Breaker applies the max-consecutive-failures policy to a Store.
type Breaker struct {
	store Store
	max   int
}

// New returns a Breaker that opens once the count reaches max.
func New(store Store, max int) *Breaker {
	return &Breaker{store: store, max: max}
}

// Max returns the configured limit.
func (b *Breaker) Max() int {
	return b.max
}

// Check reads the counter and reports whether the breaker is open.
func (b *Breaker) Check() (count int, open bool, err error) {
	count, err = b.store.Read()
	if err != nil {
		return 0, false, err
	}
	return count, count >= b.max, nil
}

// RecordFailure persists start+1 and returns it. start must be the value
// returned by Check for this invocation.
func (b *Breaker) RecordFailure(start int) (int, error) {
	next := start + 1
	if err := b.store.Write(next); err != nil {
		return start, fmt.Errorf("record failure: %w", err)
	}
	return next, nil
}

// RecordSuccess resets the counter to zero.
func (b *Breaker) RecordSuccess() error {
	if err := b.store.Write(0); err != nil {
		return fmt.Errorf("reset failure count: %w", err)
	}
	return nil
}

// Reset is the human override that closes an open breaker.
func (b *Breaker) Reset() error {
	return b.RecordSuccess()
}
