package timer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Kind tags the shape of a Result.
type Kind int

const (
	// KindValue is a fully resolved result.
	KindValue Kind = iota
	// KindPending is a single computation still to be awaited.
	KindPending
	// KindCollection is a set of independent computations awaited concurrently.
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindPending:
		return "pending"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Pending is a deferred computation. It may return further work to resolve.
type Pending func() (Result, error)

// Result is what an operation hands back to the timer: nothing more to do,
// one computation to await, or a collection to await concurrently.
type Result struct {
	kind    Kind
	pending Pending
	all     []Pending
}

// Value is a resolved result.
func Value() Result {
	return Result{kind: KindValue}
}

// Await wraps a single computation.
func Await(p Pending) Result {
	return Result{kind: KindPending, pending: p}
}

// All wraps independent computations that run concurrently. An empty
// collection is already resolved.
func All(ps ...Pending) Result {
	if len(ps) == 0 {
		return Value()
	}
	return Result{kind: KindCollection, all: ps}
}

// Kind reports the shape of r.
func (r Result) Kind() Kind {
	return r.kind
}

// Sequence returns a computation that resolves each member completely,
// including any work it returns, before starting the next. Failures do not
// stop the sequence; they are joined into the returned error.
func Sequence(ps ...Pending) Pending {
	return func() (Result, error) {
		var errs errorSet
		for _, p := range ps {
			resolve(Await(p), &errs)
		}
		return Value(), errs.join()
	}
}

// errorSet collects failures from concurrently running computations.
type errorSet struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSet) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSet) list() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *errorSet) join() error {
	return errors.Join(s.list()...)
}

// resolve drives r until nothing is pending. Every failure is recorded in
// errs and resolution carries on with an empty value.
func resolve(r Result, errs *errorSet) {
	for {
		switch r.kind {
		case KindPending:
			next, err := call(r.pending)
			if err != nil {
				errs.add(err)
				r = Value()
				continue
			}
			r = next
		case KindCollection:
			slog.Debug("resolving collection", "kind", r.kind.String(), "members", len(r.all))
			r = resolveAll(r.all, errs)
		default:
			return
		}
	}
}

// resolveAll runs every member concurrently and waits for all of them. Work
// returned by members is gathered into the next collection.
func resolveAll(ps []Pending, errs *errorSet) Result {
	results := make([]Result, len(ps))

	var g errgroup.Group
	for i, p := range ps {
		g.Go(func() error {
			res, err := call(p)
			if err != nil {
				errs.add(err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var next []Pending
	for _, res := range results {
		switch res.kind {
		case KindPending:
			next = append(next, res.pending)
		case KindCollection:
			next = append(next, res.all...)
		}
	}
	return All(next...)
}

// call runs p and reports a panic as an error.
func call(p Pending) (res Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, err = Value(), fmt.Errorf("panic: %v", v)
		}
	}()
	if p == nil {
		return Value(), nil
	}
	return p()
}
