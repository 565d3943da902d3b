package remotesim

import (
	"errors"
	"sync"
)

// FaultKind selects how an injected failure surfaces on the wire.
type FaultKind int

const (
	// FaultTransport answers 503 / Unavailable.
	FaultTransport FaultKind = iota + 1
	// FaultBusiness answers 400 / InvalidArgument.
	FaultBusiness
	// FaultUnauthorized answers 401 / Unauthenticated.
	FaultUnauthorized
)

// Fault is an injected failure.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return f.Message
	}
	switch f.Kind {
	case FaultTransport:
		return "service unavailable"
	case FaultUnauthorized:
		return "unauthorized"
	default:
		return "rejected"
	}
}

// AsFault unwraps an injected failure.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	ok := errors.As(err, &f)
	return f, ok
}

// Faults holds pending failures keyed by operation name (the remote method
// names, e.g. "CreateBudget").
type Faults struct {
	mu      sync.Mutex
	pending map[string][]Fault
}

func NewFaults() *Faults {
	return &Faults{pending: map[string][]Fault{}}
}

// FailNext makes the next n calls of op fail with f.
func (s *Faults) FailNext(op string, n int, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		s.pending[op] = append(s.pending[op], f)
	}
}

// Reset drops every pending fault.
func (s *Faults) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = map[string][]Fault{}
}

// take consumes the next fault for op, if any.
func (s *Faults) take(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.pending[op]
	if len(q) == 0 {
		return nil
	}
	f := q[0]
	s.pending[op] = q[1:]
	return &f
}
