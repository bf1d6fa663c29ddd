package alloc

import "sync"

type synchronized struct {
	mu sync.Mutex
	a  Allocator
}

// Synchronized returns an Allocator that serializes every call to a.
// Wrapping an already synchronized allocator returns it unchanged.
func Synchronized(a Allocator) Allocator {
	if s, ok := a.(*synchronized); ok {
		return s
	}
	return &synchronized{a: a}
}

func (s *synchronized) Alloc(size, align int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(size, align)
}

func (s *synchronized) Free(block []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(block)
}

func (s *synchronized) Family() Family {
	return s.a.Family()
}

// Unwrap returns the allocator behind a Synchronized wrapper, or a itself.
func Unwrap(a Allocator) Allocator {
	if s, ok := a.(*synchronized); ok {
		return s.a
	}
	return a
}
