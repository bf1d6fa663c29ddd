package mmap

import "errors"

// AccessPattern provides hints to the kernel about how the memory will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects memory to be touched front to back (bump allocation).
	AccessSequential
	// AccessRandom expects scattered access (free-list allocation, hash probing).
	AccessRandom
	// AccessWillNeed expects the memory to be accessed in the near future.
	AccessWillNeed
	// AccessDontNeed lets the kernel drop the pages; contents read back as zero.
	AccessDontNeed
)

var (
	// ErrClosed is returned when attempting to use a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested size is zero or negative.
	ErrInvalidSize = errors.New("mmap: invalid mapping size")
)
