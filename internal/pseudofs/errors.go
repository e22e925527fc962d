package pseudofs

import "errors"

// Error kinds surfaced by the core. The shell maps each to a one-line
// message; callers elsewhere should compare with errors.Is, since these
// are frequently wrapped with extra context as they cross layers.
var (
	ErrPathNotFound  = errors.New("path not found")
	ErrNotADirectory = errors.New("not a directory")
	ErrNotAFile      = errors.New("not a file")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotEmpty      = errors.New("not empty")
	ErrNameTooLong   = errors.New("name too long")
	ErrFileTooLarge  = errors.New("file too large")
	ErrNoSpace       = errors.New("no space")
	ErrNoInodes      = errors.New("no inodes")
	ErrCorruption    = errors.New("corruption")
	ErrRootImmutable = errors.New("root directory cannot be removed")
)
