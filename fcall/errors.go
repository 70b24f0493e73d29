package fcall

import (
	"errors"
	"fmt"
)

// ErrExecutorJump is the sentinel wrapped by errors recovered from an
// executor error jump inside a guarded section.
var ErrExecutorJump = errors.New("pgmantle: executor error jump")

// FatalError aborts the current call. It is raised as a panic and
// travels past the guard toward the executor, which reports it and
// unwinds the statement.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return "pgmantle: " + e.Message }

// Fatalf raises a FatalError with a formatted message.
func Fatalf(format string, args ...any) {
	panic(&FatalError{Message: fmt.Sprintf(format, args...)})
}

// JumpError is the Go-side form of an executor error jump caught by a
// guard. It satisfies errors.Is(err, ErrExecutorJump).
type JumpError struct {
	Message string
}

func (e *JumpError) Error() string {
	return fmt.Sprintf("pgmantle: executor error jump: %s", e.Message)
}

func (e *JumpError) Is(target error) bool { return target == ErrExecutorJump }
