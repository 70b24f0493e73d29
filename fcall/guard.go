package fcall

// errorJump is the panic payload modelling the executor's non-local
// error transfer. It must only cross frames that a guard has
// checkpointed; Guard converts it back into an ordinary error at the
// boundary.
type errorJump struct {
	message string
}

// Jump raises an executor error jump. Executor-facing shims call this
// when the underlying call reports an error.
func Jump(message string) {
	panic(&errorJump{message: message})
}

// Guard runs fn with an unwind checkpoint installed. An error jump
// raised inside fn is caught and returned as a *JumpError; a
// FatalError or any other panic keeps unwinding toward the executor.
//
// Wrappers generated without the guard attribute call the target
// through Guard; targets marked as running outside the guard skip it.
func Guard(fn func() Datum) (d Datum, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if j, ok := r.(*errorJump); ok {
			err = &JumpError{Message: j.message}
			return
		}
		panic(r)
	}()
	return fn(), nil
}

// GuardErr is Guard for side-effecting sections with no result datum.
func GuardErr(fn func()) error {
	_, err := Guard(func() Datum {
		fn()
		return NullDatum
	})
	return err
}
