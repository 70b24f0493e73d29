package fcall

// CallInfo is the raw per-invocation handle a wrapper receives from
// the executor: the argument slots, the per-call region and, for
// set-returning calls, the continuation that survives between
// invocations of the same scan.
type CallInfo struct {
	// FuncName is the unaliased name of the called function, used in
	// diagnostics.
	FuncName string

	args    []NullableDatum
	perCall *Region
	multi   *Region
	cont    any

	// ReturnNull is set by the wrapper when the call produces SQL NULL.
	ReturnNull bool
	// NoMoreRows is set by set-returning wrappers when the scan is
	// exhausted; the executor shim reads it alongside the result datum.
	NoMoreRows bool
}

// NewCallInfo builds the handle for one invocation. The per-call
// region is fresh; the multi-call region is allocated lazily on the
// first set-returning step.
func NewCallInfo(funcName string, args []NullableDatum) *CallInfo {
	return &CallInfo{
		FuncName: funcName,
		args:     args,
		perCall:  NewRegion(funcName + ".per-call"),
	}
}

// NumArgs returns the number of argument slots.
func (f *CallInfo) NumArgs() int { return len(f.args) }

// ArgSlot returns the raw slot at position i.
func (f *CallInfo) ArgSlot(i int) NullableDatum { return f.args[i] }

// PerCall returns the region released after this invocation.
func (f *CallInfo) PerCall() *Region { return f.perCall }

// MultiCall returns the region that outlives a single invocation of a
// set-returning call, allocating it on first use.
func (f *CallInfo) MultiCall() *Region {
	if f.multi == nil {
		f.multi = NewRegion(f.FuncName + ".multi-call")
	}
	return f.multi
}

// FirstCall reports whether no continuation has been installed yet,
// i.e. the scan has not started.
func (f *CallInfo) FirstCall() bool { return f.cont == nil }

// EndCall releases the per-call region and resets it for the next
// invocation of the same scan.
func (f *CallInfo) EndCall() {
	f.perCall.Release()
	f.perCall = NewRegion(f.FuncName + ".per-call")
}

// EndScan releases the multi-call region. Safe to call when no
// set-returning step ever ran.
func (f *CallInfo) EndScan() {
	if f.multi != nil {
		f.multi.Release()
	}
}
