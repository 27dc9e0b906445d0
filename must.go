package defender

// Must panics with err when it is non-nil. It adapts the error-returning API
// for callers that prefer failures to unwind the stack.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// MustValue returns v, or panics with err when it is non-nil.
//
//	d := defender.MustValue(schema.Load(nil))
func MustValue[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
