package runner

import "testing"

// reporter is the slice of *testing.T the suite reports through.
type reporter interface {
	Name() string
	Run(name string, fn func(r reporter)) bool
	Logf(format string, args ...any)
	Errorf(format string, args ...any)
	Skip(args ...any)
}

type testingReporter struct {
	t *testing.T
}

func (r testingReporter) Name() string { return r.t.Name() }

func (r testingReporter) Run(name string, fn func(reporter)) bool {
	return r.t.Run(name, func(t *testing.T) {
		fn(testingReporter{t: t})
	})
}

func (r testingReporter) Logf(format string, args ...any) {
	r.t.Helper()
	r.t.Logf(format, args...)
}

func (r testingReporter) Errorf(format string, args ...any) {
	r.t.Helper()
	r.t.Errorf(format, args...)
}

func (r testingReporter) Skip(args ...any) {
	r.t.Helper()
	r.t.Skip(args...)
}
