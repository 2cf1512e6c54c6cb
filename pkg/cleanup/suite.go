package cleanup

import (
	"sync"

	"github.com/marmos91/screening-e2e/internal/logger"
)

// Registration is the observed position state of one suite.
type Registration struct {
	TotalTests      int
	CurrentCount    int
	RegisteredTests []string
}

type suiteState struct {
	total    int
	names    []string
	distinct map[string]struct{}
}

func (s *suiteState) count(dedup bool) int {
	if dedup {
		return len(s.distinct)
	}
	return len(s.names)
}

// SuiteTracker infers whether a test is the last one of its suite by
// counting registrations against the suite's declared size.
//
// By default every call to RegisterTest counts, including retries of a test
// that already registered. A retried early test therefore advances the count
// and can make a later test look last too soon, or push the count past the
// total so no test is ever last. WithDedupRetries counts distinct names only.
type SuiteTracker struct {
	mu     sync.Mutex
	suites map[string]*suiteState
	dedup  bool
}

// SuiteOption configures a SuiteTracker.
type SuiteOption func(*SuiteTracker)

// WithDedupRetries makes repeated registrations of the same test name count
// once.
func WithDedupRetries() SuiteOption {
	return func(s *SuiteTracker) {
		s.dedup = true
	}
}

// NewSuiteTracker creates an empty tracker.
func NewSuiteTracker(opts ...SuiteOption) *SuiteTracker {
	s := &SuiteTracker{
		suites: make(map[string]*suiteState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTestSuite announces a suite and its size. It only logs; the total
// is captured by the first RegisterTest call for the suite.
func (s *SuiteTracker) RegisterTestSuite(suite string, totalTests int) {
	logger.Debug("Registered test suite",
		logger.KeySuite, suite,
		logger.KeyTotalTests, totalTests)
}

// RegisterTest records that test is running in suite and returns the
// suite's current count. totalTests is captured on the suite's first
// registration and ignored afterwards.
func (s *SuiteTracker) RegisterTest(suite, test string, totalTests int) int {
	s.mu.Lock()
	st, ok := s.suites[suite]
	if !ok {
		st = &suiteState{total: totalTests, distinct: make(map[string]struct{})}
		s.suites[suite] = st
	} else if totalTests != st.total {
		logger.Debug("Ignoring differing suite size",
			logger.KeySuite, suite,
			logger.KeyTotalTests, st.total,
			"requested", totalTests)
	}
	st.names = append(st.names, test)
	st.distinct[test] = struct{}{}
	count := st.count(s.dedup)
	total := st.total
	s.mu.Unlock()

	logger.Debug("Registered test",
		logger.KeySuite, suite,
		logger.KeyTest, test,
		logger.KeyRegistered, count,
		logger.KeyTotalTests, total)
	return count
}

// IsLastTest reports whether test was the most recent registration in suite
// and the suite's count has reached its total. Unknown suites are never
// last.
func (s *SuiteTracker) IsLastTest(suite, test string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.suites[suite]
	if !ok || len(st.names) == 0 {
		return false
	}
	if st.names[len(st.names)-1] != test {
		return false
	}
	return st.count(s.dedup) == st.total
}

// Registration returns a copy of suite's state.
func (s *SuiteTracker) Registration(suite string) (Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.suites[suite]
	if !ok {
		return Registration{}, false
	}
	return Registration{
		TotalTests:      st.total,
		CurrentCount:    st.count(s.dedup),
		RegisteredTests: append([]string(nil), st.names...),
	}, true
}

// ClearSuite forgets suite so a later run in the same process starts from
// zero.
func (s *SuiteTracker) ClearSuite(suite string) {
	s.mu.Lock()
	delete(s.suites, suite)
	s.mu.Unlock()
}
