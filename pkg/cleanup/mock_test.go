package cleanup

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockDataManager struct {
	mock.Mock
}

func (m *mockDataManager) Authenticate(ctx context.Context, email, password string) bool {
	args := m.Called(ctx, email, password)
	return args.Bool(0)
}

func (m *mockDataManager) Headers() http.Header {
	args := m.Called()
	return args.Get(0).(http.Header)
}

func (m *mockDataManager) HasValidToken() bool {
	return m.Called().Bool(0)
}

func (m *mockDataManager) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDataManager) DeleteApplication(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDataManager) DeleteSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// authedManager returns a mock that already holds a token.
func authedManager() *mockDataManager {
	dm := &mockDataManager{}
	h := http.Header{}
	h.Set("Authorization", "Bearer token")
	dm.On("Headers").Return(h).Maybe()
	dm.On("HasValidToken").Return(true).Maybe()
	return dm
}

// memJournal is an in-memory Journal.
type memJournal struct {
	mu       sync.Mutex
	appended map[string][]Entity
	forgot   []string
}

func newMemJournal() *memJournal {
	return &memJournal{appended: make(map[string][]Entity)}
}

func (j *memJournal) Append(id string, e Entity) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appended[id] = append(j.appended[id], e)
	return nil
}

func (j *memJournal) Forget(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.appended, id)
	j.forgot = append(j.forgot, id)
	return nil
}

// recordingMetrics counts observations by outcome.
type recordingMetrics struct {
	mu        sync.Mutex
	deletes   map[string]int
	runs      map[string]int
	decisions map[bool]int
	tracked   map[Kind]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		deletes:   make(map[string]int),
		runs:      make(map[string]int),
		decisions: make(map[bool]int),
		tracked:   make(map[Kind]int),
	}
}

func (m *recordingMetrics) ObserveDelete(_ Kind, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes[outcome]++
}

func (m *recordingMetrics) ObserveRun(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[outcome]++
}

func (m *recordingMetrics) ObserveDecision(_ Policy, cleanup bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[cleanup]++
}

func (m *recordingMetrics) SetTracked(k Kind, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked[k] = n
}
