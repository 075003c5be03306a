package worksheet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type attemptKey struct {
	studentID   string
	worksheetID string
	number      int
}

type progressKey struct {
	attemptKey
	position int
}

type memoryStore struct {
	mu         sync.RWMutex
	students   map[string]Student // by ID
	worksheets map[string]Worksheet
	attempts   map[attemptKey]Attempt
	progress   map[progressKey]Progress
}

// NewInMemoryStore returns a Store backed by process memory, used by
// tests and local development.
func NewInMemoryStore() Store {
	return &memoryStore{
		students:   map[string]Student{},
		worksheets: map[string]Worksheet{},
		attempts:   map[attemptKey]Attempt{},
		progress:   map[progressKey]Progress{},
	}
}

func (m *memoryStore) GetStudent(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return st, nil
}

func (m *memoryStore) GetStudentByCode(_ context.Context, accessCode string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, st := range m.students {
		if st.AccessCode == accessCode {
			return st, nil
		}
	}
	return Student{}, ErrNotFound
}

func (m *memoryStore) BulkUpsertStudents(_ context.Context, rows []Student) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, upd := 0, 0
	for _, st := range rows {
		if prev, ok := m.students[st.ID]; ok {
			st.AccessCode = prev.AccessCode
			st.CreatedAt = prev.CreatedAt
			upd++
		} else {
			st.CreatedAt = time.Now().Unix()
			ins++
		}
		m.students[st.ID] = st
	}
	return ins, upd, nil
}

func (m *memoryStore) ListStudents(_ context.Context, classLabel string) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Student
	for _, st := range m.students {
		if classLabel == "" || st.ClassLabel == classLabel {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) PutWorksheet(_ context.Context, w Worksheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.CreatedAt == 0 {
		w.CreatedAt = time.Now().Unix()
	}
	m.worksheets[w.ID] = w
	return nil
}

func (m *memoryStore) GetWorksheet(_ context.Context, id string) (Worksheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worksheets[id]
	if !ok {
		return Worksheet{}, ErrNotFound
	}
	return w, nil
}

func (m *memoryStore) ListWorksheets(_ context.Context) ([]Worksheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Worksheet, 0, len(m.worksheets))
	for _, w := range m.worksheets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, studentID, worksheetID string, number int) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptKey{studentID, worksheetID, number}]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, studentID, worksheetID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for k, a := range m.attempts {
		if k.studentID == studentID && k.worksheetID == worksheetID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memoryStore) EnsureAttempt(_ context.Context, studentID, worksheetID string, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attemptKey{studentID, worksheetID, number}
	if _, ok := m.attempts[k]; ok {
		return nil
	}
	m.attempts[k] = Attempt{
		StudentID:   studentID,
		WorksheetID: worksheetID,
		Number:      number,
		CreatedAt:   time.Now().Unix(),
	}
	return nil
}

func (m *memoryStore) SetAttemptTotal(_ context.Context, studentID, worksheetID string, number int, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attemptKey{studentID, worksheetID, number}
	a, ok := m.attempts[k]
	if !ok {
		return fmt.Errorf("attempt %s/%s/%d: %w", studentID, worksheetID, number, ErrNotFound)
	}
	a.TotalScore = total
	m.attempts[k] = a
	return nil
}

func (m *memoryStore) CompleteAttempt(_ context.Context, studentID, worksheetID string, number int, total float64, feedback string, completedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attemptKey{studentID, worksheetID, number}
	a, ok := m.attempts[k]
	if !ok {
		return fmt.Errorf("attempt %s/%s/%d: %w", studentID, worksheetID, number, ErrNotFound)
	}
	a.Completed = true
	a.TotalScore = total
	a.GlobalFeedback = feedback
	a.CompletedAt = &completedAt
	m.attempts[k] = a
	return nil
}

func (m *memoryStore) UpsertProgress(_ context.Context, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := progressKey{attemptKey{p.StudentID, p.WorksheetID, p.AttemptNumber}, p.StepPosition}
	m.progress[k] = p
	return nil
}

func (m *memoryStore) ListProgress(_ context.Context, studentID, worksheetID string, attemptNumber int) ([]Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Progress
	for k, p := range m.progress {
		if k.studentID == studentID && k.worksheetID == worksheetID && k.number == attemptNumber {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepPosition < out[j].StepPosition })
	return out, nil
}

func (m *memoryStore) ListCompletedAttempts(_ context.Context, worksheetID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for k, a := range m.attempts {
		if !a.Completed {
			continue
		}
		if worksheetID != "" && k.worksheetID != worksheetID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := int64(0), int64(0)
		if out[i].CompletedAt != nil {
			ci = *out[i].CompletedAt
		}
		if out[j].CompletedAt != nil {
			cj = *out[j].CompletedAt
		}
		return ci < cj
	})
	return out, nil
}
