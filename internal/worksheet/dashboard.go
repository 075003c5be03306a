package worksheet

import (
	"context"
	"sort"
)

// RankingEntry is one row of a cohort ranking.
type RankingEntry struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	ClassLabel  string  `json:"class_label"`
	BestScore   float64 `json:"best_score"`
	CompletedAt int64   `json:"completed_at"`
	Attempts    int     `json:"attempts"`
}

// WorksheetRanking ranks students on one worksheet by their best
// completed attempt. Ties break in favor of the earlier completion.
func (s *Service) WorksheetRanking(ctx context.Context, worksheetID string) ([]RankingEntry, error) {
	attempts, err := s.store.ListCompletedAttempts(ctx, worksheetID)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, attempts)
}

// OverallRanking ranks students across all worksheets: per worksheet
// the best completed attempt counts, and a student's overall score is
// the sum of those bests. Ties break by the earliest moment the later
// of the contributing attempts completed.
func (s *Service) OverallRanking(ctx context.Context) ([]RankingEntry, error) {
	attempts, err := s.store.ListCompletedAttempts(ctx, "")
	if err != nil {
		return nil, err
	}

	type sheetKey struct{ student, worksheet string }
	best := map[sheetKey]Attempt{}
	for _, a := range attempts {
		k := sheetKey{a.StudentID, a.WorksheetID}
		prev, ok := best[k]
		if !ok || better(a, prev) {
			best[k] = a
		}
	}

	perStudent := map[string]*RankingEntry{}
	counts := map[string]int{}
	for _, a := range attempts {
		counts[a.StudentID]++
	}
	for _, a := range best {
		e, ok := perStudent[a.StudentID]
		if !ok {
			e = &RankingEntry{StudentID: a.StudentID}
			perStudent[a.StudentID] = e
		}
		e.BestScore += a.TotalScore
		if a.CompletedAt != nil && *a.CompletedAt > e.CompletedAt {
			e.CompletedAt = *a.CompletedAt
		}
	}

	out := make([]RankingEntry, 0, len(perStudent))
	for id, e := range perStudent {
		e.Attempts = counts[id]
		if st, err := s.store.GetStudent(ctx, id); err == nil {
			e.StudentName = st.Name
			e.ClassLabel = st.ClassLabel
		}
		out = append(out, *e)
	}
	sortRanking(out)
	return out, nil
}

func (s *Service) rank(ctx context.Context, attempts []Attempt) ([]RankingEntry, error) {
	best := map[string]Attempt{}
	counts := map[string]int{}
	for _, a := range attempts {
		counts[a.StudentID]++
		prev, ok := best[a.StudentID]
		if !ok || better(a, prev) {
			best[a.StudentID] = a
		}
	}

	out := make([]RankingEntry, 0, len(best))
	for id, a := range best {
		e := RankingEntry{
			StudentID: id,
			BestScore: a.TotalScore,
			Attempts:  counts[id],
		}
		if a.CompletedAt != nil {
			e.CompletedAt = *a.CompletedAt
		}
		if st, err := s.store.GetStudent(ctx, id); err == nil {
			e.StudentName = st.Name
			e.ClassLabel = st.ClassLabel
		}
		out = append(out, e)
	}
	sortRanking(out)
	return out, nil
}

// better prefers the higher score, then the earlier completion.
func better(a, b Attempt) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	at, bt := int64(0), int64(0)
	if a.CompletedAt != nil {
		at = *a.CompletedAt
	}
	if b.CompletedAt != nil {
		bt = *b.CompletedAt
	}
	return at < bt
}

func sortRanking(entries []RankingEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BestScore != entries[j].BestScore {
			return entries[i].BestScore > entries[j].BestScore
		}
		return entries[i].CompletedAt < entries[j].CompletedAt
	})
}
