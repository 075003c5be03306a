package worksheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) GetStudent(ctx context.Context, id string) (Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,class_label,access_code,created_at FROM students WHERE id=$1`, id)
	var st Student
	if err := row.Scan(&st.ID, &st.Name, &st.ClassLabel, &st.AccessCode, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	return st, nil
}

func (s *SQLStore) GetStudentByCode(ctx context.Context, accessCode string) (Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,class_label,access_code,created_at FROM students WHERE access_code=$1`, accessCode)
	var st Student
	if err := row.Scan(&st.ID, &st.Name, &st.ClassLabel, &st.AccessCode, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	return st, nil
}

func (s *SQLStore) BulkUpsertStudents(ctx context.Context, rows []Student) (int, int, error) {
	ins, upd := 0, 0
	for _, st := range rows {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM students WHERE id=$1`, st.ID).Scan(&exists)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			ins++
		case err != nil:
			return ins, upd, err
		default:
			upd++
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO students (id,name,class_label,access_code,created_at)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, class_label=EXCLUDED.class_label`,
			st.ID, st.Name, st.ClassLabel, st.AccessCode, time.Now().Unix())
		if err != nil {
			return ins, upd, err
		}
	}
	return ins, upd, nil
}

func (s *SQLStore) ListStudents(ctx context.Context, classLabel string) ([]Student, error) {
	var rows *sql.Rows
	var err error
	if classLabel == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id,name,class_label,access_code,created_at FROM students ORDER BY name`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id,name,class_label,access_code,created_at FROM students WHERE class_label=$1 ORDER BY name`, classLabel)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.ClassLabel, &st.AccessCode, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutWorksheet(ctx context.Context, w Worksheet) error {
	sj, err := json.Marshal(w.Steps)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO worksheets (id,subject,grade,topic,title,password_hash,steps_json,max_attempts,is_active,is_visible,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (id) DO UPDATE SET subject=EXCLUDED.subject, grade=EXCLUDED.grade, topic=EXCLUDED.topic,
		   title=EXCLUDED.title, password_hash=EXCLUDED.password_hash, steps_json=EXCLUDED.steps_json,
		   max_attempts=EXCLUDED.max_attempts, is_active=EXCLUDED.is_active, is_visible=EXCLUDED.is_visible`,
		w.ID, w.Subject, w.Grade, w.Topic, w.Title, w.PasswordHash, string(sj),
		w.MaxAttempts, w.IsActive, w.IsVisible, time.Now().Unix())
	return err
}

func (s *SQLStore) GetWorksheet(ctx context.Context, id string) (Worksheet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,subject,grade,topic,title,password_hash,steps_json,max_attempts,is_active,is_visible,created_at
		 FROM worksheets WHERE id=$1`, id)
	return scanWorksheet(row)
}

func (s *SQLStore) ListWorksheets(ctx context.Context) ([]Worksheet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,subject,grade,topic,title,password_hash,steps_json,max_attempts,is_active,is_visible,created_at
		 FROM worksheets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Worksheet
	for rows.Next() {
		w, err := scanWorksheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorksheet(row rowScanner) (Worksheet, error) {
	var w Worksheet
	var sjson string
	err := row.Scan(&w.ID, &w.Subject, &w.Grade, &w.Topic, &w.Title, &w.PasswordHash,
		&sjson, &w.MaxAttempts, &w.IsActive, &w.IsVisible, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Worksheet{}, ErrNotFound
		}
		return Worksheet{}, err
	}
	if err := json.Unmarshal([]byte(sjson), &w.Steps); err != nil {
		return Worksheet{}, err
	}
	return w, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, studentID, worksheetID string, number int) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT student_id,worksheet_id,attempt_number,completed,total_score,completed_at,global_feedback,created_at
		 FROM worksheet_attempts WHERE student_id=$1 AND worksheet_id=$2 AND attempt_number=$3`,
		studentID, worksheetID, number)
	var a Attempt
	if err := row.Scan(&a.StudentID, &a.WorksheetID, &a.Number, &a.Completed, &a.TotalScore,
		&a.CompletedAt, &a.GlobalFeedback, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, studentID, worksheetID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id,worksheet_id,attempt_number,completed,total_score,completed_at,global_feedback,created_at
		 FROM worksheet_attempts WHERE student_id=$1 AND worksheet_id=$2 ORDER BY attempt_number`,
		studentID, worksheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttempts(rows)
}

func (s *SQLStore) EnsureAttempt(ctx context.Context, studentID, worksheetID string, number int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO worksheet_attempts (student_id,worksheet_id,attempt_number,completed,total_score,created_at)
		 VALUES ($1,$2,$3,FALSE,0,$4)
		 ON CONFLICT (student_id,worksheet_id,attempt_number) DO NOTHING`,
		studentID, worksheetID, number, time.Now().Unix())
	return err
}

func (s *SQLStore) SetAttemptTotal(ctx context.Context, studentID, worksheetID string, number int, total float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE worksheet_attempts SET total_score=$1
		 WHERE student_id=$2 AND worksheet_id=$3 AND attempt_number=$4`,
		total, studentID, worksheetID, number)
	return err
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, studentID, worksheetID string, number int, total float64, feedback string, completedAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE worksheet_attempts SET completed=TRUE, total_score=$1, global_feedback=$2, completed_at=$3
		 WHERE student_id=$4 AND worksheet_id=$5 AND attempt_number=$6`,
		total, feedback, completedAt, studentID, worksheetID, number)
	return err
}

func (s *SQLStore) UpsertProgress(ctx context.Context, p Progress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO student_progress (student_id,worksheet_id,attempt_number,step_position,answer_json,feedback,score,completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (student_id,worksheet_id,attempt_number,step_position) DO UPDATE SET
		   answer_json=EXCLUDED.answer_json, feedback=EXCLUDED.feedback, score=EXCLUDED.score, completed_at=EXCLUDED.completed_at`,
		p.StudentID, p.WorksheetID, p.AttemptNumber, p.StepPosition,
		string(p.Answer), p.Feedback, p.Score, p.CompletedAt)
	return err
}

func (s *SQLStore) ListProgress(ctx context.Context, studentID, worksheetID string, attemptNumber int) ([]Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id,worksheet_id,attempt_number,step_position,answer_json,feedback,score,completed_at
		 FROM student_progress WHERE student_id=$1 AND worksheet_id=$2 AND attempt_number=$3
		 ORDER BY step_position`,
		studentID, worksheetID, attemptNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Progress
	for rows.Next() {
		var p Progress
		var answer string
		if err := rows.Scan(&p.StudentID, &p.WorksheetID, &p.AttemptNumber, &p.StepPosition,
			&answer, &p.Feedback, &p.Score, &p.CompletedAt); err != nil {
			return nil, err
		}
		p.Answer = json.RawMessage(answer)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListCompletedAttempts(ctx context.Context, worksheetID string) ([]Attempt, error) {
	var rows *sql.Rows
	var err error
	if worksheetID == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT student_id,worksheet_id,attempt_number,completed,total_score,completed_at,global_feedback,created_at
			 FROM worksheet_attempts WHERE completed=TRUE ORDER BY completed_at`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT student_id,worksheet_id,attempt_number,completed,total_score,completed_at,global_feedback,created_at
			 FROM worksheet_attempts WHERE completed=TRUE AND worksheet_id=$1 ORDER BY completed_at`,
			worksheetID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttempts(rows)
}

func collectAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.StudentID, &a.WorksheetID, &a.Number, &a.Completed, &a.TotalScore,
			&a.CompletedAt, &a.GlobalFeedback, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
