package models

import "time"

// PracticeSession summarizes one completed run through a task list
type PracticeSession struct {
	ID             int64
	UserID         int64
	TaskKind       TaskKind
	Topic          string
	Score          int
	TotalQuestions int
	CorrectAnswers int
	Duration       time.Duration
	CompletedAt    time.Time
}

// Accuracy returns the fraction of questions answered correctly, as a
// percentage. Sessions with no questions report zero.
func (p *PracticeSession) Accuracy() float64 {
	if p.TotalQuestions == 0 {
		return 0
	}
	return float64(p.CorrectAnswers) / float64(p.TotalQuestions) * 100
}
