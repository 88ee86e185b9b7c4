// Package analytics derives quiz and class metrics from persisted attempts.
// Everything here is a pure read: inputs are never mutated.
package analytics

import (
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/grading"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

type QuizMetrics struct {
	QuizID            uint                 `json:"quiz_id"`
	TotalAttempts     int                  `json:"total_attempts"`
	CompletedAttempts int                  `json:"completed_attempts"`
	CompletionRate    float64              `json:"completion_rate"`
	AverageScore      float64              `json:"average_score"`
	MinScore          float64              `json:"min_score"`
	MaxScore          float64              `json:"max_score"`
	PassThreshold     float64              `json:"pass_threshold"`
	PassRate          float64              `json:"pass_rate"`
	QuestionStats     []QuestionStatistics `json:"question_stats"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

type QuestionStatistics struct {
	QuestionID     uint    `json:"question_id"`
	TotalAnswers   int     `json:"total_answers"`
	CorrectAnswers int     `json:"correct_answers"`
	CorrectRate    float64 `json:"correct_rate"`
}

type ClassMetrics struct {
	ClassID           uint          `json:"class_id"`
	TotalAttempts     int           `json:"total_attempts"`
	CompletedAttempts int           `json:"completed_attempts"`
	CompletionRate    float64       `json:"completion_rate"`
	AverageScore      float64       `json:"average_score"`
	UniqueStudents    int           `json:"unique_students"`
	Quizzes           []QuizSummary `json:"quizzes"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

type QuizSummary struct {
	QuizID            uint    `json:"quiz_id"`
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
}

type AtRiskStudent struct {
	StudentID         string     `json:"student_id"`
	AverageScore      float64    `json:"average_score"`
	CompletedAttempts int        `json:"completed_attempts"`
	LastAttemptAt     *time.Time `json:"last_attempt_at"`
}

// Progress is recomputed from scratch on every request.
type Progress struct {
	StudentID        string     `json:"student_id"`
	ClassID          uint       `json:"class_id"`
	QuizzesAttempted int        `json:"quizzes_attempted"`
	QuizzesCompleted int        `json:"quizzes_completed"`
	AverageScore     float64    `json:"average_score"`
	LastAttemptAt    *time.Time `json:"last_attempt_at"`
}

func ComputeQuizMetrics(quizID uint, attempts []models.Attempt, passThreshold float64, now time.Time) QuizMetrics {
	metrics := QuizMetrics{
		QuizID:        quizID,
		TotalAttempts: len(attempts),
		PassThreshold: passThreshold,
		QuestionStats: []QuestionStatistics{},
		GeneratedAt:   now,
	}

	scores := completedScores(attempts)
	metrics.CompletedAttempts = len(scores)
	metrics.CompletionRate = grading.Percentage(len(scores), len(attempts))

	if len(scores) > 0 {
		metrics.AverageScore = mean(scores)
		metrics.MinScore, metrics.MaxScore = scores[0], scores[0]
		passed := 0
		for _, score := range scores {
			if score < metrics.MinScore {
				metrics.MinScore = score
			}
			if score > metrics.MaxScore {
				metrics.MaxScore = score
			}
			if score >= passThreshold {
				passed++
			}
		}
		metrics.PassRate = grading.Percentage(passed, len(scores))
	}

	metrics.QuestionStats = questionStatistics(attempts)
	return metrics
}

func ComputeClassMetrics(classID uint, attempts []models.Attempt, now time.Time) ClassMetrics {
	metrics := ClassMetrics{
		ClassID:       classID,
		TotalAttempts: len(attempts),
		Quizzes:       []QuizSummary{},
		GeneratedAt:   now,
	}

	students := make(map[string]struct{})
	byQuiz := make(map[uint][]models.Attempt)
	for _, attempt := range attempts {
		students[attempt.StudentID] = struct{}{}
		byQuiz[attempt.QuizID] = append(byQuiz[attempt.QuizID], attempt)
	}
	metrics.UniqueStudents = len(students)

	scores := completedScores(attempts)
	metrics.CompletedAttempts = len(scores)
	metrics.CompletionRate = grading.Percentage(len(scores), len(attempts))
	metrics.AverageScore = mean(scores)

	for quizID, quizAttempts := range byQuiz {
		quizScores := completedScores(quizAttempts)
		metrics.Quizzes = append(metrics.Quizzes, QuizSummary{
			QuizID:            quizID,
			TotalAttempts:     len(quizAttempts),
			CompletedAttempts: len(quizScores),
			AverageScore:      mean(quizScores),
		})
	}
	sort.Slice(metrics.Quizzes, func(i, j int) bool {
		return metrics.Quizzes[i].QuizID < metrics.Quizzes[j].QuizID
	})
	return metrics
}

// FindAtRiskStudents lists students whose mean completed percentage is below threshold,
// weakest first. Students with no completed attempt are not listed.
func FindAtRiskStudents(attempts []models.Attempt, threshold float64) []AtRiskStudent {
	byStudent := groupCompletedByStudent(attempts)

	result := []AtRiskStudent{}
	for studentID, studentAttempts := range byStudent {
		average := mean(completedScores(studentAttempts))
		if average >= threshold {
			continue
		}
		result = append(result, AtRiskStudent{
			StudentID:         studentID,
			AverageScore:      average,
			CompletedAttempts: len(studentAttempts),
			LastAttemptAt:     lastActivity(studentAttempts),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AverageScore == result[j].AverageScore {
			return result[i].StudentID < result[j].StudentID
		}
		return result[i].AverageScore < result[j].AverageScore
	})
	return result
}

func ComputeProgress(classID uint, studentID string, attempts []models.Attempt) Progress {
	progress := Progress{StudentID: studentID, ClassID: classID}

	var own []models.Attempt
	quizzes := make(map[uint]struct{})
	for _, attempt := range attempts {
		if attempt.StudentID != studentID {
			continue
		}
		own = append(own, attempt)
		quizzes[attempt.QuizID] = struct{}{}
	}

	scores := completedScores(own)
	progress.QuizzesAttempted = len(quizzes)
	progress.QuizzesCompleted = len(scores)
	progress.AverageScore = mean(scores)
	progress.LastAttemptAt = lastActivity(own)
	return progress
}

func completedScores(attempts []models.Attempt) []float64 {
	scores := make([]float64, 0, len(attempts))
	for _, attempt := range attempts {
		if !attempt.IsCompleted() || attempt.Percentage == nil {
			continue
		}
		scores = append(scores, *attempt.Percentage)
	}
	return scores
}

func groupCompletedByStudent(attempts []models.Attempt) map[string][]models.Attempt {
	grouped := make(map[string][]models.Attempt)
	for _, attempt := range attempts {
		if !attempt.IsCompleted() || attempt.Percentage == nil {
			continue
		}
		grouped[attempt.StudentID] = append(grouped[attempt.StudentID], attempt)
	}
	return grouped
}

// questionStatistics counts graded answers of completed attempts per question id.
func questionStatistics(attempts []models.Attempt) []QuestionStatistics {
	index := make(map[uint]*QuestionStatistics)
	for _, attempt := range attempts {
		if !attempt.IsCompleted() {
			continue
		}
		for _, answer := range attempt.Answers {
			stat, ok := index[answer.QuestionID]
			if !ok {
				stat = &QuestionStatistics{QuestionID: answer.QuestionID}
				index[answer.QuestionID] = stat
			}
			stat.TotalAnswers++
			if answer.IsCorrect {
				stat.CorrectAnswers++
			}
		}
	}

	stats := make([]QuestionStatistics, 0, len(index))
	for _, stat := range index {
		stat.CorrectRate = grading.Percentage(stat.CorrectAnswers, stat.TotalAnswers)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].QuestionID < stats[j].QuestionID })
	return stats
}

func lastActivity(attempts []models.Attempt) *time.Time {
	var last *time.Time
	for _, attempt := range attempts {
		at := attempt.StartedAt
		if attempt.CompletedAt != nil {
			at = *attempt.CompletedAt
		}
		if last == nil || at.After(*last) {
			t := at
			last = &t
		}
	}
	return last
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return grading.Round2(sum / float64(len(values)))
}
