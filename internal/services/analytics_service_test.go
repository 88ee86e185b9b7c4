package services

import (
	"context"
	"math"
	"testing"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeWithScore answers the first question and completes, giving 100 or 0 percent.
func completeWithScore(t *testing.T, f *attemptFixture, quizID uint, studentID string, correct bool) {
	t.Helper()
	ctx := context.Background()
	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quizID}, studentID)
	require.NoError(t, err)

	value := "false"
	if correct {
		value = "true"
	}
	_, err = f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: start.CurrentQuestion.ID, Value: value}, studentID)
	require.NoError(t, err)
	_, err = f.service.Complete(ctx, start.ID, studentID)
	require.NoError(t, err)
}

func TestAnalyticsService(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 4, Title: "Cells", QuestionCount: 3, PassingScore: 60},
		models.DifficultyEasy, models.DifficultyMedium)
	completeWithScore(t, f, quiz.ID, "alice", true)
	completeWithScore(t, f, quiz.ID, "bob", false)
	_, err := f.service.Start(context.Background(), &StartAttemptRequest{QuizID: quiz.ID}, "carol")
	require.NoError(t, err)

	service := NewAnalyticsService(f.repo, testLogger(), 0)
	ctx := context.Background()

	t.Run("quiz metrics", func(t *testing.T) {
		metrics, err := service.QuizMetrics(ctx, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, metrics.TotalAttempts)
		assert.Equal(t, 2, metrics.CompletedAttempts)
		assert.Equal(t, 66.67, metrics.CompletionRate)
		assert.Equal(t, 50.0, metrics.AverageScore)
		assert.Equal(t, 50.0, metrics.PassRate)
		assert.Equal(t, 60.0, metrics.PassThreshold)

		_, err = service.QuizMetrics(ctx, 999)
		assert.ErrorIs(t, err, ErrQuizNotFound)
	})

	t.Run("class metrics", func(t *testing.T) {
		metrics, err := service.ClassMetrics(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 3, metrics.UniqueStudents)
		require.Len(t, metrics.Quizzes, 1)

		empty, err := service.ClassMetrics(ctx, 99)
		require.NoError(t, err)
		assert.Zero(t, empty.TotalAttempts)
	})

	t.Run("at risk uses default and override", func(t *testing.T) {
		atRisk, err := service.AtRiskStudents(ctx, 4, nil)
		require.NoError(t, err)
		require.Len(t, atRisk, 1)
		assert.Equal(t, "bob", atRisk[0].StudentID)

		threshold := 0.0
		atRisk, err = service.AtRiskStudents(ctx, 4, &threshold)
		require.NoError(t, err)
		assert.Empty(t, atRisk)

		invalid := 120.0
		_, err = service.AtRiskStudents(ctx, 4, &invalid)
		assert.True(t, IsValidation(err))
	})

	t.Run("non-finite thresholds are rejected", func(t *testing.T) {
		for _, threshold := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			atRisk, err := service.AtRiskStudents(ctx, 4, &threshold)
			assert.True(t, IsValidation(err), "threshold %v", threshold)
			assert.Nil(t, atRisk)
		}
	})

	t.Run("NaN configured threshold falls back to default", func(t *testing.T) {
		nanService := NewAnalyticsService(f.repo, testLogger(), math.NaN())
		atRisk, err := nanService.AtRiskStudents(ctx, 4, nil)
		require.NoError(t, err)
		require.Len(t, atRisk, 1, "alice scored 100 and is not at risk")
		assert.Equal(t, "bob", atRisk[0].StudentID)
	})

	t.Run("student progress", func(t *testing.T) {
		progress, err := service.StudentProgress(ctx, 4, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, progress.QuizzesAttempted)
		assert.Equal(t, 1, progress.QuizzesCompleted)
		assert.Equal(t, 100.0, progress.AverageScore)

		carol, err := service.StudentProgress(ctx, 4, "carol")
		require.NoError(t, err)
		assert.Equal(t, 1, carol.QuizzesAttempted)
		assert.Zero(t, carol.QuizzesCompleted)
	})
}
