package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===== TEST FIXTURES =====

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type MockCompletionHook struct {
	mock.Mock
}

func (m *MockCompletionHook) OnAttemptCompleted(ctx context.Context, attempt *models.Attempt, result *AttemptResult) error {
	args := m.Called(ctx, attempt, result)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedQuiz(t *testing.T, repo repositories.Repository, quiz models.Quiz, difficulties ...models.DifficultyLevel) *models.Quiz {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Quizzes().Create(ctx, nil, &quiz))
	for i, difficulty := range difficulties {
		require.NoError(t, repo.Questions().Create(ctx, nil, &models.Question{
			QuizID:        quiz.ID,
			Type:          models.TrueFalse,
			Prompt:        "statement " + string(rune('A'+i)),
			CorrectAnswer: "true",
			Difficulty:    difficulty,
		}))
	}
	return &quiz
}

type attemptFixture struct {
	repo    *memory.Store
	clock   *testClock
	service AttemptService
}

func newAttemptFixture(opts ...AttemptServiceOption) *attemptFixture {
	f := &attemptFixture{repo: memory.NewStore(), clock: newTestClock()}
	opts = append([]AttemptServiceOption{WithClock(f.clock.Now)}, opts...)
	f.service = NewAttemptService(f.repo, NewLocalLocker(), validator.New(), testLogger(), opts...)
	return f
}

func answerCurrent(t *testing.T, f *attemptFixture, attemptID uint, questionID uint, correct bool) *SubmitAnswerResponse {
	t.Helper()
	value := "false"
	if correct {
		value = "true"
	}
	resp, err := f.service.SubmitAnswer(context.Background(), attemptID, &SubmitAnswerRequest{QuestionID: questionID, Value: value}, "student-1")
	require.NoError(t, err)
	return resp
}

// ===== START =====

func TestAttemptService_Start(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 3, Title: "Cells", QuestionCount: 3},
		models.DifficultyEasy, models.DifficultyMedium)

	resp, err := f.service.Start(context.Background(), &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)

	assert.Equal(t, models.AttemptInProgress, resp.Status)
	assert.Equal(t, models.DifficultyEasy, resp.CurrentDifficulty)
	assert.Equal(t, uint(3), resp.ClassID)
	assert.Equal(t, 3, resp.TotalQuestions)
	require.NotNil(t, resp.CurrentQuestion)
	assert.Equal(t, models.DifficultyEasy, resp.CurrentQuestion.Difficulty)
	assert.Nil(t, resp.ExpiresAt)
	assert.Nil(t, resp.Result)
}

func TestAttemptService_Start_AlreadyAttempted(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 2}, models.DifficultyEasy)
	ctx := context.Background()

	first, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)

	_, err = f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.ErrorIs(t, err, ErrAlreadyAttempted)
	var already *AlreadyAttemptedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, first.ID, already.AttemptID)
	assert.True(t, IsConflict(err))

	attempts, err := f.repo.Attempts().ListByQuiz(ctx, nil, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestAttemptService_Start_ConcurrentStartsCreateOneAttempt(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 2}, models.DifficultyEasy)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, conflicted := 0, 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Start(context.Background(), &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyAttempted):
				conflicted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, conflicted)
}

func TestAttemptService_Start_Errors(t *testing.T) {
	f := newAttemptFixture()
	empty := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Empty", QuestionCount: 2})
	ctx := context.Background()

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: 999}, "student-1")
		assert.ErrorIs(t, err, ErrQuizNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("empty pool creates no attempt", func(t *testing.T) {
		_, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: empty.ID}, "student-1")
		assert.ErrorIs(t, err, ErrQuizHasNoQuestions)

		_, err = f.repo.Attempts().GetByStudentAndQuiz(ctx, nil, "student-1", empty.ID)
		assert.True(t, repositories.IsNotFoundError(err))
	})

	t.Run("missing quiz id", func(t *testing.T) {
		_, err := f.service.Start(ctx, &StartAttemptRequest{}, "student-1")
		assert.True(t, IsValidation(err))
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: empty.ID}, "")
		assert.True(t, IsValidation(err))
	})
}

// ===== ADAPTIVE FLOW =====

func TestAttemptService_AdaptiveFlowEndToEnd(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 3},
		models.DifficultyEasy, models.DifficultyEasy, models.DifficultyMedium)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)
	require.Equal(t, models.DifficultyEasy, start.CurrentQuestion.Difficulty)

	first := answerCurrent(t, f, start.ID, start.CurrentQuestion.ID, true)
	assert.True(t, first.Correct)
	require.NotNil(t, first.NextQuestion)
	assert.Equal(t, models.DifficultyMedium, first.NextQuestion.Difficulty)

	second := answerCurrent(t, f, start.ID, first.NextQuestion.ID, false)
	assert.False(t, second.Correct)
	require.NotNil(t, second.NextQuestion)
	assert.Equal(t, models.DifficultyEasy, second.NextQuestion.Difficulty)
	assert.NotEqual(t, start.CurrentQuestion.ID, second.NextQuestion.ID)

	third := answerCurrent(t, f, start.ID, second.NextQuestion.ID, true)
	assert.True(t, third.Completed)
	assert.Nil(t, third.NextQuestion)
	require.NotNil(t, third.Result)
	assert.Equal(t, 2, third.Result.CorrectCount)
	assert.Equal(t, 3, third.Result.TotalCount)
	assert.Equal(t, 66.67, third.Result.Percentage)
	assert.True(t, third.Result.Passed)
	assert.Equal(t, models.EndReasonQuestionLimit, third.Result.EndReason)

	detail, err := f.service.GetByID(ctx, start.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCompleted, detail.Status)
	require.Len(t, detail.Answers, 3)
	assert.Equal(t, models.DifficultyEasy, detail.Answers[0].Difficulty)
	assert.Equal(t, models.DifficultyMedium, detail.Answers[1].Difficulty)
	assert.Equal(t, models.DifficultyEasy, detail.Answers[2].Difficulty)
	assert.Nil(t, detail.CurrentQuestion)
}

func TestAttemptService_PoolExhausted(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Short", QuestionCount: 5},
		models.DifficultyEasy, models.DifficultyEasy)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)

	// No medium question exists, so the draw falls back to the remaining easy one.
	first := answerCurrent(t, f, start.ID, start.CurrentQuestion.ID, true)
	require.NotNil(t, first.NextQuestion)
	assert.Equal(t, models.DifficultyEasy, first.NextQuestion.Difficulty)

	second := answerCurrent(t, f, start.ID, first.NextQuestion.ID, true)
	assert.True(t, second.Completed)
	require.NotNil(t, second.Result)
	assert.Equal(t, 2, second.Result.TotalCount)
	assert.Equal(t, 100.0, second.Result.Percentage)
	assert.Equal(t, models.EndReasonPoolExhausted, second.Result.EndReason)
}

// ===== SUBMIT ANSWER =====

func TestAttemptService_SubmitAnswer_Rejections(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 3},
		models.DifficultyEasy, models.DifficultyEasy, models.DifficultyMedium)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)
	firstID := start.CurrentQuestion.ID
	next := answerCurrent(t, f, start.ID, firstID, true)

	t.Run("already answered", func(t *testing.T) {
		_, err := f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: firstID, Value: "true"}, "student-1")
		assert.ErrorIs(t, err, ErrQuestionAlreadyAnswered)
	})

	t.Run("not the current question", func(t *testing.T) {
		var other uint
		for _, id := range []uint{1, 2, 3} {
			if id != firstID && id != next.NextQuestion.ID {
				other = id
			}
		}
		_, err := f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: other, Value: "true"}, "student-1")
		assert.ErrorIs(t, err, ErrQuestionNotCurrent)
		assert.True(t, IsValidation(err))
	})

	t.Run("another student", func(t *testing.T) {
		_, err := f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: next.NextQuestion.ID, Value: "true"}, "student-2")
		assert.ErrorIs(t, err, ErrAttemptAccessDenied)
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, err := f.service.SubmitAnswer(ctx, 404, &SubmitAnswerRequest{QuestionID: 1}, "student-1")
		assert.ErrorIs(t, err, ErrAttemptNotFound)
	})

	attempt, err := f.repo.Attempts().GetByID(ctx, nil, start.ID)
	require.NoError(t, err)
	assert.Len(t, attempt.Answers, 1, "rejected submissions append nothing")
}

func TestAttemptService_SubmitAnswer_CompletedAttempt(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 3},
		models.DifficultyEasy, models.DifficultyMedium)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)
	_, err = f.service.Complete(ctx, start.ID, "student-1")
	require.NoError(t, err)

	_, err = f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: start.CurrentQuestion.ID, Value: "true"}, "student-1")
	assert.ErrorIs(t, err, ErrAttemptAlreadyCompleted)

	attempt, err := f.repo.Attempts().GetByID(ctx, nil, start.ID)
	require.NoError(t, err)
	assert.Empty(t, attempt.Answers)
}

func TestAttemptService_SubmitAnswer_ConcurrentDuplicates(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 3},
		models.DifficultyEasy, models.DifficultyEasy, models.DifficultyMedium)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, duplicates := 0, 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: start.CurrentQuestion.ID, Value: "true"}, "student-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrQuestionAlreadyAnswered) {
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, duplicates)

	attempt, err := f.repo.Attempts().GetByID(ctx, nil, start.ID)
	require.NoError(t, err)
	assert.Len(t, attempt.Answers, 1)
	assert.Equal(t, 2, attempt.QuestionsAsked)
}

// ===== COMPLETE =====

func TestAttemptService_Complete_Idempotent(t *testing.T) {
	hook := new(MockCompletionHook)
	hook.On("OnAttemptCompleted", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f := newAttemptFixture(WithCompletionHooks(hook))
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 3, PassingScore: 50},
		models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)
	answerCurrent(t, f, start.ID, start.CurrentQuestion.ID, true)

	first, err := f.service.Complete(ctx, start.ID, "student-1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.service.Complete(ctx, start.ID, "student-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.CorrectCount)
	assert.Equal(t, 1, first.TotalCount)
	assert.Equal(t, 100.0, first.Percentage)
	assert.Equal(t, models.EndReasonCompleted, first.EndReason)
	hook.AssertNumberOfCalls(t, "OnAttemptCompleted", 1)
}

func TestAttemptService_Complete_NoAnswers(t *testing.T) {
	f := newAttemptFixture()
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 3}, models.DifficultyEasy)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)

	result, err := f.service.Complete(ctx, start.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 0.0, result.Percentage)
	assert.False(t, result.Passed)
}

func TestAttemptService_HookFailureDoesNotFailCompletion(t *testing.T) {
	hook := new(MockCompletionHook)
	hook.On("OnAttemptCompleted", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("recommendation service down"))

	f := newAttemptFixture(WithCompletionHooks(hook))
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Cells", QuestionCount: 1}, models.DifficultyEasy)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)

	resp := answerCurrent(t, f, start.ID, start.CurrentQuestion.ID, true)
	assert.True(t, resp.Completed)
	hook.AssertExpectations(t)

	attempt, err := f.repo.Attempts().GetByID(ctx, nil, start.ID)
	require.NoError(t, err)
	assert.True(t, attempt.IsCompleted())
}

func TestAttemptService_PublishesLifecycleEvents(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	eventHook := NewAttemptEventService(publisher, testLogger())

	f := newAttemptFixture(WithStartHooks(eventHook), WithCompletionHooks(eventHook))
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 8, Title: "Cells", QuestionCount: 1}, models.DifficultyEasy)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)
	answerCurrent(t, f, start.ID, start.CurrentQuestion.ID, false)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventAttemptStarted, published[0].Type)
	assert.Equal(t, events.EventAttemptCompleted, published[1].Type)

	completed, ok := published[1].Data.(events.AttemptCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, start.ID, completed.AttemptID)
	assert.Equal(t, uint(8), completed.ClassID)
	assert.Equal(t, 0, completed.CorrectCount)
	assert.False(t, completed.Passed)
	assert.Equal(t, models.EndReasonQuestionLimit, completed.EndReason)
}

// ===== TIME LIMIT =====

func TestAttemptService_TimeLimit(t *testing.T) {
	hook := new(MockCompletionHook)
	hook.On("OnAttemptCompleted", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f := newAttemptFixture(WithCompletionHooks(hook))
	quiz := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Timed", QuestionCount: 3, TimeLimitMinutes: 10},
		models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard)
	ctx := context.Background()

	start, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: quiz.ID}, "student-1")
	require.NoError(t, err)
	require.NotNil(t, start.ExpiresAt)
	require.NotNil(t, start.RemainingSeconds)
	assert.Equal(t, int64(600), *start.RemainingSeconds)

	next := answerCurrent(t, f, start.ID, start.CurrentQuestion.ID, true)
	f.clock.Advance(11 * time.Minute)

	_, err = f.service.SubmitAnswer(ctx, start.ID, &SubmitAnswerRequest{QuestionID: next.NextQuestion.ID, Value: "true"}, "student-1")
	assert.ErrorIs(t, err, ErrAttemptTimeExpired)

	attempt, err := f.repo.Attempts().GetByID(ctx, nil, start.ID)
	require.NoError(t, err)
	assert.True(t, attempt.IsCompleted())
	require.NotNil(t, attempt.EndReason)
	assert.Equal(t, models.EndReasonTimeout, *attempt.EndReason)
	assert.Equal(t, 1, *attempt.TotalCount)
	hook.AssertNumberOfCalls(t, "OnAttemptCompleted", 1)
}

func TestAttemptService_ExpireStale(t *testing.T) {
	f := newAttemptFixture()
	timed := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Timed", QuestionCount: 3, TimeLimitMinutes: 5}, models.DifficultyEasy)
	untimed := seedQuiz(t, f.repo, models.Quiz{ClassID: 1, Title: "Open", QuestionCount: 3}, models.DifficultyEasy)
	ctx := context.Background()

	expiring, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: timed.ID}, "student-1")
	require.NoError(t, err)
	open, err := f.service.Start(ctx, &StartAttemptRequest{QuizID: untimed.ID}, "student-1")
	require.NoError(t, err)

	closed, err := f.service.ExpireStale(ctx, f.clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, closed, "nothing is past its deadline yet")

	closed, err = f.service.ExpireStale(ctx, f.clock.Now().Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	result, err := f.service.GetByID(ctx, expiring.ID, "student-1")
	require.NoError(t, err)
	require.NotNil(t, result.Result)
	assert.Equal(t, models.EndReasonTimeout, result.Result.EndReason)

	stillOpen, err := f.service.GetByID(ctx, open.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, stillOpen.Status)
	assert.NotNil(t, stillOpen.CurrentQuestion)
}

// ===== LOCKER =====

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "attempt:1")
	require.NoError(t, err)

	t.Run("other keys are independent", func(t *testing.T) {
		other, err := locker.Lock(ctx, "attempt:2")
		require.NoError(t, err)
		other()
	})

	t.Run("held key honours context", func(t *testing.T) {
		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := locker.Lock(waitCtx, "attempt:1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	unlock()
	unlock()
	assert.Zero(t, locker.size(), "released keys are dropped")

	again, err := locker.Lock(ctx, "attempt:1")
	require.NoError(t, err)
	again()
}
