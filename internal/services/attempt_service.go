package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/adaptive"
	"github.com/SAP-F-2025/quiz-engine/internal/grading"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"gorm.io/gorm"
)

const expireBatchSize = 100

type attemptService struct {
	repo            repositories.Repository
	locker          AttemptLocker
	validator       *validator.Validator
	logger          *slog.Logger
	ops             *ServiceLogger
	now             func() time.Time
	startHooks      []StartHook
	completionHooks []CompletionHook
}

type AttemptServiceOption func(*attemptService)

func WithClock(now func() time.Time) AttemptServiceOption {
	return func(s *attemptService) {
		s.now = now
	}
}

func WithCompletionHooks(hooks ...CompletionHook) AttemptServiceOption {
	return func(s *attemptService) {
		s.completionHooks = append(s.completionHooks, hooks...)
	}
}

func WithStartHooks(hooks ...StartHook) AttemptServiceOption {
	return func(s *attemptService) {
		s.startHooks = append(s.startHooks, hooks...)
	}
}

// NewAttemptService falls back to an in-process locker when locker is nil.
func NewAttemptService(repo repositories.Repository, locker AttemptLocker, validator *validator.Validator, logger *slog.Logger, opts ...AttemptServiceOption) AttemptService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	s := &attemptService{
		repo:      repo,
		locker:    locker,
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "attempt"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (resp *AttemptResponse, err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "start_attempt", started, err, "quiz_id", req.QuizID, "student_id", studentID)
	}()

	if err := s.validateIdentity(studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quizzes().GetByID(ctx, nil, req.QuizID)
	if err != nil {
		return nil, storeOrNotFound(err, ErrQuizNotFound, "get quiz", 0, req.QuizID)
	}

	// Cheap pre-check; the insert below is what actually enforces uniqueness.
	if existing, err := s.repo.Attempts().GetByStudentAndQuiz(ctx, nil, studentID, quiz.ID); err == nil {
		return nil, &AlreadyAttemptedError{AttemptID: existing.ID, QuizID: quiz.ID, StudentID: studentID}
	} else if !repositories.IsNotFoundError(err) {
		return nil, newStoreError("find attempt", 0, quiz.ID, err)
	}

	var attempt *models.Attempt
	var question *models.Question
	err = s.inTransaction(ctx, "start attempt", 0, quiz.ID, func(tx *gorm.DB) error {
		difficulty := quiz.StartDifficulty()
		question, err = s.repo.Questions().GetRandomByDifficulty(ctx, tx, quiz.ID, difficulty, nil)
		if errors.Is(err, repositories.ErrExhausted) {
			return ErrQuizHasNoQuestions
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		attempt = &models.Attempt{
			QuizID:            quiz.ID,
			ClassID:           quiz.ClassID,
			StudentID:         studentID,
			Status:            models.AttemptInProgress,
			CurrentDifficulty: difficulty,
			CurrentQuestionID: &question.ID,
			QuestionsAsked:    1,
			TotalQuestions:    quiz.QuestionCount,
			StartedAt:         now,
			ExpiresAt:         quiz.Deadline(now),
		}

		created, err := s.repo.Attempts().CreateIfAbsent(ctx, tx, attempt)
		if err != nil {
			return err
		}
		if !created {
			blocking := &AlreadyAttemptedError{QuizID: quiz.ID, StudentID: studentID}
			if existing, err := s.repo.Attempts().GetByStudentAndQuiz(ctx, tx, studentID, quiz.ID); err == nil {
				blocking.AttemptID = existing.ID
			}
			return blocking
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.runStartHooks(ctx, attempt)
	return s.buildResponse(ctx, attempt, question), nil
}

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (resp *SubmitAnswerResponse, err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "submit_answer", started, err, "attempt_id", attemptID, "question_id", req.QuestionID, "student_id", studentID)
	}()

	if err := s.validateIdentity(studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return nil, newStoreError("lock attempt", attemptID, 0, err)
	}
	defer unlock()

	var (
		attempt *models.Attempt
		result  *AttemptResult
		expired bool
	)
	resp = &SubmitAnswerResponse{}

	err = s.inTransaction(ctx, "submit answer", attemptID, 0, func(tx *gorm.DB) error {
		attempt, err = s.loadOwned(ctx, tx, attemptID, studentID, "answer")
		if err != nil {
			return err
		}
		if attempt.IsCompleted() {
			return ErrAttemptAlreadyCompleted
		}

		now := s.now().UTC()
		if attempt.IsExpired(now) {
			expired = true
			result, err = s.finalize(ctx, tx, attempt, models.EndReasonTimeout, now)
			return err
		}

		if attempt.HasAnswered(req.QuestionID) {
			return ErrQuestionAlreadyAnswered
		}
		if attempt.CurrentQuestionID == nil || *attempt.CurrentQuestionID != req.QuestionID {
			return ErrQuestionNotCurrent
		}

		question, err := s.repo.Questions().GetByID(ctx, tx, req.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return err
		}

		answer := models.Answer{
			AttemptID:      attempt.ID,
			QuestionID:     question.ID,
			Difficulty:     question.Difficulty,
			SubmittedValue: req.Value,
			IsCorrect:      grading.IsCorrect(question, req.Value),
			MaxPoints:      question.Weight(),
			AnsweredAt:     now,
		}
		if answer.IsCorrect {
			answer.Points = answer.MaxPoints
		}
		if err := s.repo.Attempts().AppendAnswer(ctx, tx, &answer); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrQuestionAlreadyAnswered
			}
			return err
		}
		attempt.Answers = append(attempt.Answers, answer)
		resp.Correct = answer.IsCorrect

		if len(attempt.Answers) >= attempt.TotalQuestions {
			result, err = s.finalize(ctx, tx, attempt, models.EndReasonQuestionLimit, now)
			return err
		}

		next := adaptive.NextDifficulty(answer.IsCorrect, attempt.CurrentDifficulty)
		nextQuestion, err := s.repo.Questions().GetRandomByDifficulty(ctx, tx, attempt.QuizID, next, attempt.AskedQuestionIDs())
		if errors.Is(err, repositories.ErrExhausted) {
			result, err = s.finalize(ctx, tx, attempt, models.EndReasonPoolExhausted, now)
			return err
		}
		if err != nil {
			return err
		}
		if nextQuestion.Difficulty != next {
			s.logger.Debug("No question left at target difficulty, drew from remaining pool",
				"attempt_id", attempt.ID,
				"target", next,
				"drawn", nextQuestion.Difficulty)
		}

		attempt.CurrentDifficulty = next
		attempt.CurrentQuestionID = &nextQuestion.ID
		attempt.QuestionsAsked++
		if err := s.repo.Attempts().Update(ctx, tx, attempt); err != nil {
			return err
		}
		resp.NextQuestion = nextQuestion.Public()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result != nil {
		s.runCompletionHooks(ctx, attempt, result)
	}
	if expired {
		return nil, ErrAttemptTimeExpired
	}

	resp.Completed = result != nil
	resp.Result = result
	return resp, nil
}

func (s *attemptService) Complete(ctx context.Context, attemptID uint, studentID string) (result *AttemptResult, err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "complete_attempt", started, err, "attempt_id", attemptID, "student_id", studentID)
	}()

	if err := s.validateIdentity(studentID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return nil, newStoreError("lock attempt", attemptID, 0, err)
	}
	defer unlock()

	var attempt *models.Attempt
	transitioned := false
	err = s.inTransaction(ctx, "complete attempt", attemptID, 0, func(tx *gorm.DB) error {
		attempt, err = s.loadOwned(ctx, tx, attemptID, studentID, "complete")
		if err != nil {
			return err
		}
		if attempt.IsCompleted() {
			result = storedResult(attempt, s.passThreshold(ctx, tx, attempt.QuizID))
			return nil
		}

		now := s.now().UTC()
		reason := models.EndReasonCompleted
		if attempt.IsExpired(now) {
			reason = models.EndReasonTimeout
		}
		transitioned = true
		result, err = s.finalize(ctx, tx, attempt, reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.runCompletionHooks(ctx, attempt, result)
	}
	return result, nil
}

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, studentID string) (*AttemptResponse, error) {
	if err := s.validateIdentity(studentID); err != nil {
		return nil, err
	}

	attempt, err := s.loadOwned(ctx, nil, attemptID, studentID, "view")
	if err != nil {
		if IsNotFound(err) || IsForbidden(err) {
			return nil, err
		}
		return nil, newStoreError("get attempt", attemptID, 0, err)
	}

	if attempt.IsCompleted() || attempt.CurrentQuestionID == nil {
		return s.buildResponse(ctx, attempt, nil), nil
	}

	question, err := s.repo.Questions().GetByID(ctx, nil, *attempt.CurrentQuestionID)
	if err != nil {
		return nil, storeOrNotFound(err, ErrQuestionNotFound, "get current question", attemptID, attempt.QuizID)
	}
	return s.buildResponse(ctx, attempt, question), nil
}

func (s *attemptService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.Attempts().ListExpired(ctx, nil, now, expireBatchSize)
	if err != nil {
		return 0, newStoreError("list expired attempts", 0, 0, err)
	}

	closed := 0
	var errs []error
	for _, candidate := range expired {
		ok, err := s.expireOne(ctx, candidate.ID, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			closed++
		}
	}

	if closed > 0 {
		s.logger.Info("Expired stale attempts", "count", closed)
	}
	return closed, errors.Join(errs...)
}

func (s *attemptService) expireOne(ctx context.Context, attemptID uint, now time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return false, newStoreError("lock attempt", attemptID, 0, err)
	}
	defer unlock()

	var attempt *models.Attempt
	var result *AttemptResult
	err = s.inTransaction(ctx, "expire attempt", attemptID, 0, func(tx *gorm.DB) error {
		attempt, err = s.repo.Attempts().GetForUpdate(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		// Completed or extended since it was listed.
		if attempt.IsCompleted() || !attempt.IsExpired(now) {
			return nil
		}
		result, err = s.finalize(ctx, tx, attempt, models.EndReasonTimeout, now.UTC())
		return err
	})
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}

	s.runCompletionHooks(ctx, attempt, result)
	return true, nil
}

// ===== HELPERS =====

func (s *attemptService) validateIdentity(studentID string) error {
	if studentID == "" {
		return ValidationErrors{*NewValidationError("student_id", "student identity is required", studentID)}
	}
	return nil
}

// inTransaction wraps anything that is not already a service error as a StoreError.
func (s *attemptService) inTransaction(ctx context.Context, op string, attemptID, quizID uint, fn func(tx *gorm.DB) error) error {
	err := s.repo.WithTransaction(ctx, fn)
	if err == nil || isServiceError(err) {
		return err
	}
	return newStoreError(op, attemptID, quizID, err)
}

func (s *attemptService) loadOwned(ctx context.Context, tx *gorm.DB, attemptID uint, studentID, action string) (*models.Attempt, error) {
	load := s.repo.Attempts().GetForUpdate
	if action == "view" {
		load = s.repo.Attempts().GetByID
	}

	attempt, err := load(ctx, tx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", action, "attempt belongs to another student")
	}
	return attempt, nil
}

// passThreshold falls back to the default passing score when the quiz cannot be read.
func (s *attemptService) passThreshold(ctx context.Context, tx *gorm.DB, quizID uint) float64 {
	quiz, err := s.repo.Quizzes().GetByID(ctx, tx, quizID)
	if err != nil {
		s.logger.Warn("Failed to load quiz for pass threshold", "quiz_id", quizID, "error", err)
		return models.DefaultPassingScore
	}
	return quiz.PassThreshold()
}

// finalize scores the answers recorded so far and persists the completed attempt.
func (s *attemptService) finalize(ctx context.Context, tx *gorm.DB, attempt *models.Attempt, reason string, now time.Time) (*AttemptResult, error) {
	score := grading.Score(attempt.Answers)

	attempt.Status = models.AttemptCompleted
	attempt.CurrentQuestionID = nil
	attempt.CompletedAt = &now
	attempt.CorrectCount = &score.CorrectCount
	attempt.TotalCount = &score.TotalCount
	attempt.Percentage = &score.Percentage
	attempt.EarnedPoints = score.EarnedPoints
	attempt.MaxPoints = score.MaxPoints
	attempt.EndReason = &reason

	if err := s.repo.Attempts().Update(ctx, tx, attempt); err != nil {
		return nil, err
	}
	return storedResult(attempt, s.passThreshold(ctx, tx, attempt.QuizID)), nil
}

func storedResult(attempt *models.Attempt, passThreshold float64) *AttemptResult {
	result := &AttemptResult{
		AttemptID:    attempt.ID,
		QuizID:       attempt.QuizID,
		EarnedPoints: attempt.EarnedPoints,
		MaxPoints:    attempt.MaxPoints,
	}
	if attempt.CorrectCount != nil {
		result.CorrectCount = *attempt.CorrectCount
	}
	if attempt.TotalCount != nil {
		result.TotalCount = *attempt.TotalCount
	}
	if attempt.Percentage != nil {
		result.Percentage = *attempt.Percentage
		result.Passed = result.Percentage >= passThreshold
	}
	if attempt.EndReason != nil {
		result.EndReason = *attempt.EndReason
	}
	if attempt.CompletedAt != nil {
		result.CompletedAt = *attempt.CompletedAt
	}
	return result
}

func (s *attemptService) buildResponse(ctx context.Context, attempt *models.Attempt, current *models.Question) *AttemptResponse {
	resp := &AttemptResponse{Attempt: *attempt}
	if attempt.IsCompleted() {
		resp.Result = storedResult(attempt, s.passThreshold(ctx, nil, attempt.QuizID))
		return resp
	}
	resp.CurrentQuestion = current.Public()
	if attempt.ExpiresAt != nil {
		remaining := int64(attempt.ExpiresAt.Sub(s.now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		resp.RemainingSeconds = &remaining
	}
	return resp
}

func (s *attemptService) runStartHooks(ctx context.Context, attempt *models.Attempt) {
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range s.startHooks {
		if err := hook.OnAttemptStarted(hookCtx, attempt); err != nil {
			s.logger.Error("Start hook failed", "attempt_id", attempt.ID, "error", err)
		}
	}
}

// runCompletionHooks is only called after the completing transaction committed.
func (s *attemptService) runCompletionHooks(ctx context.Context, attempt *models.Attempt, result *AttemptResult) {
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range s.completionHooks {
		if err := hook.OnAttemptCompleted(hookCtx, attempt, result); err != nil {
			s.logger.Error("Completion hook failed",
				"attempt_id", attempt.ID,
				"quiz_id", attempt.QuizID,
				"error", err)
		}
	}
}

func isServiceError(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsValidation(err) || IsForbidden(err) || IsUnavailable(err)
}
