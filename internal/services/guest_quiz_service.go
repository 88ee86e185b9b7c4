package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/grading"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/google/uuid"
)

const DefaultGuestSessionTTL = 2 * time.Hour

type guestQuizService struct {
	repo      repositories.Repository
	sessions  cache.SessionStore
	locker    AttemptLocker
	validator *validator.Validator
	ops       *ServiceLogger
	ttl       time.Duration
	now       func() time.Time
}

func NewGuestQuizService(repo repositories.Repository, sessions cache.SessionStore, locker AttemptLocker, validator *validator.Validator, logger *slog.Logger, ttl time.Duration) GuestQuizService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if ttl <= 0 {
		ttl = DefaultGuestSessionTTL
	}
	return &guestQuizService{
		repo:      repo,
		sessions:  sessions,
		locker:    locker,
		validator: validator,
		ops:       NewServiceLogger(logger, "guest_quiz"),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *guestQuizService) Start(ctx context.Context, quizID uint) (resp *GuestSessionResponse, err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "start_guest_session", started, err, "quiz_id", quizID)
	}()

	quiz, err := s.repo.Quizzes().GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, storeOrNotFound(err, ErrQuizNotFound, "get quiz", 0, quizID)
	}

	questions, err := s.repo.Questions().GetRandomSet(ctx, nil, quiz.ID, quiz.QuestionCount)
	if err != nil {
		return nil, newStoreError("draw guest questions", 0, quiz.ID, err)
	}
	if len(questions) == 0 {
		return nil, ErrQuizHasNoQuestions
	}

	now := s.now().UTC()
	session := &models.GuestSession{
		ID:          uuid.NewString(),
		QuizID:      quiz.ID,
		QuestionIDs: make([]uint, 0, len(questions)),
		Answers:     []models.Answer{},
		Status:      models.AttemptInProgress,
		StartedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	for _, q := range questions {
		session.QuestionIDs = append(session.QuestionIDs, q.ID)
	}

	if err := s.sessions.Save(ctx, session, s.ttl); err != nil {
		return nil, newStoreError("save guest session", 0, quiz.ID, err)
	}

	return &GuestSessionResponse{
		SessionID:       session.ID,
		QuizID:          quiz.ID,
		TotalQuestions:  len(session.QuestionIDs),
		CurrentQuestion: questions[0].Public(),
		ExpiresAt:       session.ExpiresAt,
	}, nil
}

func (s *guestQuizService) SubmitAnswer(ctx context.Context, sessionID string, req *SubmitAnswerRequest) (resp *SubmitAnswerResponse, err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "submit_guest_answer", started, err, "session_id", sessionID, "question_id", req.QuestionID)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, guestLockKey(sessionID))
	if err != nil {
		return nil, newStoreError("lock guest session", 0, 0, err)
	}
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.AttemptCompleted {
		return nil, ErrSessionCompleted
	}
	if session.HasAnswered(req.QuestionID) {
		return nil, ErrQuestionAlreadyAnswered
	}
	current, ok := session.CurrentQuestionID()
	if !ok || current != req.QuestionID {
		return nil, ErrQuestionNotCurrent
	}

	question, err := s.repo.Questions().GetByID(ctx, nil, current)
	if err != nil {
		return nil, storeOrNotFound(err, ErrQuestionNotFound, "get question", 0, session.QuizID)
	}

	now := s.now().UTC()
	answer := models.Answer{
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
	session.Answers = append(session.Answers, answer)
	session.Cursor++

	resp = &SubmitAnswerResponse{Correct: answer.IsCorrect}
	if _, more := session.CurrentQuestionID(); !more {
		s.finish(session, models.EndReasonQuestionLimit, now)
		resp.Completed = true
	} else {
		next, err := s.repo.Questions().GetByID(ctx, nil, session.QuestionIDs[session.Cursor])
		if err != nil {
			return nil, storeOrNotFound(err, ErrQuestionNotFound, "get next question", 0, session.QuizID)
		}
		resp.NextQuestion = next.Public()
	}

	if err := s.save(ctx, session, now); err != nil {
		return nil, err
	}
	if resp.Completed {
		resp.Result = s.result(ctx, session)
	}
	return resp, nil
}

// Complete is idempotent; a finished session keeps returning the same result until it expires.
func (s *guestQuizService) Complete(ctx context.Context, sessionID string) (result *AttemptResult, err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "complete_guest_session", started, err, "session_id", sessionID)
	}()

	unlock, err := s.locker.Lock(ctx, guestLockKey(sessionID))
	if err != nil {
		return nil, newStoreError("lock guest session", 0, 0, err)
	}
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != models.AttemptCompleted {
		now := s.now().UTC()
		s.finish(session, models.EndReasonCompleted, now)
		if err := s.save(ctx, session, now); err != nil {
			return nil, err
		}
	}
	return s.result(ctx, session), nil
}

// Abandon waits for any in-flight answer on the session before deleting it.
func (s *guestQuizService) Abandon(ctx context.Context, sessionID string) (err error) {
	started := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "abandon_guest_session", started, err, "session_id", sessionID)
	}()

	unlock, err := s.locker.Lock(ctx, guestLockKey(sessionID))
	if err != nil {
		return newStoreError("lock guest session", 0, 0, err)
	}
	defer unlock()

	if _, err := s.load(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return newStoreError("delete guest session", 0, 0, err)
	}
	return nil
}

func (s *guestQuizService) load(ctx context.Context, sessionID string) (*models.GuestSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, newStoreError("get guest session", 0, 0, err)
	}
	return session, nil
}

// save keeps the original expiry instead of extending it on every write.
func (s *guestQuizService) save(ctx context.Context, session *models.GuestSession, now time.Time) error {
	remaining := session.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return ErrSessionNotFound
	}
	if err := s.sessions.Save(ctx, session, remaining); err != nil {
		return newStoreError("save guest session", 0, session.QuizID, err)
	}
	return nil
}

func (s *guestQuizService) finish(session *models.GuestSession, reason string, now time.Time) {
	session.Status = models.AttemptCompleted
	session.EndReason = reason
	session.CompletedAt = &now
}

func (s *guestQuizService) result(ctx context.Context, session *models.GuestSession) *AttemptResult {
	threshold := float64(models.DefaultPassingScore)
	if quiz, err := s.repo.Quizzes().GetByID(ctx, nil, session.QuizID); err == nil {
		threshold = quiz.PassThreshold()
	}

	score := grading.Score(session.Answers)
	result := &AttemptResult{
		SessionID:    session.ID,
		QuizID:       session.QuizID,
		CorrectCount: score.CorrectCount,
		TotalCount:   score.TotalCount,
		Percentage:   score.Percentage,
		EarnedPoints: score.EarnedPoints,
		MaxPoints:    score.MaxPoints,
		Passed:       score.Percentage >= threshold,
		EndReason:    session.EndReason,
	}
	if session.CompletedAt != nil {
		result.CompletedAt = *session.CompletedAt
	}
	return result
}
