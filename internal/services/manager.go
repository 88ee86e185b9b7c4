package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
)

type ManagerConfig struct {
	Locker          AttemptLocker
	Sessions        cache.SessionStore
	EventPublisher  events.EventPublisher
	AtRiskThreshold float64
	GuestSessionTTL time.Duration
	// CompletionHooks run after the event hook, in order.
	CompletionHooks []CompletionHook
}

// ServiceManager wires every service against one repository
type ServiceManager struct {
	Attempt   AttemptService
	Guest     GuestQuizService
	Analytics AnalyticsService
	Seed      *SeedService
	Events    *AttemptEventService
}

func NewServiceManager(repo repositories.Repository, cfg ManagerConfig, validator *validator.Validator, logger *slog.Logger) *ServiceManager {
	locker := cfg.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = cache.NewMemorySessionStore()
	}

	manager := &ServiceManager{
		Guest:     NewGuestQuizService(repo, sessions, locker, validator, logger, cfg.GuestSessionTTL),
		Analytics: NewAnalyticsService(repo, logger, cfg.AtRiskThreshold),
		Seed:      NewSeedService(repo, validator, logger),
	}

	var opts []AttemptServiceOption
	if cfg.EventPublisher != nil {
		manager.Events = NewAttemptEventService(cfg.EventPublisher, logger)
		opts = append(opts, WithStartHooks(manager.Events), WithCompletionHooks(manager.Events))
	}
	opts = append(opts, WithCompletionHooks(cfg.CompletionHooks...))
	manager.Attempt = NewAttemptService(repo, locker, validator, logger, opts...)

	return manager
}
