package service

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-speechcoach-be/internal/dto"
	"ai-speechcoach-be/internal/pkg/serverutils"
	"ai-speechcoach-be/internal/repository/contract"
	"ai-speechcoach-be/pkg/sharekey"
)

type ISessionService interface {
	ListByUser(ctx context.Context, userId string) ([]*dto.SessionSummaryResponse, error)
	GetForOwner(ctx context.Context, id string, userId string) (*dto.SessionResponse, error)
	GetShared(ctx context.Context, id string, key string) (*dto.SharedSessionResponse, error)
}

type sessionService struct {
	repo contract.SessionRepository
	// Shared views are immutable once the session is over, so they are safe
	// to cache. Owner views skip the cache.
	sharedCache *cache.Cache
}

func NewSessionService(repo contract.SessionRepository) ISessionService {
	return &sessionService{
		repo:        repo,
		sharedCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *sessionService) ListByUser(ctx context.Context, userId string) ([]*dto.SessionSummaryResponse, error) {
	if userId == "" {
		return nil, serverutils.NewAppError(fiber.StatusBadRequest, "userId is required")
	}

	summaries, err := s.repo.ListByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionSummaryResponse, len(summaries))
	for i, summary := range summaries {
		res[i] = dto.NewSessionSummaryResponse(summary)
	}
	return res, nil
}

func (s *sessionService) GetForOwner(ctx context.Context, id string, userId string) (*dto.SessionResponse, error) {
	if userId == "" {
		return nil, serverutils.NewAppError(fiber.StatusBadRequest, "userId is required")
	}
	sessionId, err := uuid.Parse(id)
	if err != nil {
		return nil, serverutils.NewAppError(fiber.StatusBadRequest, "invalid session id")
	}

	session, err := s.repo.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewAppError(fiber.StatusNotFound, "session not found")
	}
	if session.UserId != userId {
		return nil, serverutils.NewAppError(fiber.StatusForbidden, "not your session")
	}

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) GetShared(ctx context.Context, id string, key string) (*dto.SharedSessionResponse, error) {
	if len(key) != sharekey.KeyLength {
		return nil, serverutils.NewAppError(fiber.StatusForbidden, "invalid share key")
	}
	sessionId, err := uuid.Parse(id)
	if err != nil {
		return nil, serverutils.NewAppError(fiber.StatusBadRequest, "invalid session id")
	}

	cacheKey := id + ":" + key
	if cached, ok := s.sharedCache.Get(cacheKey); ok {
		return cached.(*dto.SharedSessionResponse), nil
	}

	session, err := s.repo.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewAppError(fiber.StatusNotFound, "session not found")
	}

	includeTranscript := false
	switch key {
	case sharekey.Derive(session.Id.String(), session.UserId):
	case sharekey.DeriveFull(session.Id.String(), session.UserId):
		includeTranscript = true
	default:
		return nil, serverutils.NewAppError(fiber.StatusForbidden, "invalid share key")
	}

	res := dto.NewSharedSessionResponse(session, includeTranscript)
	s.sharedCache.Set(cacheKey, res, cache.DefaultExpiration)
	return res, nil
}
