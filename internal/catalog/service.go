package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/agenda-platform/internal/cache"
	"github.com/wolfman30/agenda-platform/internal/retry"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Service fronts the Repository with retries on reads and a read-through cache.
type Service struct {
	repo   Repository
	cache  cache.Cache
	ttl    time.Duration
	policy retry.Policy
	logger *logging.Logger
}

// Option customizes a Service.
type Option func(*Service)

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
		s.ttl = ttl
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	if repo == nil {
		panic("catalog: repository required")
	}
	s := &Service{
		repo:   repo,
		cache:  cache.Noop{},
		policy: retry.DefaultPolicy(),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.policy.Retryable = notFoundAware(s.policy.Retryable)
	return s
}

// ActiveProviders lists providers accepting bookings, ordered by id.
func (s *Service) ActiveProviders(ctx context.Context) ([]Provider, error) {
	return cache.Fetch(ctx, s.cache, s.logger, "providers:active", s.ttl, func(ctx context.Context) ([]Provider, error) {
		return retry.Value(ctx, s.policy, s.repo.ListActiveProviders)
	})
}

// Provider returns a provider by id, active or not.
func (s *Service) Provider(ctx context.Context, id int64) (*Provider, error) {
	return cache.Fetch(ctx, s.cache, s.logger, fmt.Sprintf("providers:%d", id), s.ttl, func(ctx context.Context) (*Provider, error) {
		return retry.Value(ctx, s.policy, func(ctx context.Context) (*Provider, error) {
			return s.repo.GetProvider(ctx, id)
		})
	})
}

// Procedures lists the active procedures of a provider.
func (s *Service) Procedures(ctx context.Context, providerID int64) ([]Procedure, error) {
	return cache.Fetch(ctx, s.cache, s.logger, fmt.Sprintf("providers:%d:procedures", providerID), s.ttl, func(ctx context.Context) ([]Procedure, error) {
		return retry.Value(ctx, s.policy, func(ctx context.Context) ([]Procedure, error) {
			return s.repo.ListActiveProcedures(ctx, providerID)
		})
	})
}

// Procedure returns a procedure by id, active or not.
func (s *Service) Procedure(ctx context.Context, id int64) (*Procedure, error) {
	return cache.Fetch(ctx, s.cache, s.logger, fmt.Sprintf("procedures:%d", id), s.ttl, func(ctx context.Context) (*Procedure, error) {
		return retry.Value(ctx, s.policy, func(ctx context.Context) (*Procedure, error) {
			return s.repo.GetProcedure(ctx, id)
		})
	})
}

// ActiveProvider returns the provider only when it exists and is active.
func (s *Service) ActiveProvider(ctx context.Context, id int64) (*Provider, error) {
	p, err := s.Provider(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrNotFound
	}
	return p, nil
}

// OfferedProcedure returns the procedure only when it is active and belongs
// to providerID.
func (s *Service) OfferedProcedure(ctx context.Context, providerID, procedureID int64) (*Procedure, error) {
	p, err := s.Procedure(ctx, procedureID)
	if err != nil {
		return nil, err
	}
	if !p.Active || p.ProviderID != providerID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if err := s.repo.CreateProvider(ctx, p); err != nil {
		return err
	}
	cache.Invalidate(ctx, s.cache, s.logger)
	return nil
}

func (s *Service) CreateProcedure(ctx context.Context, p *Procedure) error {
	if err := s.repo.CreateProcedure(ctx, p); err != nil {
		return err
	}
	cache.Invalidate(ctx, s.cache, s.logger)
	return nil
}

// DeactivateProvider hides the provider and its procedures from booking.
func (s *Service) DeactivateProvider(ctx context.Context, id int64) error {
	if err := s.repo.DeactivateProvider(ctx, id); err != nil {
		return err
	}
	s.logger.Info("provider deactivated", "provider_id", id)
	cache.Invalidate(ctx, s.cache, s.logger)
	return nil
}

func notFoundAware(next func(error) bool) func(error) bool {
	return func(err error) bool {
		if errors.Is(err, ErrNotFound) || next == nil {
			return false
		}
		return next(err)
	}
}
