// Package catalog holds the read-only service, country, and credit-package
// catalogs. Lists are refreshed wholesale from the authority and never merged
// field by field.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"jackbear/internal/platform/metrics"
	dErrors "jackbear/pkg/domain-errors"
)

// Service is one rentable SMS destination service.
type Service struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Available bool    `json:"available"`
}

// Country is one rentable origin country.
type Country struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	UnitPrice float64 `json:"price"`
	Available bool    `json:"available"`
}

// CreditPackage is one purchasable credit bundle.
type CreditPackage struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Credits         int     `json:"credits"`
	Price           float64 `json:"price"`
	BonusCredits    int     `json:"bonus"`
	DiscountPercent float64 `json:"discount"`
}

// Transport is the slice of the outbound channel the catalog needs.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
}

// Store caches the three catalogs. Refresh is its only writer.
type Store struct {
	client  Transport
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	services  []Service
	countries []Country
	packages  []CreditPackage
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore constructs an empty catalog store.
func NewStore(client Transport, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transport is required")
	}
	s := &Store{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Refresh re-reads all three catalogs. A catalog endpoint the authority never
// implemented degrades that list to empty instead of failing the round; any
// other failure is returned.
func (s *Store) Refresh(ctx context.Context) error {
	services, err := fetchList[Service](ctx, s, "/admin/services/available")
	if err != nil {
		return err
	}
	countries, err := fetchList[Country](ctx, s, "/sms/countries")
	if err != nil {
		return err
	}
	packages, err := fetchList[CreditPackage](ctx, s, "/payments/packages")
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.services = services
	s.countries = countries
	s.packages = packages
	s.mu.Unlock()
	return nil
}

// fetchList reads one catalog endpoint, treating a missing route as an empty
// catalog.
func fetchList[T any](ctx context.Context, s *Store, path string) ([]T, error) {
	var list []T
	err := s.client.Get(ctx, path, &list)
	switch {
	case err == nil:
		return list, nil
	case dErrors.HasCode(err, dErrors.CodeNotFound), dErrors.HasCode(err, dErrors.CodeUnavailable):
		s.logger.DebugContext(ctx, "catalog endpoint unavailable, degrading to empty", "path", path)
		if s.metrics != nil {
			s.metrics.CatalogDegradations.Inc()
		}
		return nil, nil
	default:
		return nil, err
	}
}

// Services returns the cached service catalog.
func (s *Store) Services() []Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Service(nil), s.services...)
}

// Countries returns the cached country catalog.
func (s *Store) Countries() []Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Country(nil), s.countries...)
}

// Packages returns the cached credit-package catalog.
func (s *Store) Packages() []CreditPackage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CreditPackage(nil), s.packages...)
}

// Package looks a credit package up by id.
func (s *Store) Package(id string) (CreditPackage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.packages {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}

// UnitPrice implements the numbers engine's price hint.
func (s *Store) UnitPrice(serviceID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.services {
		if svc.ID == serviceID {
			return svc.UnitPrice, true
		}
	}
	return 0, false
}

// Clear drops all cached catalogs.
func (s *Store) Clear() {
	s.mu.Lock()
	s.services = nil
	s.countries = nil
	s.packages = nil
	s.mu.Unlock()
}
