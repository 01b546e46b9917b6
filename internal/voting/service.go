package voting

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service bundles the three voting components over one database handle.
type Service struct {
	Registry *Registry
	Ballots  *BallotService
	Results  *Aggregator
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for window and visibility checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func NewService(db *gorm.DB, log *zap.Logger, opts ...Option) *Service {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	registry := &Registry{db: db, log: log.Named("registry"), now: o.now}
	return &Service{
		Registry: registry,
		Ballots:  &BallotService{db: db, log: log.Named("ballots"), registry: registry, now: o.now},
		Results:  &Aggregator{db: db, log: log.Named("results"), registry: registry, now: o.now},
	}
}
