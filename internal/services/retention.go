package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ledgerPruner deletes ledger rows older than a cutoff and reports how many
// rows were removed.
type ledgerPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig defines how long ledger rows are kept and how often the
// prune runs.
type RetentionConfig struct {
	RetentionHours  int `yaml:"retention_hours" default:"168"`
	IntervalMinutes int `yaml:"interval_minutes" default:"60"`
}

// RetentionService periodically prunes old rows from the risk ledger and
// threat event tables so the audit trail stays bounded.
type RetentionService struct {
	ledger ledgerPruner
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRetentionService creates a new retention service.
func NewRetentionService(ledger ledgerPruner) *RetentionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RetentionService{
		ledger: ledger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins periodic pruning. An initial prune runs immediately.
func (r *RetentionService) Start(config RetentionConfig) {
	if config.RetentionHours <= 0 {
		config.RetentionHours = 168
	}
	if config.IntervalMinutes <= 0 {
		config.IntervalMinutes = 60
	}

	log.Printf("Starting ledger retention with %dh retention, pruning every %dm",
		config.RetentionHours, config.IntervalMinutes)

	go func() {
		if err := r.runPrune(config); err != nil {
			log.Printf("Initial ledger prune failed: %v", err)
		}
	}()

	ticker := time.NewTicker(time.Duration(config.IntervalMinutes) * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				if err := r.runPrune(config); err != nil {
					log.Printf("Ledger prune failed: %v", err)
				}
			}
		}
	}()
}

// Stop stops the retention service.
func (r *RetentionService) Stop() {
	log.Println("Stopping ledger retention")
	r.cancel()
}

// RunPrune performs a manual prune with the given config.
func (r *RetentionService) RunPrune(config RetentionConfig) error {
	return r.runPrune(config)
}

func (r *RetentionService) runPrune(config RetentionConfig) error {
	cutoff := time.Now().Add(-time.Duration(config.RetentionHours) * time.Hour)

	removed, err := r.ledger.PruneOlderThan(r.ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune ledger: %w", err)
	}
	if removed > 0 {
		log.Printf("Pruned %d ledger rows older than %dh", removed, config.RetentionHours)
	}
	return nil
}
