package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wardenlabs/defi-sentinel/internal/database"
	"github.com/wardenlabs/defi-sentinel/internal/models"
	"github.com/wardenlabs/defi-sentinel/internal/provider"
	"github.com/wardenlabs/defi-sentinel/internal/risk"
	"github.com/wardenlabs/defi-sentinel/internal/telemetry"
	"github.com/wardenlabs/defi-sentinel/internal/utils"
)

// MonitorConfig holds the polling settings for the monitor service.
type MonitorConfig struct {
	PollInterval time.Duration
	MaxErrors    int
	Assets       []string
}

// riskLedger is the persistence surface the monitor writes to. Nil-able
// so the monitor can run without a database in development.
type riskLedger interface {
	RecordRiskSnapshot(ctx context.Context, snapshot models.RiskSnapshot) (*database.RiskLedgerEntry, error)
	RecordThreatEvent(ctx context.Context, assessment models.ThreatAssessment) (*database.ThreatEventEntry, error)
}

// threatNotifier pushes alerts for detected threats and risk escalations.
type threatNotifier interface {
	NotifyThreat(ctx context.Context, assessment models.ThreatAssessment) error
	NotifyRiskEscalation(ctx context.Context, snapshot models.RiskSnapshot) error
}

// Watcher tracks the polling state for one monitored asset pair.
type Watcher struct {
	Symbol     string        `json:"symbol"`
	Interval   time.Duration `json:"interval"`
	LastUpdate time.Time     `json:"last_update"`
	IsRunning  bool          `json:"is_running"`
	ErrorCount int           `json:"error_count"`
	MaxErrors  int           `json:"max_errors"`
}

// MonitorService runs the autonomous assessment loop: one watcher per
// asset pair, each fetching a snapshot, scoring risk, classifying
// threats and fanning the results out to the ledger and the notifier.
type MonitorService struct {
	provider  provider.MarketDataProvider
	engine    *risk.Engine
	ledger    riskLedger
	notifier  threatNotifier
	trends    *TrendAnalyzer
	tracer    *telemetry.BusinessTracer
	logger    *logrus.Logger
	config    MonitorConfig
	watchers  map[string]*Watcher
	positions map[string]*models.PositionContext

	lastRisk   map[string]models.RiskSnapshot
	lastThreat map[string]models.ThreatAssessment

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitorService wires the assessment loop together. Ledger and
// notifier may be nil; the loop then only keeps in-memory results.
func NewMonitorService(
	dataProvider provider.MarketDataProvider,
	engine *risk.Engine,
	ledger riskLedger,
	notifier threatNotifier,
	trends *TrendAnalyzer,
	cfg MonitorConfig,
	logger *logrus.Logger,
) *MonitorService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 5
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MonitorService{
		provider:   dataProvider,
		engine:     engine,
		ledger:     ledger,
		notifier:   notifier,
		trends:     trends,
		tracer:     telemetry.NewBusinessTracer(),
		logger:     logger,
		config:     cfg,
		watchers:   make(map[string]*Watcher),
		positions:  make(map[string]*models.PositionContext),
		lastRisk:   make(map[string]models.RiskSnapshot),
		lastThreat: make(map[string]models.ThreatAssessment),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetPosition attaches position context to a symbol. The threat chain
// uses it to decide between STOP_LOSS and ALERT on price crashes.
func (m *MonitorService) SetPosition(symbol string, position *models.PositionContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = position
}

// Start creates one watcher per configured asset pair.
func (m *MonitorService) Start() error {
	if len(m.config.Assets) == 0 {
		return fmt.Errorf("no assets configured for monitoring")
	}

	m.logger.WithField("assets", len(m.config.Assets)).Info("Starting risk monitor service")

	for _, symbol := range m.config.Assets {
		m.createWatcher(symbol)
	}

	return nil
}

// Stop gracefully stops all watchers.
func (m *MonitorService) Stop() {
	m.logger.Info("Stopping risk monitor service")
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Risk monitor service stopped")
}

func (m *MonitorService) createWatcher(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	watcher := &Watcher{
		Symbol:    symbol,
		Interval:  m.config.PollInterval,
		MaxErrors: m.config.MaxErrors,
		IsRunning: true,
	}
	m.watchers[symbol] = watcher

	m.wg.Add(1)
	go m.runWatcher(watcher)
}

func (m *MonitorService) runWatcher(watcher *Watcher) {
	defer m.wg.Done()

	ticker := time.NewTicker(watcher.Interval)
	defer ticker.Stop()

	m.logger.WithField("symbol", watcher.Symbol).Info("Watcher started")

	// Assess immediately instead of waiting out the first interval
	m.tick(watcher)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.WithField("symbol", watcher.Symbol).Info("Watcher stopping")
			return
		case <-ticker.C:
			if !m.tick(watcher) {
				return
			}
		}
	}
}

// tick runs one assessment cycle and updates the watcher's error state.
// Returns false when the watcher has exceeded its error budget.
func (m *MonitorService) tick(watcher *Watcher) bool {
	if err := m.assessSymbol(m.ctx, watcher.Symbol); err != nil {
		m.mu.Lock()
		watcher.ErrorCount++
		count := watcher.ErrorCount
		m.mu.Unlock()

		m.logger.WithError(err).WithFields(logrus.Fields{
			"symbol":      watcher.Symbol,
			"error_count": count,
		}).Error("Assessment cycle failed")

		if count >= watcher.MaxErrors {
			m.logger.WithField("symbol", watcher.Symbol).Error("Watcher exceeded max errors, stopping")
			m.mu.Lock()
			watcher.IsRunning = false
			m.mu.Unlock()
			return false
		}
		return true
	}

	m.mu.Lock()
	watcher.ErrorCount = 0
	watcher.LastUpdate = time.Now()
	m.mu.Unlock()
	return true
}

// assessSymbol runs the full pipeline for one symbol: fetch, validate,
// score, classify, persist, notify.
func (m *MonitorService) assessSymbol(ctx context.Context, symbol string) error {
	fetchCtx, fetchSpan := m.tracer.TraceMarketFetch(ctx, symbol, m.provider.Name())
	snapshot, err := m.provider.FetchSnapshot(fetchCtx, symbol)
	if err != nil {
		m.tracer.RecordError(fetchSpan, err)
		fetchSpan.End()
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	fetchSpan.End()

	if err := snapshot.Validate(); err != nil {
		// Malformed provider data is rejected at the boundary, not scored
		if utils.IsValidationError(err) {
			return fmt.Errorf("invalid snapshot for %s: %w", symbol, err)
		}
		return err
	}

	if m.trends != nil {
		m.trends.Record(symbol, snapshot.Price)
	}

	position := m.positionFor(symbol)

	scoreCtx, scoreSpan := m.tracer.TraceRiskAssessment(ctx, symbol)
	riskSnapshot := m.engine.ScoreRisk(snapshot, position)
	m.tracer.RecordAssessment(scoreSpan, riskSnapshot.OverallRisk, riskSnapshot.RiskLevel.String(), riskSnapshot.Confidence)
	scoreSpan.End()

	_, threatSpan := m.tracer.TraceThreatScan(scoreCtx, symbol)
	threat := m.engine.DetectThreats(snapshot, position)
	if threat.ThreatDetected {
		m.tracer.RecordThreat(threatSpan, threat.ThreatType.String(), threat.Severity.String(),
			threat.SuggestedAction.String(), threat.EstimatedImpact)
	}
	threatSpan.End()

	m.mu.Lock()
	m.lastRisk[symbol] = riskSnapshot
	m.lastThreat[symbol] = threat
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"symbol":       symbol,
		"overall_risk": riskSnapshot.OverallRisk,
		"risk_level":   riskSnapshot.RiskLevel.String(),
		"confidence":   riskSnapshot.Confidence,
	}).Info("Assessment completed")

	if err := m.persist(ctx, riskSnapshot, threat); err != nil {
		return err
	}

	m.notify(ctx, riskSnapshot, threat)
	return nil
}

func (m *MonitorService) positionFor(symbol string) *models.PositionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[symbol]
}

func (m *MonitorService) persist(ctx context.Context, riskSnapshot models.RiskSnapshot, threat models.ThreatAssessment) error {
	if m.ledger == nil {
		return nil
	}

	writeCtx, span := m.tracer.TraceLedgerWrite(ctx, "risk_ledger")
	_, err := m.ledger.RecordRiskSnapshot(writeCtx, riskSnapshot)
	if err != nil {
		m.tracer.RecordError(span, err)
		span.End()
		return fmt.Errorf("record risk snapshot: %w", err)
	}
	span.End()

	if !threat.ThreatDetected {
		return nil
	}

	writeCtx, span = m.tracer.TraceLedgerWrite(ctx, "threat_events")
	_, err = m.ledger.RecordThreatEvent(writeCtx, threat)
	if err != nil {
		m.tracer.RecordError(span, err)
		span.End()
		return fmt.Errorf("record threat event: %w", err)
	}
	span.End()

	return nil
}

func (m *MonitorService) notify(ctx context.Context, riskSnapshot models.RiskSnapshot, threat models.ThreatAssessment) {
	if m.notifier == nil {
		return
	}

	// Alert failures are logged, not propagated; the assessment itself
	// succeeded and is already in the ledger.
	if threat.ThreatDetected {
		if err := m.notifier.NotifyThreat(ctx, threat); err != nil {
			m.logger.WithError(err).WithField("symbol", threat.Symbol).Warn("Failed to send threat alert")
		}
	}
	if err := m.notifier.NotifyRiskEscalation(ctx, riskSnapshot); err != nil {
		m.logger.WithError(err).WithField("symbol", riskSnapshot.Symbol).Warn("Failed to send risk escalation alert")
	}
}

// LatestRisk returns the most recent risk snapshot for a symbol.
func (m *MonitorService) LatestRisk(symbol string) (models.RiskSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.lastRisk[symbol]
	return snapshot, ok
}

// LatestThreat returns the most recent threat assessment for a symbol.
func (m *MonitorService) LatestThreat(symbol string) (models.ThreatAssessment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	threat, ok := m.lastThreat[symbol]
	return threat, ok
}

// WatcherStatus returns a copy of the current watcher states keyed by symbol.
func (m *MonitorService) WatcherStatus() map[string]Watcher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]Watcher, len(m.watchers))
	for symbol, watcher := range m.watchers {
		status[symbol] = *watcher
	}
	return status
}

// IsHealthy reports whether every watcher is still running.
func (m *MonitorService) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.watchers) == 0 {
		return false
	}
	for _, watcher := range m.watchers {
		if !watcher.IsRunning {
			return false
		}
	}
	return true
}
