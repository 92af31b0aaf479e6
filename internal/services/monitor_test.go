package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/defi-sentinel/internal/database"
	"github.com/wardenlabs/defi-sentinel/internal/models"
	"github.com/wardenlabs/defi-sentinel/internal/risk"
)

// stubProvider returns a fixed snapshot or error
type stubProvider struct {
	mu       sync.Mutex
	snapshot models.MarketSnapshot
	err      error
	fetches  int
}

func (s *stubProvider) FetchSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return models.MarketSnapshot{}, s.err
	}
	snapshot := s.snapshot
	snapshot.Symbol = symbol
	return snapshot, nil
}

func (s *stubProvider) Name() string { return "stub" }

// fakeLedger records writes in memory
type fakeLedger struct {
	mu          sync.Mutex
	risks       []models.RiskSnapshot
	threats     []models.ThreatAssessment
	riskError   error
	threatError error
}

func (f *fakeLedger) RecordRiskSnapshot(ctx context.Context, snapshot models.RiskSnapshot) (*database.RiskLedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.riskError != nil {
		return nil, f.riskError
	}
	f.risks = append(f.risks, snapshot)
	return &database.RiskLedgerEntry{Symbol: snapshot.Symbol}, nil
}

func (f *fakeLedger) RecordThreatEvent(ctx context.Context, assessment models.ThreatAssessment) (*database.ThreatEventEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threatError != nil {
		return nil, f.threatError
	}
	f.threats = append(f.threats, assessment)
	return &database.ThreatEventEntry{Symbol: assessment.Symbol}, nil
}

// fakeNotifier records alerts
type fakeNotifier struct {
	mu          sync.Mutex
	threats     []models.ThreatAssessment
	escalations []models.RiskSnapshot
	err         error
}

func (f *fakeNotifier) NotifyThreat(ctx context.Context, assessment models.ThreatAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.threats = append(f.threats, assessment)
	return nil
}

func (f *fakeNotifier) NotifyRiskEscalation(ctx context.Context, snapshot models.RiskSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.escalations = append(f.escalations, snapshot)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func calmSnapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol:           "BNB/USDT",
		Price:            585.42,
		PriceChange24h:   1.2,
		Volume24h:        600000000,
		VolumeChange:     15,
		Liquidity:        2100000000,
		LiquidityChange:  2.5,
		Holders:          1520000,
		TopHolderPercent: 8.3,
	}
}

func rugSnapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol:           "SCAM/USDT",
		Price:            0.002,
		PriceChange24h:   -68,
		Volume24h:        9000000,
		VolumeChange:     1500,
		Liquidity:        120000,
		LiquidityChange:  -85,
		Holders:          900,
		TopHolderPercent: 80,
	}
}

func newTestMonitor(p *stubProvider, ledger *fakeLedger, notifier *fakeNotifier, assets ...string) *MonitorService {
	logger := quietLogger()
	engine := risk.NewEngine(risk.Config{}, logger)

	var l riskLedger
	if ledger != nil {
		l = ledger
	}
	var n threatNotifier
	if notifier != nil {
		n = notifier
	}

	return NewMonitorService(p, engine, l, n, NewTrendAnalyzer(logger), MonitorConfig{
		PollInterval: 10 * time.Millisecond,
		MaxErrors:    3,
		Assets:       assets,
	}, logger)
}

func TestMonitorService_AssessSymbol_Calm(t *testing.T) {
	p := &stubProvider{snapshot: calmSnapshot()}
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	m := newTestMonitor(p, ledger, notifier, "BNB/USDT")

	err := m.assessSymbol(context.Background(), "BNB/USDT")
	require.NoError(t, err)

	riskSnapshot, ok := m.LatestRisk("BNB/USDT")
	require.True(t, ok)
	assert.Equal(t, models.RiskLevelNone, riskSnapshot.RiskLevel)

	threat, ok := m.LatestThreat("BNB/USDT")
	require.True(t, ok)
	assert.False(t, threat.ThreatDetected)

	// Risk snapshot persisted, no threat event, no threat alert.
	// Severity gating for escalations lives in the notifier, so it is
	// handed the snapshot on every assessment.
	assert.Len(t, ledger.risks, 1)
	assert.Empty(t, ledger.threats)
	assert.Empty(t, notifier.threats)
	require.Len(t, notifier.escalations, 1)
	assert.Equal(t, models.RiskLevelNone, notifier.escalations[0].RiskLevel)

	// Price was recorded for trend analysis
	assert.Equal(t, 1, m.trends.Samples("BNB/USDT"))
}

func TestMonitorService_AssessSymbol_RugPull(t *testing.T) {
	p := &stubProvider{snapshot: rugSnapshot()}
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	m := newTestMonitor(p, ledger, notifier, "SCAM/USDT")

	err := m.assessSymbol(context.Background(), "SCAM/USDT")
	require.NoError(t, err)

	threat, ok := m.LatestThreat("SCAM/USDT")
	require.True(t, ok)
	assert.True(t, threat.ThreatDetected)
	assert.Equal(t, models.ThreatRugPull, threat.ThreatType)

	require.Len(t, ledger.threats, 1)
	require.Len(t, notifier.threats, 1)
	assert.Equal(t, models.ThreatRugPull, notifier.threats[0].ThreatType)
	require.Len(t, notifier.escalations, 1)
	assert.Equal(t, models.RiskLevelCritical, notifier.escalations[0].RiskLevel)
}

func TestMonitorService_AssessSymbol_InvalidSnapshot(t *testing.T) {
	snapshot := calmSnapshot()
	snapshot.Price = -1
	p := &stubProvider{snapshot: snapshot}
	m := newTestMonitor(p, nil, nil, "BNB/USDT")

	err := m.assessSymbol(context.Background(), "BNB/USDT")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid snapshot")

	_, ok := m.LatestRisk("BNB/USDT")
	assert.False(t, ok)
}

func TestMonitorService_AssessSymbol_ProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("rpc timeout")}
	m := newTestMonitor(p, nil, nil, "BNB/USDT")

	err := m.assessSymbol(context.Background(), "BNB/USDT")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fetch snapshot")
}

func TestMonitorService_AssessSymbol_LedgerErrorPropagates(t *testing.T) {
	p := &stubProvider{snapshot: calmSnapshot()}
	ledger := &fakeLedger{riskError: errors.New("connection reset")}
	m := newTestMonitor(p, ledger, nil, "BNB/USDT")

	err := m.assessSymbol(context.Background(), "BNB/USDT")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "record risk snapshot")
}

func TestMonitorService_AssessSymbol_NotifierErrorSwallowed(t *testing.T) {
	p := &stubProvider{snapshot: rugSnapshot()}
	notifier := &fakeNotifier{err: errors.New("telegram unreachable")}
	m := newTestMonitor(p, nil, notifier, "SCAM/USDT")

	// The assessment itself must still succeed
	assert.NoError(t, m.assessSymbol(context.Background(), "SCAM/USDT"))
}

func TestMonitorService_PositionContextFlowsThrough(t *testing.T) {
	snapshot := calmSnapshot()
	snapshot.PriceChange24h = -25
	p := &stubProvider{snapshot: snapshot}
	m := newTestMonitor(p, nil, nil, "BNB/USDT")

	m.SetPosition("BNB/USDT", &models.PositionContext{
		RiskProfile: models.RiskProfile{AllowAutoWithdraw: true},
	})

	require.NoError(t, m.assessSymbol(context.Background(), "BNB/USDT"))

	threat, ok := m.LatestThreat("BNB/USDT")
	require.True(t, ok)
	assert.Equal(t, models.ThreatPriceCrash, threat.ThreatType)
	assert.Equal(t, models.ActionStopLoss, threat.SuggestedAction)
}

func TestMonitorService_TickErrorBudget(t *testing.T) {
	p := &stubProvider{err: errors.New("rpc timeout")}
	m := newTestMonitor(p, nil, nil, "BNB/USDT")

	watcher := &Watcher{Symbol: "BNB/USDT", MaxErrors: 3}

	assert.True(t, m.tick(watcher))
	assert.True(t, m.tick(watcher))
	assert.False(t, m.tick(watcher), "third failure must exhaust the budget")
	assert.False(t, watcher.IsRunning)
	assert.Equal(t, 3, watcher.ErrorCount)
}

func TestMonitorService_TickResetsErrorCount(t *testing.T) {
	p := &stubProvider{err: errors.New("rpc timeout")}
	m := newTestMonitor(p, nil, nil, "BNB/USDT")

	watcher := &Watcher{Symbol: "BNB/USDT", MaxErrors: 3}
	assert.True(t, m.tick(watcher))
	assert.Equal(t, 1, watcher.ErrorCount)

	p.mu.Lock()
	p.err = nil
	p.snapshot = calmSnapshot()
	p.mu.Unlock()

	assert.True(t, m.tick(watcher))
	assert.Equal(t, 0, watcher.ErrorCount)
	assert.False(t, watcher.LastUpdate.IsZero())
}

func TestMonitorService_StartRequiresAssets(t *testing.T) {
	p := &stubProvider{snapshot: calmSnapshot()}
	m := newTestMonitor(p, nil, nil)

	assert.Error(t, m.Start())
	assert.False(t, m.IsHealthy())
}

func TestMonitorService_StartStop(t *testing.T) {
	p := &stubProvider{snapshot: calmSnapshot()}
	ledger := &fakeLedger{}
	m := newTestMonitor(p, ledger, nil, "BNB/USDT", "CAKE/USDT")

	require.NoError(t, m.Start())

	status := m.WatcherStatus()
	assert.Len(t, status, 2)
	assert.True(t, m.IsHealthy())

	// Wait for at least one assessment per symbol
	require.Eventually(t, func() bool {
		_, a := m.LatestRisk("BNB/USDT")
		_, b := m.LatestRisk("CAKE/USDT")
		return a && b
	}, 2*time.Second, 5*time.Millisecond)

	m.Stop()

	ledger.mu.Lock()
	persisted := len(ledger.risks)
	ledger.mu.Unlock()
	assert.GreaterOrEqual(t, persisted, 2)
}
