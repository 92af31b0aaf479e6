package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultSMAPeriod  = 20
	defaultEMAPeriod  = 12
	defaultRSIPeriod  = 14
	defaultMaxSamples = 500

	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// TrendAnalysis is the indicator summary for one symbol's rolling
// price window.
type TrendAnalysis struct {
	Symbol     string          `json:"symbol"`
	Direction  string          `json:"direction"` // "UPTREND", "DOWNTREND" or "SIDEWAYS"
	RSI        decimal.Decimal `json:"rsi"`
	SMA        decimal.Decimal `json:"sma"`
	EMA        decimal.Decimal `json:"ema"`
	Overbought bool            `json:"overbought"`
	Oversold   bool            `json:"oversold"`
	Samples    int             `json:"samples"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TrendAnalyzer keeps a rolling window of observed prices per symbol and
// derives momentum context from it. The monitor records a price every
// poll; API consumers read the derived trend alongside the risk scores.
type TrendAnalyzer struct {
	mu         sync.RWMutex
	prices     map[string][]float64
	maxSamples int
	smaPeriod  int
	emaPeriod  int
	rsiPeriod  int
	logger     *logrus.Logger
}

// NewTrendAnalyzer creates an analyzer with default indicator periods.
func NewTrendAnalyzer(logger *logrus.Logger) *TrendAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TrendAnalyzer{
		prices:     make(map[string][]float64),
		maxSamples: defaultMaxSamples,
		smaPeriod:  defaultSMAPeriod,
		emaPeriod:  defaultEMAPeriod,
		rsiPeriod:  defaultRSIPeriod,
		logger:     logger,
	}
}

// Record appends an observed price to the symbol's rolling window.
func (ta *TrendAnalyzer) Record(symbol string, price float64) {
	ta.mu.Lock()
	defer ta.mu.Unlock()

	window := append(ta.prices[symbol], price)
	if len(window) > ta.maxSamples {
		window = window[len(window)-ta.maxSamples:]
	}
	ta.prices[symbol] = window
}

// Samples returns the number of recorded prices for a symbol.
func (ta *TrendAnalyzer) Samples(symbol string) int {
	ta.mu.RLock()
	defer ta.mu.RUnlock()
	return len(ta.prices[symbol])
}

// MinSamples returns the smallest window Analyze accepts.
func (ta *TrendAnalyzer) MinSamples() int {
	return ta.rsiPeriod + 1
}

// Analyze computes SMA, EMA and RSI over the symbol's window and maps
// them to a trend direction.
func (ta *TrendAnalyzer) Analyze(symbol string) (*TrendAnalysis, error) {
	ta.mu.RLock()
	window := make([]float64, len(ta.prices[symbol]))
	copy(window, ta.prices[symbol])
	ta.mu.RUnlock()

	if len(window) < ta.MinSamples() {
		return nil, fmt.Errorf("insufficient samples for %s: have %d, need %d", symbol, len(window), ta.MinSamples())
	}

	smaIndicator := trend.NewSmaWithPeriod[float64](min(ta.smaPeriod, len(window)))
	smaValues := helper.ChanToSlice(smaIndicator.Compute(helper.SliceToChan(window)))

	emaIndicator := trend.NewEmaWithPeriod[float64](min(ta.emaPeriod, len(window)))
	emaValues := helper.ChanToSlice(emaIndicator.Compute(helper.SliceToChan(window)))

	rsiIndicator := momentum.NewRsiWithPeriod[float64](ta.rsiPeriod)
	rsiValues := helper.ChanToSlice(rsiIndicator.Compute(helper.SliceToChan(window)))

	if len(smaValues) == 0 || len(emaValues) == 0 || len(rsiValues) == 0 {
		return nil, fmt.Errorf("indicator computation produced no values for %s", symbol)
	}

	lastPrice := window[len(window)-1]
	lastSMA := smaValues[len(smaValues)-1]
	lastEMA := emaValues[len(emaValues)-1]
	lastRSI := rsiValues[len(rsiValues)-1]
	// A flat window has no gains or losses, which leaves RSI undefined.
	// Neutral 50 keeps the decimal conversion safe.
	if math.IsNaN(lastRSI) || math.IsInf(lastRSI, 0) {
		lastRSI = 50
	}

	analysis := &TrendAnalysis{
		Symbol:     symbol,
		Direction:  directionFor(lastPrice, lastSMA, lastEMA),
		RSI:        decimal.NewFromFloat(lastRSI),
		SMA:        decimal.NewFromFloat(lastSMA),
		EMA:        decimal.NewFromFloat(lastEMA),
		Overbought: lastRSI > rsiOverbought,
		Oversold:   lastRSI < rsiOversold,
		Samples:    len(window),
		Timestamp:  time.Now().UTC(),
	}

	ta.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"direction": analysis.Direction,
		"rsi":       fmt.Sprintf("%.2f", lastRSI),
		"samples":   analysis.Samples,
	}).Debug("Trend analysis computed")

	return analysis, nil
}

// directionFor classifies the trend from the price's position relative
// to its moving averages. The EMA reacts faster than the SMA, so price
// above both reads as an uptrend and below both as a downtrend.
func directionFor(price, sma, ema float64) string {
	const band = 0.001 // 0.1% dead zone around the averages

	aboveSMA := price > sma*(1+band)
	belowSMA := price < sma*(1-band)
	aboveEMA := price > ema*(1+band)
	belowEMA := price < ema*(1-band)

	switch {
	case aboveSMA && aboveEMA:
		return "UPTREND"
	case belowSMA && belowEMA:
		return "DOWNTREND"
	default:
		return "SIDEWAYS"
	}
}
