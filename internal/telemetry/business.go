package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer provides utilities for tracing domain operations.
// It gives the monitor loop and the scoring pipeline named spans with
// consistent attributes, so a single assessment cycle can be followed
// end to end in the trace backend.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a new instance of BusinessTracer.
//
// Returns:
//   - A pointer to an initialized BusinessTracer.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{
		tracer: Tracer("defi-sentinel/business"),
	}
}

// TraceMarketFetch starts a span covering the retrieval of a market snapshot.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - symbol: The asset pair being fetched.
//   - source: The provider supplying the data.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceMarketFetch(ctx context.Context, symbol string, source string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "market_fetch")
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("source", source),
	)
	return ctx, span
}

// TraceRiskAssessment starts a span covering a full risk scoring pass.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - symbol: The asset pair being scored.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceRiskAssessment(ctx context.Context, symbol string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "risk_assessment")
	span.SetAttributes(attribute.String("symbol", symbol))
	return ctx, span
}

// RecordAssessment adds the outcome of a scoring pass to an existing span.
//
// Parameters:
//   - span: The span to update.
//   - overallRisk: The composite score.
//   - riskLevel: The mapped risk level name.
//   - confidence: The assessment confidence.
func (bt *BusinessTracer) RecordAssessment(span trace.Span, overallRisk int, riskLevel string, confidence int) {
	span.SetAttributes(
		attribute.Int("overall_risk", overallRisk),
		attribute.String("risk_level", riskLevel),
		attribute.Int("confidence", confidence),
	)
}

// TraceThreatScan starts a span covering the threat classification chain.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - symbol: The asset pair being classified.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceThreatScan(ctx context.Context, symbol string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "threat_scan")
	span.SetAttributes(attribute.String("symbol", symbol))
	return ctx, span
}

// RecordThreat adds a detected threat to an existing span and flags it
// as an error span when the severity warrants attention.
//
// Parameters:
//   - span: The span to update.
//   - threatType: The classified threat name.
//   - severity: The severity level name.
//   - action: The suggested response name.
//   - impact: The estimated position impact in percent.
func (bt *BusinessTracer) RecordThreat(span trace.Span, threatType string, severity string, action string, impact float64) {
	span.SetAttributes(
		attribute.String("threat_type", threatType),
		attribute.String("severity", severity),
		attribute.String("suggested_action", action),
		attribute.Float64("estimated_impact", impact),
	)
	if severity == "HIGH" || severity == "CRITICAL" {
		span.SetStatus(codes.Error, "threat detected")
	}
}

// TraceLedgerWrite starts a span covering a ledger persistence call.
//
// Parameters:
//   - ctx: The context to attach the span to.
//   - table: The target table name.
//
// Returns:
//   - A context containing the new span.
//   - The created span.
func (bt *BusinessTracer) TraceLedgerWrite(ctx context.Context, table string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "ledger_write")
	span.SetAttributes(attribute.String("table", table))
	return ctx, span
}

// RecordError marks a span failed with the given error.
//
// Parameters:
//   - span: The span to update.
//   - err: The failure to record.
func (bt *BusinessTracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
