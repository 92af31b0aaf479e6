package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// telegramSender is the part of the Telegram bot API the notifier uses.
// Kept narrow so tests can substitute a recorder.
type telegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// NotificationService pushes threat alerts to a Telegram chat. Alerts
// below the configured severity floor are dropped silently; the ledger
// still records them.
type NotificationService struct {
	sender      telegramSender
	chatID      int64
	minSeverity models.RiskLevel
	logger      *logrus.Logger
	titleCaser  cases.Caser
}

// NewNotificationService creates a notifier backed by the Telegram bot API.
// An empty token yields a disabled notifier that drops all alerts.
func NewNotificationService(botToken string, chatID string, minSeverity models.RiskLevel, logger *logrus.Logger) (*NotificationService, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ns := &NotificationService{
		minSeverity: minSeverity,
		logger:      logger,
		titleCaser:  cases.Title(language.English),
	}

	if botToken == "" {
		logger.Warn("Telegram bot token not configured, alerts disabled")
		return ns, nil
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat ID %q: %w", chatID, err)
	}

	telegramBot, err := bot.New(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	ns.sender = telegramBot
	ns.chatID = parsedChatID
	return ns, nil
}

// Enabled reports whether alerts will actually be sent.
func (ns *NotificationService) Enabled() bool {
	return ns.sender != nil
}

// NotifyThreat sends a formatted alert for a detected threat. Returns nil
// without sending when the notifier is disabled, no threat was detected,
// or the severity is below the configured floor.
func (ns *NotificationService) NotifyThreat(ctx context.Context, assessment models.ThreatAssessment) error {
	if !assessment.ThreatDetected {
		return nil
	}
	if assessment.Severity < ns.minSeverity {
		ns.logger.WithFields(logrus.Fields{
			"symbol":   assessment.Symbol,
			"severity": assessment.Severity.String(),
		}).Debug("Threat below alert severity floor, skipping notification")
		return nil
	}
	if ns.sender == nil {
		return nil
	}

	message := ns.formatThreatMessage(assessment)

	_, err := ns.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.chatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	ns.logger.WithFields(logrus.Fields{
		"symbol":      assessment.Symbol,
		"threat_type": assessment.ThreatType.String(),
		"severity":    assessment.Severity.String(),
	}).Info("Sent threat alert")

	return nil
}

// NotifyRiskEscalation sends an alert when a symbol's overall risk level
// crosses into HIGH or CRITICAL territory.
func (ns *NotificationService) NotifyRiskEscalation(ctx context.Context, snapshot models.RiskSnapshot) error {
	if snapshot.RiskLevel < models.RiskLevelHigh || snapshot.RiskLevel < ns.minSeverity {
		return nil
	}
	if ns.sender == nil {
		return nil
	}

	message := fmt.Sprintf(
		"⚠️ *Risk Escalation: %s*\n\nOverall risk: *%d/100* (%s)\nConfidence: %d%%\n\n%s",
		escapeMarkdown(snapshot.Symbol),
		snapshot.OverallRisk,
		snapshot.RiskLevel.String(),
		snapshot.Confidence,
		escapeMarkdown(snapshot.Reasoning),
	)

	_, err := ns.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.chatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}

// humanizeName turns an enum name like RUG_PULL into "Rug Pull".
func (ns *NotificationService) humanizeName(name string) string {
	return ns.titleCaser.String(strings.ToLower(strings.ReplaceAll(name, "_", " ")))
}

func (ns *NotificationService) formatThreatMessage(assessment models.ThreatAssessment) string {
	var sb strings.Builder

	icon := "🚨"
	if assessment.Severity < models.RiskLevelHigh {
		icon = "⚠️"
	}

	sb.WriteString(fmt.Sprintf("%s *%s Detected: %s*\n\n",
		icon,
		ns.humanizeName(assessment.ThreatType.String()),
		escapeMarkdown(assessment.Symbol),
	))
	sb.WriteString(fmt.Sprintf("Severity: *%s*\n", assessment.Severity.String()))
	sb.WriteString(fmt.Sprintf("Confidence: %d%%\n", assessment.Confidence))
	sb.WriteString(fmt.Sprintf("Estimated impact: %.1f%%\n", assessment.EstimatedImpact))
	sb.WriteString(fmt.Sprintf("Suggested action: *%s*\n\n", ns.humanizeName(assessment.SuggestedAction.String())))
	sb.WriteString(escapeMarkdown(assessment.Reasoning))

	return sb.String()
}

// escapeMarkdown escapes the characters Telegram's legacy Markdown mode
// treats as formatting.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(s)
}
