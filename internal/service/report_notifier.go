package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
)

// ReportNotifier сообщает администратору о новой жалобе на вопрос.
type ReportNotifier interface {
	NotifyReport(ctx context.Context, question entity.Question, report entity.QuestionReport) error
}

// NoopReportNotifier используется, когда email не настроен.
type NoopReportNotifier struct {
	logger *zap.Logger
}

func NewNoopReportNotifier(logger *zap.Logger) *NoopReportNotifier {
	return &NoopReportNotifier{logger: logging.OrNop(logger)}
}

func (n *NoopReportNotifier) NotifyReport(ctx context.Context, question entity.Question, report entity.QuestionReport) error {
	n.logger.Debug("noop report notification",
		zap.String("question_id", question.ID),
		zap.String("report_id", report.ReportID))
	return nil
}

// resendSender - часть клиента Resend, нужная для отправки
type resendSender interface {
	SendWithOptions(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) (*resend.SendEmailResponse, error)
}

// ResendReportNotifier отправляет письмо через Resend REST API.
type ResendReportNotifier struct {
	from   string
	to     string
	sender resendSender
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewResendReportNotifier(apiKey, from, to string) (*ResendReportNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("email from and admin address are required")
	}
	return &ResendReportNotifier{
		from:   from,
		to:     to,
		sender: resend.NewClient(apiKey).Emails,
		sleep:  sleepContext,
	}, nil
}

func (n *ResendReportNotifier) NotifyReport(ctx context.Context, question entity.Question, report entity.QuestionReport) error {
	reason := report.Reason
	if reason == "" {
		reason = "(no reason given)"
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("Question %s reported (thumbs %s)", question.ID, report.Thumbs),
		Text: fmt.Sprintf("Question: %s\nCategory: %s\nThumbs: %s\nReason: %s\nReport: %s",
			question.QuestionText, question.Category, report.Thumbs, reason, report.ReportID),
		Html: fmt.Sprintf("<p><strong>%s</strong></p><p>Category: %s</p><p>Thumbs: %s</p><p>Reason: %s</p><p>Report: %s</p>",
			html.EscapeString(question.QuestionText), html.EscapeString(question.Category),
			report.Thumbs, html.EscapeString(reason), report.ReportID),
	}
	// Жалоба уникальна, повторная отправка того же письма не нужна
	options := &resend.SendEmailOptions{IdempotencyKey: "question-report/" + report.ReportID}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := n.sender.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			if err := n.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
