package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPNotifier mails the operator when a video permanently fails, so a
// targeted re-run can be scheduled without tailing logs.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	to     string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, sourceURL, step, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := fmt.Sprintf("Odysseus ingest failed [%s]", sourceURL)
	body := fmt.Sprintf(
		"A video failed during ingest and was marked 'failed' in the catalog.\r\n\r\n"+
			"Source: %s\r\n"+
			"Failing step: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Re-invoking the pipeline will retry this source; processed videos are skipped.\r\n",
		sourceURL, step, errorMsg,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body,
	)

	if err := smtp.SendMail(addr, nil, n.from, []string{n.to}, []byte(msg)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("source_url", sourceURL),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("source_url", sourceURL),
		zap.String("step", step),
	)
	return nil
}
