package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"ticketpin-workers/internal/models"
)

// EventPublisher is satisfied by aws.SNSClient.
type EventPublisher interface {
	PublishJSON(ctx context.Context, topicARN, subject string, payload interface{}, attrs map[string]string) (string, error)
}

// Mailer is satisfied by aws.SESClient.
type Mailer interface {
	SendText(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

// SNSNotifier publishes every fulfillment, successful or not, to a topic.
type SNSNotifier struct {
	publisher EventPublisher
	topicARN  string
}

func NewSNSNotifier(publisher EventPublisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{publisher: publisher, topicARN: topicARN}
}

func (n *SNSNotifier) Name() string { return "sns" }

func (n *SNSNotifier) Record(ctx context.Context, f *models.Fulfillment) error {
	subject := "ticket fulfillment " + f.Status
	attrs := map[string]string{
		"status":    f.Status,
		"requestId": f.RequestID,
	}
	if f.ErrorKind != "" {
		attrs["errorKind"] = f.ErrorKind
	}
	_, err := n.publisher.PublishJSON(ctx, n.topicARN, subject, f, attrs)
	return err
}

// SESAlerter emails operators when a run fails on configuration, the one
// failure class that needs a human to fix credentials.
type SESAlerter struct {
	mailer    Mailer
	from      string
	to        []string
	alertKind string
}

func NewSESAlerter(mailer Mailer, from string, to []string, alertKind string) *SESAlerter {
	return &SESAlerter{mailer: mailer, from: from, to: to, alertKind: alertKind}
}

func (a *SESAlerter) Name() string { return "ses" }

func (a *SESAlerter) Record(ctx context.Context, f *models.Fulfillment) error {
	if f.Succeeded() || f.ErrorKind != a.alertKind {
		return nil
	}

	subject := fmt.Sprintf("[ticketpin] %s for request %s", f.ErrorKind, f.RequestID)

	var body strings.Builder
	fmt.Fprintf(&body, "A ticket fulfillment run failed and needs operator attention.\n\n")
	fmt.Fprintf(&body, "Run:     %s\n", f.RunID)
	fmt.Fprintf(&body, "Request: %s\n", f.RequestID)
	fmt.Fprintf(&body, "Stage:   %s\n", f.ErrorStage)
	fmt.Fprintf(&body, "Error:   %s\n", f.ErrorMessage)
	fmt.Fprintf(&body, "At:      %s\n", f.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))

	_, err := a.mailer.SendText(ctx, a.from, a.to, subject, body.String())
	return err
}
