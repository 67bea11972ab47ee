package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/git-forum/backend/internal/metrics"
	"github.com/emilythestrangee/git-forum/backend/internal/trending"
)

const maxSMSBody = 320

var (
	_ trending.Alerter = (*LogAlerter)(nil)
	_ trending.Alerter = (*SMSAlerter)(nil)
)

// LogAlerter reports failures as error logs only.
type LogAlerter struct {
	logger *slog.Logger
}

func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With("component", "alerting")}
}

func (a *LogAlerter) Alert(ctx context.Context, subject string, err error) {
	a.logger.ErrorContext(ctx, "operator alert", "subject", subject, "error", err)
	metrics.AlertsSent.WithLabelValues("log", "ok").Inc()
}

// MessageSender is the slice of the Twilio REST API used for alerts.
type MessageSender interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMSAlerter texts the on-call phone through Twilio and always logs as well.
type SMSAlerter struct {
	log    *LogAlerter
	sender MessageSender
	from   string
	to     string
}

func NewSMSAlerter(sender MessageSender, from, to string, logger *slog.Logger) *SMSAlerter {
	return &SMSAlerter{
		log:    NewLogAlerter(logger),
		sender: sender,
		from:   from,
		to:     to,
	}
}

// NewTwilioAlerter builds an SMSAlerter backed by the Twilio REST client.
func NewTwilioAlerter(accountSID, authToken, from, to string, logger *slog.Logger) *SMSAlerter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSMSAlerter(client.Api, from, to, logger)
}

func (a *SMSAlerter) Alert(ctx context.Context, subject string, err error) {
	a.log.Alert(ctx, subject, err)

	params := &openapi.CreateMessageParams{}
	params.SetTo(a.to)
	params.SetFrom(a.from)
	params.SetBody(smsBody(subject, err))

	if _, sendErr := a.sender.CreateMessage(params); sendErr != nil {
		metrics.AlertsSent.WithLabelValues("sms", "error").Inc()
		a.log.logger.WarnContext(ctx, "failed to send SMS alert", "error", sendErr)
		return
	}
	metrics.AlertsSent.WithLabelValues("sms", "ok").Inc()
}

func smsBody(subject string, err error) string {
	body := "[git-forum] " + subject
	if err != nil {
		body = fmt.Sprintf("%s: %v", body, err)
	}
	if len(body) > maxSMSBody {
		cut := maxSMSBody - 3
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return body
}
