package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	libnats "github.com/nats-io/nats.go"

	"github.com/emilythestrangee/git-forum/backend/internal/metrics"
	"github.com/emilythestrangee/git-forum/backend/internal/trending"
)

const (
	appName = "git-forum"

	SubjectScoreChanged = "forum.posts.score_changed"
)

var _ trending.ChangeNotifier = (*Publisher)(nil)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials NATS and keeps reconnecting for as long as the process lives.
func Connect(url string, logger *slog.Logger) (*libnats.Conn, error) {
	if url == "" {
		url = libnats.DefaultURL
	}

	nc, err := libnats.Connect(url,
		libnats.Name(appName),
		libnats.MaxReconnects(-1),
		libnats.DisconnectErrHandler(func(_ *libnats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		libnats.ReconnectHandler(func(nc *libnats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Publisher emits a message for every persisted trending score change.
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

func NewPublisher(conn Conn, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:    conn,
		subject: SubjectScoreChanged,
		logger:  logger.With("component", "events.Publisher"),
	}
}

func (p *Publisher) ScoreChanged(ctx context.Context, change trending.ScoreChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal score change: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		metrics.EventsPublished.WithLabelValues(p.subject, "error").Inc()
		p.logger.WarnContext(ctx, "failed to publish score change", "post_id", change.PostID, "error", err)
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	metrics.EventsPublished.WithLabelValues(p.subject, "ok").Inc()
	return nil
}
