package trending

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
)

type deps struct {
	notifier ChangeNotifier
	alerter  Alerter
	clock    clockwork.Clock
	logger   *slog.Logger
}

// Option configures a Scheduler or a Reconciler.
type Option func(*deps)

func WithNotifier(n ChangeNotifier) Option {
	return func(d *deps) { d.notifier = n }
}

func WithAlerter(a Alerter) Option {
	return func(d *deps) { d.alerter = a }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(d *deps) { d.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *deps) { d.logger = l }
}

func newDeps(component string, opts []Option) deps {
	d := deps{
		notifier: nopNotifier{},
		alerter:  nopAlerter{},
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	d.logger = d.logger.With("component", component)
	return d
}
