package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter turns a stream of healthy/unhealthy observations per key into
// alerts. A DOWN alert goes out when a key turns unhealthy and the last alert
// for it is older than the cooldown; a recovery alert, if enabled, goes out
// whenever an unhealthy key turns healthy.
type Alerter struct {
	notifier Notifier
	cfg      AlerterConfig
	log      *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	state map[string]alertRecord
}

type alertRecord struct {
	healthy  bool
	lastSent time.Time
}

func NewAlerter(n Notifier, cfg AlerterConfig, log *zap.Logger) *Alerter {
	if n == nil {
		n = Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{
		notifier: n,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		state:    map[string]alertRecord{},
	}
}

// Observe records the state of key and sends an alert if one is due. It
// reports whether an alert was sent. Delivery is best-effort.
func (a *Alerter) Observe(ctx context.Context, key string, healthy bool, reason string) bool {
	now := a.now()

	a.mu.Lock()
	rec, seen := a.state[key]
	// An unseen key counts as healthy so the first success is silent.
	changed := (!seen && !healthy) || (seen && rec.healthy != healthy)
	cooled := rec.lastSent.IsZero() || now.Sub(rec.lastSent) >= a.cfg.Cooldown

	down := changed && !healthy && cooled
	recovered := changed && healthy && a.cfg.AlertOnRecovery
	rec.healthy = healthy
	if down || recovered {
		rec.lastSent = now
	}
	a.state[key] = rec
	a.mu.Unlock()

	if !down && !recovered {
		return false
	}

	title := "🔴 " + key + " DOWN"
	if healthy {
		title = "🟢 " + key + " RECOVERED"
	}
	text := "Reason: " + reason + "\nAt: " + now.UTC().Format(time.RFC3339)
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.log.Warn("alert_send_failed", zap.String("key", key), zap.Error(err))
	}
	return true
}
