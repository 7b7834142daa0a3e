package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// Options configures New. Zero values fall back to production behaviour.
type Options struct {
	Settings SettingsSnapshot
	Logger   *zap.Logger
	Metrics  *utils.LedgerMetrics
	// Now is the wall clock used for raffle windows and timestamps.
	Now func() time.Time
	// Pick returns a uniform index in [0, n) for raffle draws.
	Pick func(n int) (int, error)
	// NewCode returns a candidate referral code.
	NewCode func() (string, error)
}

// Core bundles the ledger engines over one serialized store.
type Core struct {
	Store    *Store
	Settings *Settings
	Ledger   *Ledger
	Accounts *Accounts
	Rewards  *Rewards
	Raffles  *Raffles
	Shop     *Shop
	Admins   *Admins
}

// New wires the engines. Call Settings.Load before serving traffic.
func New(db *gorm.DB, opts Options) *Core {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}
	now := func() time.Time { return clock().UTC() }
	pick := opts.Pick
	if pick == nil {
		pick = utils.RandomIndex
	}
	newCode := opts.NewCode
	if newCode == nil {
		newCode = func() (string, error) { return utils.GenerateCode(8) }
	}
	defaults := opts.Settings
	if defaults == (SettingsSnapshot{}) {
		defaults = DefaultSettings()
	}

	store := NewStore(db, log.Named("store"))
	settings := newSettings(store, defaults, log.Named("settings"), now)
	ledger := &Ledger{store: store, log: log.Named("ledger"), metrics: opts.Metrics, now: now}

	return &Core{
		Store:    store,
		Settings: settings,
		Ledger:   ledger,
		Accounts: &Accounts{store: store, settings: settings, ledger: ledger, log: log.Named("accounts"), now: now},
		Rewards: &Rewards{
			store:    store,
			settings: settings,
			ledger:   ledger,
			log:      log.Named("rewards"),
			metrics:  opts.Metrics,
			newCode:  newCode,
		},
		Raffles: &Raffles{
			store:    store,
			settings: settings,
			ledger:   ledger,
			log:      log.Named("raffles"),
			metrics:  opts.Metrics,
			now:      now,
			pick:     pick,
		},
		Shop:   &Shop{store: store, ledger: ledger, log: log.Named("shop"), metrics: opts.Metrics, now: now},
		Admins: &Admins{store: store, log: log.Named("admins"), now: now},
	}
}

// Init loads persisted settings.
func (c *Core) Init(ctx context.Context) error {
	return c.Settings.Load(ctx)
}
