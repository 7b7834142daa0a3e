package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/miraclezmoon/TELEBOT-19/models"
)

// Registry keys.
const (
	SettingDailyCoinBase          = "daily_coin_base"
	SettingReferralBonus          = "referral_bonus"
	SettingWelcomeBonus           = "welcome_bonus"
	SettingAutoRaffleDraw         = "auto_raffle_draw"
	SettingSendDailyReminder      = "send_daily_reminder"
	SettingMaintenanceMode        = "maintenance_mode"
	SettingDebugMode              = "debug_mode"
	SettingNotifyNewUser          = "notify_new_user"
	SettingNotifyLargeTransaction = "notify_large_transaction"
	SettingNotifyRaffleEnd        = "notify_raffle_end"
	SettingNotifySystemError      = "notify_system_error"
)

// SettingsSnapshot is an immutable copy of every registry value.
type SettingsSnapshot struct {
	DailyCoinBase          int64 `json:"daily_coin_base"`
	ReferralBonus          int64 `json:"referral_bonus"`
	WelcomeBonus           int64 `json:"welcome_bonus"`
	AutoRaffleDraw         bool  `json:"auto_raffle_draw"`
	SendDailyReminder      bool  `json:"send_daily_reminder"`
	MaintenanceMode        bool  `json:"maintenance_mode"`
	DebugMode              bool  `json:"debug_mode"`
	NotifyNewUser          bool  `json:"notify_new_user"`
	NotifyLargeTransaction bool  `json:"notify_large_transaction"`
	NotifyRaffleEnd        bool  `json:"notify_raffle_end"`
	NotifySystemError      bool  `json:"notify_system_error"`
}

// DefaultSettings returns the hard-coded registry defaults.
func DefaultSettings() SettingsSnapshot {
	return SettingsSnapshot{
		DailyCoinBase:          1,
		ReferralBonus:          1,
		WelcomeBonus:           0,
		SendDailyReminder:      true,
		NotifyNewUser:          true,
		NotifyLargeTransaction: true,
		NotifyRaffleEnd:        true,
		NotifySystemError:      true,
	}
}

func (s *SettingsSnapshot) ints() map[string]*int64 {
	return map[string]*int64{
		SettingDailyCoinBase: &s.DailyCoinBase,
		SettingReferralBonus: &s.ReferralBonus,
		SettingWelcomeBonus:  &s.WelcomeBonus,
	}
}

func (s *SettingsSnapshot) bools() map[string]*bool {
	return map[string]*bool{
		SettingAutoRaffleDraw:         &s.AutoRaffleDraw,
		SettingSendDailyReminder:      &s.SendDailyReminder,
		SettingMaintenanceMode:        &s.MaintenanceMode,
		SettingDebugMode:              &s.DebugMode,
		SettingNotifyNewUser:          &s.NotifyNewUser,
		SettingNotifyLargeTransaction: &s.NotifyLargeTransaction,
		SettingNotifyRaffleEnd:        &s.NotifyRaffleEnd,
		SettingNotifySystemError:      &s.NotifySystemError,
	}
}

// apply parses a stored string value onto the snapshot.
func (s *SettingsSnapshot) apply(key, raw string) error {
	if p, ok := s.ints()[key]; ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("setting %s: bad integer %q", key, raw)
		}
		*p = v
		return nil
	}
	if p, ok := s.bools()[key]; ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("setting %s: bad boolean %q", key, raw)
		}
		*p = v
		return nil
	}
	return ErrUnknownSetting
}

// Keys lists every registry key in a stable order.
func (s SettingsSnapshot) Keys() []string {
	keys := make([]string, 0, 11)
	for k := range s.ints() {
		keys = append(keys, k)
	}
	for k := range s.bools() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings is the typed key/value registry. Persisted rows override the defaults it was built with.
// Engines take a Snapshot before entering a unit of work and never read the registry inside one.
type Settings struct {
	store    *Store
	defaults SettingsSnapshot
	log      *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current SettingsSnapshot
}

func newSettings(store *Store, defaults SettingsSnapshot, log *zap.Logger, now func() time.Time) *Settings {
	return &Settings{store: store, defaults: defaults, current: defaults, log: log, now: now}
}

// Snapshot returns a copy of the current values.
func (s *Settings) Snapshot() SettingsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Load rebuilds the snapshot from the defaults and the persisted overrides.
// Rows with unknown keys or unparsable values are skipped.
func (s *Settings) Load(ctx context.Context) error {
	var rows []models.Setting
	if err := s.store.Read(ctx, func(db *gorm.DB) error {
		return db.Find(&rows).Error
	}); err != nil {
		return storageError("load settings", err)
	}

	next := s.defaults
	for _, row := range rows {
		if err := next.apply(row.Key, row.Value); err != nil {
			s.log.Warn("ignoring stored setting", zap.String("key", row.Key), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// Save validates and persists values, then reloads. Either every value is stored or none is.
func (s *Settings) Save(ctx context.Context, values map[string]any) (SettingsSnapshot, error) {
	if len(values) == 0 {
		return s.Snapshot(), invalidInput("no settings given")
	}

	probe := s.defaults
	rows := make([]models.Setting, 0, len(values))
	for key, v := range values {
		raw, err := normalizeSetting(&probe, key, v)
		if err != nil {
			return s.Snapshot(), err
		}
		rows = append(rows, models.Setting{Key: key, Value: raw, UpdatedAt: s.now()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	err := s.store.Write(ctx, "settings.save", func(tx *Tx) error {
		for i := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rows[i]).Error; err != nil {
				return storageError("save setting "+rows[i].Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return s.Snapshot(), err
	}

	if err := s.Load(ctx); err != nil {
		return s.Snapshot(), err
	}
	s.log.Info("settings saved", zap.Int("count", len(rows)))
	return s.Snapshot(), nil
}

// normalizeSetting converts a decoded JSON value into its stored string form.
func normalizeSetting(probe *SettingsSnapshot, key string, v any) (string, error) {
	if _, ok := probe.ints()[key]; ok {
		var n int64
		switch t := v.(type) {
		case float64:
			if t != math.Trunc(t) {
				return "", invalidInput("%s must be an integer", key)
			}
			n = int64(t)
		case int:
			n = int64(t)
		case int64:
			n = t
		case json.Number:
			parsed, err := t.Int64()
			if err != nil {
				return "", invalidInput("%s must be an integer", key)
			}
			n = parsed
		case string:
			parsed, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return "", invalidInput("%s must be an integer", key)
			}
			n = parsed
		default:
			return "", invalidInput("%s must be an integer", key)
		}
		if n < 0 {
			return "", invalidInput("%s must not be negative", key)
		}
		return strconv.FormatInt(n, 10), nil
	}
	if _, ok := probe.bools()[key]; ok {
		switch t := v.(type) {
		case bool:
			return strconv.FormatBool(t), nil
		case string:
			b, err := strconv.ParseBool(t)
			if err != nil {
				return "", invalidInput("%s must be a boolean", key)
			}
			return strconv.FormatBool(b), nil
		default:
			return "", invalidInput("%s must be a boolean", key)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
}
