package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

// Tx is the handle a unit of work runs against. Hooks registered with AfterCommit run only once
// the transaction has committed.
type Tx struct {
	*gorm.DB
	afterCommit []func()
}

// AfterCommit defers fn until the surrounding unit of work commits. It is dropped on rollback.
func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

// Store serializes every mutation behind one writer lock and runs each as a single database transaction.
// Reads share the lock so they never see half of a unit of work.
type Store struct {
	db  *gorm.DB
	mu  sync.RWMutex
	log *zap.Logger
}

// NewStore wraps an opened gorm handle.
func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// Write runs fn as one atomic unit of work. Once started it is not cancelled by ctx: it commits or rolls back.
func (s *Store) Write(ctx context.Context, op string, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hooks []func()
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(gtx *gorm.DB) error {
		tx := &Tx{DB: gtx}
		if err := fn(tx); err != nil {
			return err
		}
		hooks = tx.afterCommit
		return nil
	})
	if err != nil {
		if KindOf(err) == KindStorage {
			s.log.Error("unit of work failed", zap.String("op", op), zap.Error(err))
		} else {
			s.log.Debug("unit of work rejected", zap.String("op", op), zap.Error(err))
		}
		return err
	}
	for _, h := range hooks {
		h()
	}
	return nil
}

// Read runs fn against a consistent view of the store.
func (s *Store) Read(ctx context.Context, fn func(db *gorm.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.db.WithContext(ctx))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
