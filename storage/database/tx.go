package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

type txManager struct {
	db core.DB
}

var _ core.TxManager = (*txManager)(nil)

func NewTxManager(db core.DB) core.TxManager {
	return &txManager{db: db}
}

// WithinTx commits when fn succeeds, rolls back otherwise.
func (m *txManager) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
