package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/xerrors"
)

// TxRunner 在一个事务内执行 fn。fn 返回错误时回滚，否则提交
type TxRunner interface {
	InTx(ctx context.Context, fn func(exec boil.ContextExecutor) error) error
}

type sqlTxRunner struct {
	db     boil.ContextBeginner
	logger log.Logger
}

// NewTxRunner 基于 *sql.DB 的事务执行器
func NewTxRunner(db boil.ContextBeginner, logger log.Logger) TxRunner {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &sqlTxRunner{db: db, logger: logger}
}

func (r *sqlTxRunner) InTx(ctx context.Context, fn func(exec boil.ContextExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.NewDatabaseError("begin", "combat_sessions", err)
	}
	defer func() {
		// 已提交的事务回滚时返回 ErrTxDone
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.WarnContext(ctx, "回滚事务失败", log.Any("error", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return xerrors.NewDatabaseError("commit", "combat_sessions", err)
	}
	return nil
}
