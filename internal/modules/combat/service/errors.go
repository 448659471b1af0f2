package service

import (
	"errors"

	"tsu-tactics/internal/pkg/xerrors"
	"tsu-tactics/internal/repository/interfaces"
)

// dbError 把仓储错误转换为 AppError。已经是 AppError 的原样返回
func dbError(err error, operation, table string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := xerrors.As(err); ok {
		return appErr
	}
	if errors.Is(err, interfaces.ErrEventSequenceConflict) {
		return xerrors.NewConflictError("action_events", "concurrent write").WithMetadata("db_operation", operation)
	}
	return xerrors.NewDatabaseError(operation, table, err)
}

// sessionError 会话不存在时返回 404
func sessionError(err error, sessionID string) error {
	if errors.Is(err, interfaces.ErrCombatSessionNotFound) {
		return xerrors.NewCombatSessionNotFoundError(sessionID)
	}
	return dbError(err, "select", "combat_sessions")
}
