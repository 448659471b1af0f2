package impl

import (
	"database/sql"
	"encoding/json"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/friendsofgo/errors"
)

// nullString 空字符串写入 NULL
func nullString(val string) null.String {
	return null.NewString(val, val != "")
}

// marshalJSON 写入 jsonb 列，nil 时写入 fallback
func marshalJSON(v any, fallback string) (types.JSON, error) {
	if v == nil {
		return types.JSON(fallback), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "序列化 JSON 失败")
	}
	return types.JSON(raw), nil
}

// isNoRows 判断是否为查询无结果
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
