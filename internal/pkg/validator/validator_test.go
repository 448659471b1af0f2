package validator

import (
	"testing"

	"tsu-tactics/internal/pkg/xerrors"

	"github.com/stretchr/testify/require"
)

type tickPayload struct {
	MaxSteps int    `json:"max_steps" validate:"min=1,max=10"`
	Kind     string `json:"kind" validate:"required,oneof=self combatant tile"`
}

func TestCustomValidator(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&tickPayload{MaxSteps: 3, Kind: "self"}))

	err := v.Validate(&tickPayload{MaxSteps: 11, Kind: "self"})
	require.Error(t, err)
	appErr, ok := xerrors.As(err)
	require.True(t, ok)
	require.Equal(t, xerrors.CodeInvalidParams, appErr.Code)
	require.Equal(t, "max_steps", appErr.Context.Metadata["field"])
	require.Equal(t, "最大推进步数不能大于10", appErr.Context.Metadata["validation_message"])

	err = v.Validate(&tickPayload{MaxSteps: 1, Kind: "area"})
	appErr, ok = xerrors.As(err)
	require.True(t, ok)
	require.Contains(t, appErr.Context.Metadata["validation_message"], "目标类型")
}
