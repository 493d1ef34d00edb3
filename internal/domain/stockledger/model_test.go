package stockledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
)

func TestSignedQuantity(t *testing.T) {
	in := &StockMovement{Type: TypeIn, Direction: DirectionIncrease, Quantity: 50}
	assert.EqualValues(t, 50, in.SignedQuantity())

	out := &StockMovement{Type: TypeOut, Direction: DirectionDecrease, Quantity: 10}
	assert.EqualValues(t, -10, out.SignedQuantity())
}

func TestDirectionForType(t *testing.T) {
	cases := []struct {
		movementType MovementType
		want         Direction
		implied      bool
	}{
		{TypeIn, DirectionIncrease, true},
		{TypeReturn, DirectionIncrease, true},
		{TypeOut, DirectionDecrease, true},
		{TypeDamage, DirectionDecrease, true},
		{TypeAdjustment, "", false},
		{TypeCorrection, "", false},
	}
	for _, c := range cases {
		dir, implied := DirectionForType(c.movementType)
		assert.Equal(t, c.implied, implied, "type %s", c.movementType)
		assert.Equal(t, c.want, dir, "type %s", c.movementType)
	}
}

func TestRecordInputValidate(t *testing.T) {
	base := RecordInput{
		ProductID: id.New(),
		Type:      TypeIn,
		Quantity:  5,
		ActorID:   "user-1",
	}

	t.Run("implied direction wins", func(t *testing.T) {
		in := base
		in.Direction = DirectionDecrease // ignored for "in"
		dir, err := in.Validate()
		require.NoError(t, err)
		assert.Equal(t, DirectionIncrease, dir)
	})

	t.Run("adjustment requires explicit direction", func(t *testing.T) {
		in := base
		in.Type = TypeAdjustment
		_, err := in.Validate()
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)

		in.Direction = DirectionDecrease
		dir, err := in.Validate()
		require.NoError(t, err)
		assert.Equal(t, DirectionDecrease, dir)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		in := base
		in.Quantity = 0
		_, err := in.Validate()
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		in := base
		in.Type = "teleport"
		_, err := in.Validate()
		require.Error(t, err)
	})
}
