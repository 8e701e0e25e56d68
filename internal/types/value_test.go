package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueArithmetic(t *testing.T) {
	t.Parallel()

	payment := NewValueFromUint64(1000)

	require.True(t, payment.Div64(3).Eq(NewValueFromUint64(333)))
	require.True(t, payment.Mod64(3).Eq(NewValueFromUint64(1)))
	require.True(t, payment.Add(NewValueFromUint64(500)).Eq(NewValueFromUint64(1500)))
	require.True(t, payment.Sub(NewValueFromUint64(1000)).IsZero())
	require.True(t, NewValueFromUint64(100).Mul64(3).Eq(NewValueFromUint64(300)))

	require.True(t, Zero().IsZero())
	require.Equal(t, -1, NewValueFromUint64(1).Cmp(NewValueFromUint64(2)))
}

func TestValueSubUnderflowPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		NewValueFromUint64(1).Sub(NewValueFromUint64(2))
	})
}

func TestValueJson(t *testing.T) {
	t.Parallel()

	str, err := json.Marshal(NewValueFromUint64(12345678))
	require.NoError(t, err)
	require.JSONEq(t, `"12345678"`, string(str))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &v))
	require.True(t, v.Eq(NewValueFromUint64(42)))
}
