package fixedpoint

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxAmount(t *testing.T) Amount {
	t.Helper()
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	a, err := FromBig(max)
	require.NoError(t, err)
	return a
}

func TestParseUnits(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "whole units", input: "10", expected: "10000000000000000000"},
		{name: "fractional units", input: "0.03", expected: "30000000000000000"},
		{name: "smallest unit", input: "0.000000000000000001", expected: "1"},
		{name: "zero", input: "0", expected: "0"},
		{name: "too many decimals", input: "0.0000000000000000001", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "garbage", input: "ten", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ParseUnits(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, a.String())
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "10", Units(10).Format())
	assert.Equal(t, "10.5", MustParseUnits("10.5").Format())
	assert.Equal(t, "0.000000000000000001", New(1).Format())
	assert.Equal(t, "0", Zero.Format())
}

func TestCheckedArithmetic(t *testing.T) {
	t.Run("add overflow", func(t *testing.T) {
		_, err := maxAmount(t).Add(New(1))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("sub underflow", func(t *testing.T) {
		_, err := New(1).Sub(New(2))
		assert.ErrorIs(t, err, ErrUnderflow)
	})

	t.Run("mul overflow", func(t *testing.T) {
		_, err := maxAmount(t).Mul(New(2))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("div by zero", func(t *testing.T) {
		_, err := One.Div(Zero)
		assert.ErrorIs(t, err, ErrDivisionByZero)

		_, err = One.MulDiv(One, Zero)
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})

	t.Run("div floors", func(t *testing.T) {
		q, err := New(10).Div(New(3))
		require.NoError(t, err)
		assert.Equal(t, "3", q.String())
	})

	t.Run("muldiv keeps wide intermediate", func(t *testing.T) {
		// max * 2 / 4 overflows as a plain product but not as MulDiv.
		q, err := maxAmount(t).MulDiv(New(2), New(4))
		require.NoError(t, err)
		half, err := maxAmount(t).Div(New(2))
		require.NoError(t, err)
		assert.True(t, q.Eq(half))
	})

	t.Run("muldiv overflow of quotient", func(t *testing.T) {
		_, err := maxAmount(t).MulDiv(New(2), New(1))
		assert.ErrorIs(t, err, ErrOverflow)
	})
}

func TestFromBig(t *testing.T) {
	_, err := FromBig(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromBig(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, ErrOverflow)

	a, err := FromBig(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.Big().Int64())
}

func TestComparisons(t *testing.T) {
	assert.True(t, New(1).Lt(New(2)))
	assert.True(t, New(2).Gt(New(1)))
	assert.True(t, Units(1).Eq(One))
	assert.Equal(t, 0, One.Cmp(Units(1)))
	assert.True(t, Zero.IsZero())
	assert.InDelta(t, 0.03, MustParseUnits("0.03").Float64(), 1e-12)
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Value Amount `json:"value"`
	}

	raw, err := json.Marshal(wrapper{Value: Units(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"3000000000000000000"}`, string(raw))

	var decoded wrapper
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Value.Eq(Units(3)))
}
