package types

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/vouchsafe/vouchsafe/common/check"
)

// Value is a 256-bit unsigned amount of escrowed funds.
// The zero value is usable and equal to Zero().
type Value struct{ Uint256 uint256.Int }

func NewValue(val *uint256.Int) Value {
	return Value{*val}
}

func NewValueFromUint64(val uint64) Value {
	return Value{*uint256.NewInt(val)}
}

func NewValueFromBig(val *big.Int) (Value, bool) {
	res, overflow := uint256.FromBig(val)
	if overflow {
		return Value{}, true
	}
	return Value{*res}, false
}

func Zero() Value { return Value{} }

func (v Value) IsZero() bool { return v.Uint256.IsZero() }

func (v Value) Add(other Value) Value {
	var res uint256.Int
	res.Add(&v.Uint256, &other.Uint256)
	return Value{res}
}

// Sub subtracts other from v. It panics on underflow: escrow balances are
// checked before every debit, so a wrap here is a bookkeeping bug.
func (v Value) Sub(other Value) Value {
	check.PanicIfNotf(v.Cmp(other) >= 0, "value underflow: %s - %s", v, other)
	var res uint256.Int
	res.Sub(&v.Uint256, &other.Uint256)
	return Value{res}
}

func (v Value) Mul64(n uint64) Value {
	var res uint256.Int
	res.Mul(&v.Uint256, uint256.NewInt(n))
	return Value{res}
}

// Div64 returns the floor of v / n.
func (v Value) Div64(n uint64) Value {
	check.PanicIfNot(n != 0)
	var res uint256.Int
	res.Div(&v.Uint256, uint256.NewInt(n))
	return Value{res}
}

// Mod64 returns v mod n.
func (v Value) Mod64(n uint64) Value {
	check.PanicIfNot(n != 0)
	var res uint256.Int
	res.Mod(&v.Uint256, uint256.NewInt(n))
	return Value{res}
}

func (v Value) Cmp(other Value) int {
	return v.Uint256.Cmp(&other.Uint256)
}

func (v Value) Eq(other Value) bool { return v.Cmp(other) == 0 }

func (v Value) Uint64() uint64 { return v.Uint256.Uint64() }

func (v Value) ToBig() *big.Int { return v.Uint256.ToBig() }

func (v Value) String() string { return v.Uint256.Dec() }

func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.Uint256.Dec()), nil
}

func (v *Value) UnmarshalText(input []byte) error {
	res, err := uint256.FromDecimal(string(input))
	if err != nil {
		return err
	}
	v.Uint256 = *res
	return nil
}
