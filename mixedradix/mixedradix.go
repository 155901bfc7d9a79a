// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mixedradix

import (
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/exp/constraints"
)

var (
	ErrLengthMismatch  = errors.New("values and bases must have the same length")
	ErrMissingLastBase = errors.New("last base was needed but not provided")
	ErrZeroBase        = errors.New("base must be at least 1")
)

// Encode packs values into a single integer using a different base per digit
func Encode[T constraints.Unsigned](values, bases []T) (*big.Int, error) {
	if len(values) != len(bases) {
		return nil, fmt.Errorf("%w: %d values, %d bases", ErrLengthMismatch, len(values), len(bases))
	}

	encoded := new(big.Int)
	digit := new(big.Int)
	base := new(big.Int)
	for i := len(values) - 1; i >= 0; i-- {
		base.SetUint64(uint64(bases[i]))
		digit.SetUint64(uint64(values[i]))
		encoded.Mul(encoded, base)
		encoded.Add(encoded, digit)
	}

	return encoded, nil
}

// Decode unpacks an integer produced by Encode.
// lastBase is used once bases are exhausted; 0 means no last base.
func Decode[T constraints.Unsigned](bases []T, encoded *big.Int, lastBase T) ([]T, error) {
	decoded := make([]T, 0, len(bases))
	accumulator := new(big.Int)
	if encoded != nil {
		accumulator.Set(encoded)
	}

	remainder := new(big.Int)
	base := new(big.Int)
	for index := 0; accumulator.Sign() > 0; index++ {
		var b T
		if index < len(bases) {
			b = bases[index]
			if b == 0 {
				return nil, fmt.Errorf("%w: bases[%d] is zero", ErrZeroBase, index)
			}
		} else {
			if lastBase == 0 {
				return nil, fmt.Errorf("%w: %d digits decoded", ErrMissingLastBase, index)
			}
			// a last base of one leaves the accumulator untouched forever
			if lastBase == 1 {
				return nil, fmt.Errorf("%w: last base is one", ErrZeroBase)
			}
			b = lastBase
		}

		base.SetUint64(uint64(b))
		// exact division: accumulator = (accumulator - remainder) / base
		accumulator.QuoRem(accumulator, base, remainder)
		decoded = append(decoded, T(remainder.Uint64()))
	}

	for len(decoded) < len(bases) {
		decoded = append(decoded, 0)
	}

	return decoded, nil
}

// MaxValue returns the largest integer encodable with the given bases
func MaxValue[T constraints.Unsigned](bases []T) *big.Int {
	values := make([]T, len(bases))
	for i, b := range bases {
		if b > 0 {
			values[i] = b - 1
		}
	}
	// lengths always match here
	encoded, _ := Encode(values, bases)
	return encoded
}
