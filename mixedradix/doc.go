// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package mixedradix encodes a vector of bounded digits into one arbitrary-precision
integer and back.

# Encoding

Each digit has its own base. values[0] is the least significant digit:

	n = values[0] + bases[0]*(values[1] + bases[1]*(values[2] + ...))

	n, err := mixedradix.Encode([]uint32{29, 23, 59}, []uint32{30, 24, 60})
	// n == 43199

# Decoding

Decode peels digits off until the accumulator reaches zero. When the
accumulator outlives the given bases, lastBase is used for every further digit;
pass 0 when no open-ended tail is expected:

	digits, err := mixedradix.Decode([]uint32{30, 24, 60}, n, 0)

The result is right-padded with zeros up to len(bases), and may be longer than
bases when lastBase was needed. Ballots use lastBase = 256 for the write-in
byte tail.

# Errors

  - ErrLengthMismatch: Encode got a different number of values and bases
  - ErrMissingLastBase: Decode ran past bases with lastBase == 0
  - ErrZeroBase: a base of zero (or a last base of one) would never terminate

The package never looks at ballot semantics.
*/
package mixedradix
