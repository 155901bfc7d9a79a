// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballotcodec turns the selections of a question into the integer that
gets encrypted, and back.

# Bases

Every question has a fixed list of numeral bases:

  - base 2 for the invalid-vote flag (always first)
  - one base per remaining answer, sorted by id: 2 for plurality-at-large,
    max+1 for cumulative and preferential questions
  - with write-ins allowed, one base 256 per write-in answer, reserved for the
    zero byte that ends its text

Each byte of write-in text adds another base 256 slot at the end.

# Encoding

	codec, err := ballotcodec.New(question)
	raw, err := codec.EncodeRawBallot()
	n, err := codec.EncodeToInt(raw)

# Decoding

	raw, err := codec.DecodeFromInt(n)
	decoded, err := codec.DecodeRawBallot(raw)
	// decoded.Answers[i].Selected, decoded.Answers[i].Text

# Capacity

BiggestEncodableNormalBallot is the largest integer a ballot without write-in
text can reach; the encryption modulus must be bigger. NumWriteInBytesLeft
estimates the remaining write-in budget below a modulus. The estimate is
conservative, not tight.

# Errors

  - ConfigError (wrapping ErrInvalidQuestion or ErrModulusTooSmall): fatal
  - ErrInvalidBallot: a malformed ballot, counted as null by the tally
*/
package ballotcodec
