// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Tally API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: Election creation, lookup and withdrawals
  - BallotHandler: Ballot encoding, decoding and write-in capacity
  - TallyHandler: Plaintext upload, ballot counts and tallies

Handlers are created via constructor functions that accept *sql.DB and Config:

	electionHandler := handlers.NewElectionHandler(db, cfg)
	tallyHandler := handlers.NewTallyHandler(db, cfg, m)

# Elections

	POST /elections          → CreateElection (returns admin_key)
	GET  /elections/{id}     → GetElection (questions, bases, withdrawals)
	POST /elections/{id}/withdrawals → AddWithdrawals

Question definitions are checked by building their tally before anything is
stored, so a bad tally type or min/max never reaches the database.

# Ballots

	POST /elections/{id}/questions/{index}/encode   → EncodeBallot
	POST /elections/{id}/questions/{index}/decode   → DecodeBallot
	GET  /elections/{id}/questions/{index}/capacity → GetCapacity

Encoded ballots are decimal integers. Plaintexts, as they come out of
decryption, are the encoded value plus one.

# Tallying

	POST /elections/{id}/plaintexts   → AddPlaintexts
	GET  /elections/{id}/ballot-count → GetBallotCount
	POST /elections/{id}/tally        → RunTally

Admin operations require the X-Admin-Key header or a bearer Authorization
header. Tally results are computed on request and not stored.
*/
package handlers
