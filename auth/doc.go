// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides election identifiers and admin key utilities.

# Election IDs

Elections are identified by random UUIDs:

	id := auth.NewElectionID()
	id, err := auth.ParseElectionID(r.PathValue("id"))

ParseElectionID rejects anything that is not a canonical UUID before it
reaches the database.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(electionID, salt)
	err := auth.ValidateAdminKey(electionID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same election ID and salt always produce the same key. This allows
validation without storing the key in the database.

Clients send the key in the X-Admin-Key header or as a bearer token:

	key := auth.AdminKeyFromRequest(r)
*/
package auth
