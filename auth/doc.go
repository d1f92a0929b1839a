// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides capability token generation and shape checks.

There are no accounts. A share is addressed by its share id and may be
deleted by whoever holds its delete key.

# Share Credentials

Both values are 12 cryptographically random bytes, hex encoded:

	shareID, deleteKey, err := auth.GenerateShareCredentials()

# Share ID Validation

Fetch and delete reject anything that is not 24 lowercase hex characters
before touching storage:

	if err := auth.ValidateShareID(id); err != nil { ... }

# IP Hashing

Rate limiter keys carry a BLAKE2b hash of the client address, keyed by an
optional salt:

	hash := auth.HashIP(ipAddress, salt)
*/
package auth
