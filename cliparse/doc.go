// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory, if present, is loaded into the
environment first. Variables already set are not overridden.

# CLI Flags

	-p          Server port
	-d          Database URL
	-t          Database type (sqlite, postgres, pgx)
	-redis      Redis URL
	-base-url   Public base URL for share links
	-origins    Allowed origins, comma separated
	-ip-salt    Client address hash salt

# Environment Variables

	PORT                  → -p (default 3318)
	DATABASE_URL          → -d (required)
	DATABASE_TYPE         → -t (default sqlite)
	REDIS_URL             → -redis (optional)
	PUBLIC_BASE_URL       → -base-url (default https://oshijiku.com)
	ALLOWED_ORIGINS       → -origins (default the public base URL)
	IP_HASH_SALT          → -ip-salt
	ALLOW_LOCALHOST       http(s)://localhost[:port] origins (default true)
	TRUST_PROXY           key rate limits on X-Forwarded-For (default false)
	RATE_CREATE_PER_HOUR  default 30
	RATE_DELETE_PER_HOUR  default 30
	RATE_FETCH_PER_HOUR   default 300
	RATE_LOCK_TIMEOUT     default 2s

CLI flags take precedence over environment variables.
*/
package cliparse
