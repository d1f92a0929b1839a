// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the oshijiku command.

Oshijiku places "oshis" (the people or things a user follows) on a
two-axis chart with custom axis labels, keeps that chart in a local store,
and shares read-only snapshots of it through a small share server.

# Share Server

	oshijiku serve -d ./shares.db

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... oshijiku serve

See the cliparse package for every flag and environment variable.

# Client

	oshijiku open                 show the local chart (sample on first run)
	oshijiku add "name" --x 10    add an oshi
	oshijiku share                upload a snapshot and print its link
	oshijiku open <link>          view a shared chart read-only
	oshijiku fork <link>          copy a shared chart into the local chart
	oshijiku unshare <link>       delete a share created on this machine

# Architecture

  - cmd: cobra commands, run through fang
  - gateway: client session, local store and share server client
  - handlers: share create / fetch / delete
  - router: route table and origin policy wiring
  - middleware: logging, JSON and error helpers, origin policy
  - ratelimit: sliding-window limits in memory or Redis
  - sanitize: canonical model repair and share payload validation
  - coord: logical to render-space mapping
  - models: domain, request and response types plus error taxonomy
  - auth: share ids, delete keys and address hashing
  - db: driver selection and schema
  - cliparse: server configuration

See package documentation for each component.
*/
package main
