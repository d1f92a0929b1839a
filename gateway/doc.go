// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package gateway is the client side of oshijiku: it owns the canonical chart
model of one session and moves it between local storage, links and the
share store.

# Loading

Session.Load tries, in order:

 1. the share named by ?s= (success opens the chart read-only)
 2. the payload embedded in ?data=
 3. the local autosave under "oshijiku_state"
 4. the built-in sample, which is saved immediately

A failing source leaves a Notice and falls through. Everything loaded is
passed through sanitize.Sanitize first.

# Saving

Every mutation (AddOshi, RemoveOshi, MoveOshi, CommitDrag, SetAxis) saves
the whole model locally. A full store yields a Notice, not an error, and
the in-memory model keeps the change. Mutations return models.ErrReadOnly
while viewing a share; Fork copies the chart into a new local baseline.

Share uploads the image-free projection and records the returned delete
key under "oshijiku_share_keys"; Unshare uses it. No request is retried.

# Storage

	store, err := gateway.OpenSQLiteStorage(ctx, filepath.Join(home, ".oshijiku", "local.db"), 0)
	api := gateway.NewClient("https://oshijiku.com", gateway.WithOrigin("https://oshijiku.com"))
	s := gateway.NewSession(store, api)
*/
package gateway
