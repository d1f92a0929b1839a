// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cmd holds the cobra command tree. Chart commands open the local
// store named by --store, load a session from it and print the result;
// "serve" hands its arguments to cliparse unchanged.
package cmd
