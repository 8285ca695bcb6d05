// Package main hosts the winnow CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the batch sorting pass, the live
// watch mode, preflight checks, and the read-only surfaces over the tag
// cache and run history. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags
// here.
package main
