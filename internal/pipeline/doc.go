// Package pipeline runs images through three stages (load, infer,
// post-process) connected by channels and throttled by one shared permit
// pool sized for the whole pipeline, not per stage.
//
// Each stage acquires a permit before touching an item and releases it
// before the handoff, so at most N images are being worked on at any
// instant across all stages combined. Per-item failures are logged and the
// item is dropped; only context cancellation stops a run early.
package pipeline
