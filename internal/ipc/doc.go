// Package ipc exposes daemon control over JSON-RPC on a unix domain socket:
// engine start/stop/status, the position reset, and mapping management. The
// dialbridge CLI is the only intended client.
package ipc
