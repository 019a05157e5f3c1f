// Package statefile reads the JSON state records the external device host
// publishes. Reads are guarded against torn writes (the host does not write
// atomically), deduplicated by producer markers, and backed by a last-valid
// cache so a missing or corrupt file never surfaces past the channel.
//
// Transport is pluggable: FileSource polls a primary path with ordered
// fallbacks; WatchSource serves the latest payload observed by an fsnotify
// watcher. Both satisfy the same Source contract.
package statefile
