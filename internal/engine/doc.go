// Package engine owns the poll loop: a fixed-interval, single-owner
// scheduler that each tick refreshes the liveness marker, dispatches button
// events through the navigator, and turns dial movement into parameter
// mutations. Faults inside a tick are contained and reported through status;
// they never stop the loop.
package engine
