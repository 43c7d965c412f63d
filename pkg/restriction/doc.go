// Package restriction defines UX restriction flags and the restriction
// snapshot distributed to subscribers.
//
// A restriction level is a bitmask of capabilities that must be limited
// while driving (text entry, video playback, ...). Unrestricted is the
// empty mask; FullyRestricted sets every known flag.
//
// A Snapshot pairs the active flags with the derived "requires distraction
// optimization" bit and the monotonic time at which it was computed.
// Two snapshots carry the same restrictions when their flags match; the
// timestamp never takes part in that comparison.
package restriction
