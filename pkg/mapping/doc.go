// Package mapping maps a driving state and speed to UX restrictions.
//
// A Table is loaded once by a Provider and is read-only afterwards, so it can
// be shared between goroutines without synchronization.
//
// # Rules
//
// RuleTable holds an ordered list of rules. Each rule names a driving state,
// an optional half-open speed range [Min, Max) and the restrictions to apply.
// Rules are evaluated in order and the first match wins. When no rule
// matches, Lookup reports ok == false; callers treat that as a defect in
// the mapping data rather than as "no restrictions".
//
// # Defaults
//
// DefaultTable is the built-in fallback used when no table could be loaded:
// PARKED is unrestricted, every other state is fully restricted, regardless
// of speed.
//
// # YAML
//
// FileProvider and ParseYAML load rules from documents like:
//
//	rules:
//	  - state: parked
//	    restrictions: [unrestricted]
//	  - state: moving
//	    speed: {min: 0, max: 5}
//	    restrictions: [no_video, no_keyboard]
//	  - state: moving
//	    speed: {min: 5}
//	    restrictions: [fully_restricted]
package mapping
