// Package runner drives one problem's investigation: a bounded conversation in
// which the model requests evidence through tools and ends with a
// provide_analysis conclusion.
//
// States:
//
//	INIT -> ITERATING -> {CONCLUDED, FORCED_CONCLUSION, FAILED}
//
// Invariants:
//   - at most MaxIterations normal model calls plus one forced-conclusion call
//   - every run returns a Verdict; parse failures, wrong-shape responses and
//     model errors yield a fallback verdict flagged as failed
//   - unknown tools and incomplete conclusions are corrected in-conversation
//     (the latter at most once) and never end the run
//
// Flow:
//
//	system+user(problem) -> assistant(tool call) -> user(tool result) -> ... -> assistant(provide_analysis)
package runner
