// Package composition scores how well a detected subject is placed within a
// frame according to classical composition rules.
//
// Three rules are implemented, dispatched through a single Evaluate entry
// point over a closed Rule enum:
//
//   - RuleOfThirds: distance from the subject center to the nearest thirds
//     grid intersection or grid line, with an adaptive tolerance band that
//     widens for close-up subjects.
//   - RuleCenterFraming: distance from the subject center to the fixed frame
//     center, with follow-subject directional guidance and an optional
//     symmetry bonus when pixel data is available.
//   - RuleSymmetry: pixel-level horizontal mirror analysis of the whole
//     frame, with a luminance-mass balance classification; degrades to a
//     geometry-only approximation when pixel data is unavailable.
//
// # Context
//
// Before any rule runs, Analyze derives rule-agnostic signals from the
// observation: subject size class, offset from frame center, edge proximity,
// and headroom. Rules read these signals instead of recomputing them, so
// tolerance adaptation and safety warnings stay consistent across rules.
//
// # Scores and Status
//
// Every evaluation produces a score in [0,1] and a status derived
// deterministically from the score and rule-specific thresholds. Recoverable
// conditions (no subject, missing pixel data) produce valid lower-confidence
// results; only invalid frame geometry is rejected with an error.
//
// # Concurrency
//
// Analyze and Evaluate are pure functions. Shared mutable state is confined
// to Manager, which is single-writer through its own methods and hands out
// snapshot copies to readers.
package composition
