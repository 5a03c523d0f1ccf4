// Package detect finds the primary subject of a camera frame.
//
// Detection runs a tiered pipeline in fixed priority order:
//
//  1. Face tier: a pigo cascade classifier scans the frame; if one or more
//     faces are found, the highest-quality face wins.
//  2. Human-region tier: if no face is found, a saliency analysis over a
//     downsampled thumbnail looks for the largest region of concentrated
//     edge energy and treats it as a human-scale subject.
//  3. None: if neither tier yields a candidate the frame has no subject.
//
// A frame with no subject is a valid, non-error outcome. Detector failures
// (missing cascade data, undecodable or degenerate frames, panics inside the
// vision code) also degrade to "no subject" rather than propagating errors:
// losing one frame of feedback is always preferable to halting the pipeline.
//
// # Coordinates
//
// Observations carry normalized bounding boxes in [0,1]×[0,1] relative to the
// analyzed frame, so downstream scoring is independent of sensor resolution.
//
// # Thresholds
//
// Cascade quality, clustering overlap, and saliency thresholds live in Config
// and have defaults chosen for handheld photography: faces from roughly 5% of
// the short frame edge upward, moderate quality cutoffs, and a saliency
// region floor that ignores isolated specks of texture.
package detect
