// Package altitude holds the altimeter state: the latest raw GPS altitude,
// the zero reference and the user's unit, precision and delay choices.
//
// All derived values are computed on read from four inputs (raw, offset,
// unit, precision). The one exception is the display string, which is
// recomputed only when a new sample arrives so that changing the zero
// reference never rewrites a value already on screen. The unit the string
// was computed in is kept with it, so a label never disagrees with its
// number.
package altitude
