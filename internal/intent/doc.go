// Package intent defines what the indicator engine renders: colors, tones,
// rendering modes and the priority classes that decide which status signal
// owns the shared output device.
//
// A DisplayIntent ([Intent]) is produced by the arbiter, admitted by the rate
// limiter, queued and consumed exactly once by the render worker that owns
// the device. Devices are reached only through the [IndicatorSink] and
// [AudioSink] capability interfaces.
package intent
