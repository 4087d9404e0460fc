// Package airquality classifies particulate-matter concentrations against
// the EPA Air Quality Index scale.
//
// The package is pure and stateless: every function maps concentrations to
// derived readings with no side effects, which keeps it trivially testable
// and safe to call from any goroutine.
//
// # AQI computation
//
// Concentrations are bucketed into the EPA breakpoint bands for PM2.5 and
// PM10. Bands are half-open (low, high] with the first band including zero,
// so a value exactly on a boundary belongs to the lower band: 12.0 µg/m³ of
// PM2.5 is Good, 12.1 is Moderate. Within a band the AQI is linearly
// interpolated between the band's anchors (0, 50, 100, 150, 200, 300, 500),
// reproducing the EPA piecewise-linear formula.
//
// Note that the alert engine intentionally uses a different, simplified AQI
// proxy for threshold checks (see internal/alert); the two formulas coexist
// because their consumers read from different entry points.
package airquality
