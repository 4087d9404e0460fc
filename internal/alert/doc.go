// Package alert evaluates sensor snapshots against configurable
// thresholds and maintains the persisted alert history.
//
// The engine consumes every sensor update. PM2.5 and PM10 are compared
// directly against their thresholds; a simplified AQI proxy
// (max(pm25*2, pm10*1.5)) drives the AQI rule. The proxy is intentionally
// distinct from the EPA AQI in the airquality package; the dashboard
// classification and the alerting thresholds have always used different
// scores and unifying them would change alerting behavior.
//
// Repeat alerts are suppressed per parameter-and-type key for five
// minutes. The history is newest-first, capped at 50 entries, and
// persisted on every change. When push notifications are enabled each
// created alert is also handed to the notification boundary.
package alert
