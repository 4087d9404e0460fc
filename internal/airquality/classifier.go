package airquality

import (
	"math"
)

// Category is an air-quality severity band on the EPA scale.
//
// The zero value is Good. Ordering is meaningful: a higher value is a more
// severe category, and comparisons between categories use this order.
type Category int

// Severity bands, ordered least to most severe.
const (
	Good Category = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

// String returns the canonical name of the category.
func (c Category) String() string {
	switch c {
	case Good:
		return "good"
	case Moderate:
		return "moderate"
	case UnhealthySensitive:
		return "unhealthy_sensitive"
	case Unhealthy:
		return "unhealthy"
	case VeryUnhealthy:
		return "very_unhealthy"
	case Hazardous:
		return "hazardous"
	default:
		return "unknown"
	}
}

// Reading is a derived, immutable classification of a pollutant
// concentration. Readings are never persisted; they are recomputed on
// demand from the live snapshot.
type Reading struct {
	// Category is the severity band the concentration falls into.
	Category Category

	// AQI is the EPA piecewise-linear Air Quality Index for the value.
	AQI float64

	// Display metadata consumed by clients.
	Color       string
	BgColor     string
	Icon        string
	Label       string
	Description string

	// SourceValue is the concentration the reading was derived from, µg/m³.
	SourceValue float64
}

// breakpoint is one EPA concentration band with its AQI anchors.
//
// Bands are half-open (cLow, cHigh] except the first, which includes its
// lower bound: a value exactly on a boundary belongs to the lower band.
type breakpoint struct {
	cLow, cHigh     float64
	aqiLow, aqiHigh float64
	category        Category
}

// EPA PM2.5 breakpoints (24-hour, µg/m³).
var pm25Breakpoints = []breakpoint{
	{0, 12, 0, 50, Good},
	{12, 35.4, 50, 100, Moderate},
	{35.4, 55.4, 100, 150, UnhealthySensitive},
	{55.4, 150.4, 150, 200, Unhealthy},
	{150.4, 250.4, 200, 300, VeryUnhealthy},
	{250.4, 500.4, 300, 500, Hazardous},
}

// EPA PM10 breakpoints (24-hour, µg/m³).
var pm10Breakpoints = []breakpoint{
	{0, 54, 0, 50, Good},
	{54, 154, 50, 100, Moderate},
	{154, 254, 100, 150, UnhealthySensitive},
	{254, 354, 150, 200, Unhealthy},
	{354, 424, 200, 300, VeryUnhealthy},
	{424, 604, 300, 500, Hazardous},
}

// categoryMeta holds the display metadata attached to each band.
var categoryMeta = map[Category]struct {
	color, bgColor, icon, label, description string
}{
	Good: {
		color: "#22C55E", bgColor: "#DCFCE7", icon: "😊",
		label:       "Good",
		description: "Air quality is satisfactory",
	},
	Moderate: {
		color: "#EAB308", bgColor: "#FEF3C7", icon: "😐",
		label:       "Moderate",
		description: "Air quality is acceptable",
	},
	UnhealthySensitive: {
		color: "#F97316", bgColor: "#FED7AA", icon: "😷",
		label:       "Unhealthy for Sensitive Groups",
		description: "Sensitive groups may experience health effects",
	},
	Unhealthy: {
		color: "#EF4444", bgColor: "#FEE2E2", icon: "🚨",
		label:       "Unhealthy",
		description: "Everyone may experience health effects",
	},
	VeryUnhealthy: {
		color: "#A855F7", bgColor: "#F3E8FF", icon: "🚨",
		label:       "Very Unhealthy",
		description: "Health warnings of emergency conditions",
	},
	Hazardous: {
		color: "#881337", bgColor: "#FFE4E6", icon: "☠️",
		label:       "Hazardous",
		description: "Health alert: everyone may experience serious effects",
	},
}

// ClassifyPM25 classifies a PM2.5 concentration.
//
// Parameters:
//   - value: Concentration in µg/m³. Pass math.NaN() for a missing reading.
//
// Returns:
//   - *Reading: The classification, or nil if the value is missing or not a
//     finite number
func ClassifyPM25(value float64) *Reading {
	return classify(value, pm25Breakpoints)
}

// ClassifyPM10 classifies a PM10 concentration.
//
// Parameters:
//   - value: Concentration in µg/m³. Pass math.NaN() for a missing reading.
//
// Returns:
//   - *Reading: The classification, or nil if the value is missing or not a
//     finite number
func ClassifyPM10(value float64) *Reading {
	return classify(value, pm10Breakpoints)
}

// classify buckets a concentration into its band and interpolates the AQI.
//
// The AQI is linear within each band:
//
//	aqi = aqiLow + (v - cLow) / (cHigh - cLow) * (aqiHigh - aqiLow)
//
// Values above the top of the scale are clamped to AQI 500.
func classify(value float64, table []breakpoint) *Reading {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}

	// Sensors occasionally report small negative values during warm-up;
	// treat them as the bottom of the scale.
	v := value
	if v < 0 {
		v = 0
	}

	band := table[len(table)-1]
	for _, b := range table {
		if v <= b.cHigh {
			band = b
			break
		}
	}

	var aqi float64
	if v > band.cHigh {
		aqi = band.aqiHigh
	} else {
		aqi = band.aqiLow + (v-band.cLow)/(band.cHigh-band.cLow)*(band.aqiHigh-band.aqiLow)
	}

	meta := categoryMeta[band.category]
	return &Reading{
		Category:    band.category,
		AQI:         aqi,
		Color:       meta.color,
		BgColor:     meta.bgColor,
		Icon:        meta.icon,
		Label:       meta.label,
		Description: meta.description,
		SourceValue: value,
	}
}

// ClassifyOverall combines PM2.5 and PM10 classifications into a single
// overall reading.
//
// The more severe category wins; PM2.5 wins ties so the result is
// deterministic regardless of evaluation order. The returned AQI is the
// maximum of the two individual AQIs, whichever category won.
//
// Parameters:
//   - pm25: PM2.5 concentration in µg/m³, or math.NaN() if missing
//   - pm10: PM10 concentration in µg/m³, or math.NaN() if missing
//
// Returns:
//   - *Reading: The overall classification, or nil if both inputs are missing
func ClassifyOverall(pm25, pm10 float64) *Reading {
	r25 := ClassifyPM25(pm25)
	r10 := ClassifyPM10(pm10)

	if r25 == nil && r10 == nil {
		return nil
	}
	if r25 == nil {
		return r10
	}
	if r10 == nil {
		return r25
	}

	worst := r25
	if r10.Category > r25.Category {
		worst = r10
	}

	overall := *worst
	overall.AQI = math.Max(r25.AQI, r10.AQI)
	return &overall
}

// ShouldAlert reports whether the transition from the previous readings to
// the current ones warrants an air-quality notification.
//
// An alert is warranted when:
//   - there was no previous reading and the current category is at or above
//     UnhealthySensitive, or
//   - the current category is strictly more severe than the previous one.
//
// Identical or improving transitions never alert through this path.
func ShouldAlert(pm25, pm10, prevPM25, prevPM10 float64) bool {
	current := ClassifyOverall(pm25, pm10)
	previous := ClassifyOverall(prevPM25, prevPM10)

	if current == nil {
		return false
	}
	if previous == nil {
		return current.Category >= UnhealthySensitive
	}
	return current.Category > previous.Category
}
