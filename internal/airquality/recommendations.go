package airquality

// recommendationsByCategory is a pure lookup table of health guidance per
// overall category.
var recommendationsByCategory = map[Category][]string{
	Good: {
		"Excellent time for outdoor activities",
		"Ideal conditions for outdoor exercise",
		"Ventilate your home for fresh air",
	},
	Moderate: {
		"Sensitive people should limit prolonged outdoor exertion",
		"Moderate outdoor activities are acceptable",
		"Keep windows closed if you are sensitive to air pollution",
	},
	UnhealthySensitive: {
		"Sensitive groups should avoid outdoor activities",
		"Consider wearing a mask outdoors",
		"Keep windows closed",
		"Run an air purifier if you have one",
	},
	Unhealthy: {
		"Avoid outdoor activities",
		"Wear an N95 mask if you must go outside",
		"Stay indoors",
		"Run an air purifier",
		"See a doctor if you experience symptoms",
	},
	VeryUnhealthy: {
		"Avoid all outdoor exertion",
		"Wear an N95 mask if you must go outside",
		"Stay indoors with windows sealed",
		"Run an air purifier continuously",
		"Seek medical advice if you experience symptoms",
	},
	Hazardous: {
		"Remain indoors with windows and doors sealed",
		"Avoid all physical activity outdoors",
		"Use an air purifier on its highest setting",
		"Follow local emergency guidance",
		"Seek medical attention for any respiratory symptoms",
	},
}

// Recommendations returns health guidance for the overall air quality of
// the given PM2.5 and PM10 concentrations.
//
// Returns an empty slice when both readings are missing.
func Recommendations(pm25, pm10 float64) []string {
	overall := ClassifyOverall(pm25, pm10)
	if overall == nil {
		return nil
	}
	return recommendationsByCategory[overall.Category]
}
