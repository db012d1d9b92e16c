package weather

// DefaultConditionCode is used when no reading is available (clear sky).
const DefaultConditionCode = 800

const (
	fallbackIcon = "storm"
	dayPrefix    = "day-"
	iconClass    = "wi wi-"
)

// conditionIcons maps OpenWeatherMap condition codes to weather-icons names.
var conditionIcons = map[int]string{
	// Thunderstorm
	200: "storm-showers",
	201: "storm-showers",
	202: "storm-showers",
	210: "storm-showers",
	211: "thunderstorm",
	212: "thunderstorm",
	221: "thunderstorm",
	230: "storm-showers",
	231: "storm-showers",
	232: "storm-showers",

	// Drizzle
	300: "sprinkle",
	301: "sprinkle",
	302: "sprinkle",
	310: "sprinkle",
	311: "sprinkle",
	312: "sprinkle",
	313: "sprinkle",
	314: "sprinkle",
	321: "sprinkle",

	// Rain
	500: "rain",
	501: "rain",
	502: "rain",
	503: "rain",
	504: "rain",
	511: "rain-mix",
	520: "showers",
	521: "showers",
	522: "showers",
	531: "storm-showers",

	// Snow
	600: "snow",
	601: "snow",
	602: "sleet",
	611: "rain-mix",
	612: "rain-mix",
	613: "rain-mix",
	615: "rain-mix",
	616: "rain-mix",
	620: "rain-mix",
	621: "snow",
	622: "snow",

	// Atmosphere
	701: "sprinkle",
	711: "smoke",
	721: "day-haze",
	731: "cloudy-gusts",
	741: "fog",
	751: "cloudy-gusts",
	761: "dust",
	762: "smog",
	771: "day-windy",
	781: "tornado",

	// Clear and clouds
	800: "sunny",
	801: "cloudy",
	802: "cloudy",
	803: "cloudy",
	804: "cloudy",

	// Extreme and additional
	900: "tornado",
	901: "hurricane",
	902: "hurricane",
	903: "snowflake-cold",
	904: "hot",
	905: "windy",
	906: "hail",
	951: "sunny",
	952: "cloudy-gusts",
	953: "cloudy-gusts",
	954: "cloudy-gusts",
	955: "cloudy-gusts",
	956: "cloudy-gusts",
	957: "cloudy-gusts",
	958: "cloudy-gusts",
	959: "cloudy-gusts",
	960: "thunderstorm",
	961: "thunderstorm",
	962: "cloudy-gusts",
}

// ResolveIcon maps a condition code to a weather-icons identifier.
// Atmospheric (7xx) and extreme (9xx) codes have no time-of-day variant; every
// other code is rendered with the day variant. Unknown codes resolve to the
// storm icon.
func ResolveIcon(code int) string {
	icon, ok := conditionIcons[code]
	if !ok {
		icon = fallbackIcon
	}

	if hasDayVariant(code) {
		// Always day: local sunrise/sunset is not tracked.
		return dayPrefix + icon
	}
	return icon
}

// IconClass returns the CSS class list for a condition code.
func IconClass(code int) string {
	return iconClass + ResolveIcon(code)
}

// IconFor resolves the icon for a snapshot, or for DefaultConditionCode when
// there is none.
func IconFor(s *Snapshot) string {
	if s == nil {
		return ResolveIcon(DefaultConditionCode)
	}
	return ResolveIcon(s.ConditionCode)
}

func hasDayVariant(code int) bool {
	return !(code >= 700 && code <= 799) && !(code >= 900 && code <= 999)
}
