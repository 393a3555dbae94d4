package fatigue

// cityCoords maps NBA market cities to arena-district centroids. The table
// is intentionally small and static; unknown cities are reported as an
// explicit unknown-travel state, never as zero travel.
var cityCoords = map[string][2]float64{
	"Atlanta":        {33.7573, -84.3963},
	"Boston":         {42.3662, -71.0621},
	"Brooklyn":       {40.6826, -73.9754},
	"Charlotte":      {35.2251, -80.8392},
	"Chicago":        {41.8807, -87.6742},
	"Cleveland":      {41.4965, -81.6882},
	"Dallas":         {32.7905, -96.8103},
	"Denver":         {39.7487, -105.0077},
	"Detroit":        {42.3411, -83.0553},
	"Houston":        {29.7508, -95.3621},
	"Indianapolis":   {39.7639, -86.1555},
	"Los Angeles":    {34.0430, -118.2673},
	"Memphis":        {35.1382, -90.0506},
	"Miami":          {25.7814, -80.1870},
	"Milwaukee":      {43.0451, -87.9172},
	"Minneapolis":    {44.9795, -93.2760},
	"New Orleans":    {29.9490, -90.0821},
	"New York":       {40.7505, -73.9934},
	"Oklahoma City":  {35.4634, -97.5151},
	"Orlando":        {28.5392, -81.3839},
	"Philadelphia":   {39.9012, -75.1720},
	"Phoenix":        {33.4457, -112.0712},
	"Portland":       {45.5316, -122.6668},
	"Sacramento":     {38.5802, -121.4997},
	"Salt Lake City": {40.7683, -111.9011},
	"San Antonio":    {29.4269, -98.4375},
	"San Francisco":  {37.7680, -122.3877},
	"Toronto":        {43.6435, -79.3791},
	"Washington":     {38.8981, -77.0209},
}

// KnownCity reports whether the travel table has coordinates for city.
func KnownCity(city string) bool {
	_, ok := cityCoords[city]
	return ok
}
