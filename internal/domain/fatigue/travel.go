package fatigue

import "math"

const earthRadiusMiles = 3958.8

// Travel describes the leg between a team's previous game site and the
// current one. Known distinguishes "we measured the distance" from "one of
// the cities is outside the coordinate table". The two must not be
// conflated: unknown travel is charged a default load, same-city is free.
type Travel struct {
	Miles float64
	Known bool
	Load  int
}

// HaversineMiles is the great-circle distance between two coordinates,
// rounded to one decimal.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)

	d := 2 * earthRadiusMiles * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(d*10) / 10
}

// TravelBetween resolves the travel leg between two venue cities.
//
// No previous city (season opener) or an identical city yields load 0.
// A city missing from the coordinate table yields the unknown default:
// load 1 with Known=false, because a team that changed buildings did
// travel even if we cannot say how far.
func (c Config) TravelBetween(prevCity, currentCity string) Travel {
	if prevCity == "" || prevCity == currentCity {
		return Travel{Load: 0, Known: true}
	}

	prev, okPrev := cityCoords[prevCity]
	cur, okCur := cityCoords[currentCity]
	if !okPrev || !okCur {
		return Travel{Load: c.UnknownTravelLoad, Known: false}
	}

	miles := HaversineMiles(prev[0], prev[1], cur[0], cur[1])
	return Travel{Miles: miles, Known: true, Load: c.loadForMiles(miles)}
}

func (c Config) loadForMiles(miles float64) int {
	switch {
	case miles == 0:
		return 0
	case miles < c.TravelShortMiles:
		return 1
	case miles < c.TravelMediumMiles:
		return 2
	default:
		return 3
	}
}
