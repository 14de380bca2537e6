package bus

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const NearestName = "nearest_bus_stop_query"

const earthRadiusKm = 6371.0

type Stop struct {
	Code        string
	Description string
	Latitude    float64
	Longitude   float64
}

type StopDistance struct {
	Stop
	DistanceKm float64
}

// LoadStops reads a CSV with the columns BusStopCode, Description, Latitude
// and Longitude (in any order, other columns are ignored).
func LoadStops(r io.Reader) ([]Stop, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range []string{"BusStopCode", "Description", "Latitude", "Longitude"} {
		if _, ok := cols[c]; !ok {
			return nil, errors.Errorf("missing column %s", c)
		}
	}

	var ret []Stop
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		lat, err := strconv.ParseFloat(rec[cols["Latitude"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: latitude", line)
		}
		lon, err := strconv.ParseFloat(rec[cols["Longitude"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: longitude", line)
		}
		ret = append(ret, Stop{
			Code:        rec[cols["BusStopCode"]],
			Description: rec[cols["Description"]],
			Latitude:    lat,
			Longitude:   lon,
		})
	}
	return ret, nil
}

func LoadStopsFile(fs afero.Fs, path string) ([]Stop, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	return LoadStops(f)
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dlat := (lat2 - lat1) * rad
	dlon := (lon2 - lon1) * rad
	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Pow(math.Sin(dlon/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Nearest returns the n stops closest to lat/lon, closest first.
func Nearest(stops []Stop, lat, lon float64, n int) []StopDistance {
	ret := make([]StopDistance, 0, len(stops))
	for _, s := range stops {
		ret = append(ret, StopDistance{Stop: s, DistanceKm: Haversine(lat, lon, s.Latitude, s.Longitude)})
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].DistanceKm < ret[j].DistanceKm })
	if n < len(ret) {
		ret = ret[:n]
	}
	return ret
}

type NearestInput struct {
	TargetLat float64 `json:"target_lat" jsonschema:"required,description=Latitude of the query location,minimum=-90,maximum=90"`
	TargetLon float64 `json:"target_lon" jsonschema:"required,description=Longitude of the query location,minimum=-180,maximum=180"`
}

type NearestTool struct {
	stops []Stop
	count int
}

func NewNearestTool(stops []Stop) *NearestTool {
	return &NearestTool{stops: stops, count: 5}
}

func (n *NearestTool) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(NearestName,
		"Query the nearest bus stops to a latitude and longitude. "+
			"Returns bus stop codes, descriptions and distances in km.",
		n.Run)
}

func (n *NearestTool) Run(_ context.Context, in NearestInput) (string, error) {
	if len(n.stops) == 0 {
		return "", errors.New("no bus stop data loaded")
	}
	nearest := Nearest(n.stops, in.TargetLat, in.TargetLon, n.count)

	var sb strings.Builder
	sb.WriteString("### 🚌 Nearest Bus Stops\n")
	fmt.Fprintf(&sb, "**Reference Point:**  \nLatitude: `%v`  \nLongitude: `%v`  \n\n", in.TargetLat, in.TargetLon)
	fmt.Fprintf(&sb, "**Top %d closest bus stops:**\n\n", len(nearest))
	for i, s := range nearest {
		fmt.Fprintf(&sb, "%d. **%s**\n   - 🆔 Bus Stop Code: `%s`\n   - 📏 Distance: `%.3f km`\n\n",
			i+1, s.Description, s.Code, s.DistanceKm)
	}
	return sb.String(), nil
}
