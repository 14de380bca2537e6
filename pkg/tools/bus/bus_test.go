package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("SGT", 8*3600))

func TestFormatArrival(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "No arrival time available"},
		{"2025-03-01T08:59:00+08:00", "Arrived"},
		{"2025-03-01T09:00:30+08:00", "Arriving"},
		{"2025-03-01T09:05:10+08:00", "5 min"},
		{"soon", "soon"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatArrival(tt.in, now), tt.in)
	}
}

func newArrivalServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BusArrivalv2", r.URL.Path)
		assert.Equal(t, "83139", r.URL.Query().Get("BusStopCode"))
		assert.Equal(t, "secret", r.Header.Get("AccountKey"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newArrivalAdapter(srv *httptest.Server) tools.Adapter {
	tool := NewArrivalTool(NewClient("secret", srv.URL, time.Second))
	tool.now = func() time.Time { return now }
	return tool.Adapter()
}

func TestArrivals(t *testing.T) {
	srv := newArrivalServer(t, 200, `{"BusStopCode":"83139","Services":[
		{"ServiceNo":"15","NextBus":{"EstimatedArrival":"2025-03-01T09:03:00+08:00","Load":"SEA","Type":"DD"}},
		{"ServiceNo":"150","NextBus":{"EstimatedArrival":"","Load":"LSD","Type":"XX"}}
	]}`)
	out := newArrivalAdapter(srv).Invoke(context.Background(), json.RawMessage(`{"bus_stop_code":"83139"}`))
	assert.Equal(t, "Bus Stop 83139:\n"+
		"Bus 15 (Double Deck): Arriving in 3 min, Seats Available\n"+
		"Bus 150 (XX): Arriving in No arrival time available, Limited Standing", out)
}

func TestArrivalsNoServices(t *testing.T) {
	srv := newArrivalServer(t, 200, `{"BusStopCode":"83139","Services":[]}`)
	out := newArrivalAdapter(srv).Invoke(context.Background(), json.RawMessage(`{"bus_stop_code":"83139"}`))
	assert.Equal(t, "No bus services available at this stop.", out)
}

func TestArrivalsErrors(t *testing.T) {
	srv := newArrivalServer(t, 401, `unauthorized`)
	a := newArrivalAdapter(srv)

	out := a.Invoke(context.Background(), json.RawMessage(`{"bus_stop_code":"83139"}`))
	assert.True(t, tools.IsError(out))
	assert.Contains(t, out, "401")

	out = a.Invoke(context.Background(), json.RawMessage(`{"bus_stop_code":"abc"}`))
	assert.True(t, tools.IsError(out))

	noKey := NewArrivalTool(NewClient("", srv.URL, time.Second)).Adapter()
	out = noKey.Invoke(context.Background(), json.RawMessage(`{"bus_stop_code":"83139"}`))
	assert.Contains(t, out, "no LTA DataMall API key configured")
}

const stopsCSV = `BusStopCode,RoadName,Description,Latitude,Longitude
01012,Victoria St,Hotel Grand Pacific,1.29684825487647,103.85253591654006
01013,Victoria St,St. Joseph's Ch,1.29770970610083,103.8532247463225
10009,Bt Merah Int,Bt Merah Int,1.28209043136863,103.81724996932
83139,Joo Chiat Rd,Opp Blk 27,1.3162,103.9013
`

func TestLoadStops(t *testing.T) {
	stops, err := LoadStops(strings.NewReader(stopsCSV))
	require.NoError(t, err)
	require.Len(t, stops, 4)
	assert.Equal(t, "01012", stops[0].Code)
	assert.Equal(t, "Hotel Grand Pacific", stops[0].Description)

	_, err = LoadStops(strings.NewReader("Code,Lat\n1,2\n"))
	assert.Error(t, err)

	_, err = LoadStops(strings.NewReader("BusStopCode,Description,Latitude,Longitude\n1,x,north,2\n"))
	assert.Error(t, err)
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(1.3, 103.8, 1.3, 103.8), 1e-9)
	// one degree of latitude is about 111 km
	assert.InDelta(t, 111.19, Haversine(0, 0, 1, 0), 0.01)
}

func TestNearestTool(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/bus_stops.csv", []byte(stopsCSV), 0o644))
	stops, err := LoadStopsFile(fs, "/data/bus_stops.csv")
	require.NoError(t, err)

	nearest := Nearest(stops, 1.2968, 103.8525, 2)
	require.Len(t, nearest, 2)
	assert.Equal(t, "01012", nearest[0].Code)
	assert.Equal(t, "01013", nearest[1].Code)

	a := NewNearestTool(stops).Adapter()
	assert.Equal(t, NearestName, a.Descriptor().Name)
	out := a.Invoke(context.Background(), json.RawMessage(`{"target_lat":1.2968,"target_lon":103.8525}`))
	assert.True(t, strings.HasPrefix(out, "### 🚌 Nearest Bus Stops"))
	assert.Contains(t, out, "**Top 4 closest bus stops:**")
	assert.Contains(t, out, "1. **Hotel Grand Pacific**")

	empty := NewNearestTool(nil).Adapter()
	assert.True(t, tools.IsError(empty.Invoke(context.Background(), json.RawMessage(`{"target_lat":1,"target_lon":2}`))))
}
