package bus

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
)

const ArrivalName = "bus_arrival_query"

var loads = map[string]string{
	"SEA": "Seats Available",
	"SDA": "Standing Available",
	"LSD": "Limited Standing",
}

var busTypes = map[string]string{
	"SD": "Single Deck",
	"DD": "Double Deck",
	"BD": "Bendy",
}

type ArrivalInput struct {
	BusStopCode string `json:"bus_stop_code" jsonschema:"required,description=The 5-digit bus stop code to query"`
	ServiceNo   string `json:"service_no,omitempty" jsonschema:"description=Only show this bus service"`
}

type ArrivalTool struct {
	client *Client
	now    func() time.Time
}

func NewArrivalTool(client *Client) *ArrivalTool {
	return &ArrivalTool{client: client, now: time.Now}
}

func (a *ArrivalTool) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(ArrivalName,
		"Query bus arrival information for a specific bus stop in Singapore. "+
			"Returns arrival times, bus types, and passenger load.",
		a.Run)
}

var stopCodeRe = regexp.MustCompile(`^\d{5}$`)

func (a *ArrivalTool) Run(ctx context.Context, in ArrivalInput) (string, error) {
	code := strings.TrimSpace(in.BusStopCode)
	if !stopCodeRe.MatchString(code) {
		return "", errors.Errorf("bus stop code must have 5 digits, got %q", in.BusStopCode)
	}
	arrivals, err := a.client.Arrivals(ctx, code, in.ServiceNo)
	if err != nil {
		return "", errors.Wrap(err, "could not query bus information")
	}
	if len(arrivals.Services) == 0 {
		return "No bus services available at this stop.", nil
	}

	lines := []string{fmt.Sprintf("Bus Stop %s:", code)}
	for _, s := range arrivals.Services {
		lines = append(lines, fmt.Sprintf("Bus %s (%s): Arriving in %s, %s",
			s.ServiceNo,
			lookup(busTypes, s.NextBus.Type),
			FormatArrival(s.NextBus.EstimatedArrival, a.now()),
			lookup(loads, s.NextBus.Load),
		))
	}
	return strings.Join(lines, "\n"), nil
}

func lookup(m map[string]string, code string) string {
	if v, ok := m[code]; ok {
		return v
	}
	return code
}

// FormatArrival renders an RFC 3339 arrival estimate relative to now.
func FormatArrival(estimated string, now time.Time) string {
	if estimated == "" {
		return "No arrival time available"
	}
	t, err := time.Parse(time.RFC3339, estimated)
	if err != nil {
		return estimated
	}
	minutes := t.Sub(now).Minutes()
	switch {
	case minutes < 0:
		return "Arrived"
	case minutes < 1:
		return "Arriving"
	default:
		return fmt.Sprintf("%d min", int(minutes))
	}
}
