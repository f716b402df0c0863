package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Point is a latitude/longitude pair. It travels on the wire as [lat, lon].
type Point struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

func (p Point) Validate() map[string]string {
	fields := map[string]string{}

	if p.Lat < -90 || p.Lat > 90 {
		fields["lat"] = "must be between -90 and 90"
	}
	if p.Lon < -180 || p.Lon > 180 {
		fields["lon"] = "must be between -180 and 180"
	}
	return fields
}

func (p Point) IsZero() bool { return p.Lat == 0 && p.Lon == 0 }

func (p Point) String() string { return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon) }

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

// UnmarshalJSON accepts the [lat, lon] pair and, for older clients, {"lat":..,"lon":..}.
func (p *Point) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = Point{}
		return nil
	}

	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*p = Point{Lat: obj.Lat, Lon: obj.Lon}
		return nil
	}

	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("location: expected [lat, lon], got %d values", len(pair))
	}
	*p = Point{Lat: pair[0], Lon: pair[1]}
	return nil
}
