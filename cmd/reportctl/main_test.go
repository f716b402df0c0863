package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m1ll3r1337/incident-report-service/internal/client"
	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/generation"
)

type apiStub struct {
	mu       sync.Mutex
	reports  []report.IncidentReport
	bearers  []string
	images   int
	textResp string
	status   int
}

func newAPIStub(t *testing.T) (*apiStub, *httptest.Server) {
	t.Helper()
	s := &apiStub{textResp: "hello", status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc(client.TextPath, func(w http.ResponseWriter, r *http.Request) {
		var rep report.IncidentReport
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.reports = append(s.reports, rep)
		s.bearers = append(s.bearers, r.Header.Get("Authorization"))
		status := s.status
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(generation.TextResponse{Text: s.textResp})
	})
	mux.HandleFunc(client.ImagePath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.images++
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(generation.ImageResponse{Images: []string{"u1", "u2", "u3"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *apiStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

const reportYAML = `name: Jo
phone: "1234567890"
location:
  lat: 40.4168
  lon: -3.7038
occurrenceDuration: "24"
frequency: "5"
visibleInjuries: "No"
preferredContact: [Email, Phone]
currentSituation: Still at home
culprit: Partner, 40s
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, driver PromptDriver, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr, driver)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSubmit_FromFile(t *testing.T) {
	stub, srv := newAPIStub(t)

	out, _, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, reportYAML))

	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
	require.Equal(t, 1, stub.count())
	assert.Equal(t, "Jo", stub.reports[0].Name)
	assert.Equal(t, report.Point{Lat: 40.4168, Lon: -3.7038}, stub.reports[0].Location)
	assert.True(t, stub.reports[0].PreferredContact.Equal(report.ContactSet{report.ContactPhone, report.ContactEmail}))
	assert.Empty(t, stub.bearers[0])
}

func TestSubmit_FlagsOverrideLocationAndSendToken(t *testing.T) {
	stub, srv := newAPIStub(t)

	_, _, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, reportYAML),
		"--lat", "1.5", "--lon", "2.5", "--token", "abc")

	require.NoError(t, err)
	require.Equal(t, 1, stub.count())
	assert.Equal(t, report.Point{Lat: 1.5, Lon: 2.5}, stub.reports[0].Location)
	assert.Equal(t, "Bearer abc", stub.bearers[0])
}

func TestSubmit_InvalidReportNeverCallsAPI(t *testing.T) {
	stub, srv := newAPIStub(t)

	_, stderr, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, "name: J\nphone: \"123\"\n"))

	assert.ErrorIs(t, err, errReportInvalid)
	assert.Contains(t, stderr, "name: Name must be at least 2 characters.")
	assert.Contains(t, stderr, "phone: Phone number must be at least 10 digits.")
	assert.Zero(t, stub.count())
}

func TestSubmit_UnknownYAMLField(t *testing.T) {
	_, srv := newAPIStub(t)

	_, _, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, "nmae: Jo\n"))

	assert.Error(t, err)
}

func TestSubmit_ServerFailure(t *testing.T) {
	stub, srv := newAPIStub(t)
	stub.status = http.StatusBadGateway

	out, _, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, reportYAML))
	assert.NoError(t, err)
	assert.Empty(t, out)

	_, _, err = execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, reportYAML), "--surface-errors")
	assert.Error(t, err)
}

func TestSubmit_Locate(t *testing.T) {
	stub, srv := newAPIStub(t)
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","lat":48.85,"lon":2.35}`))
	}))
	defer geoSrv.Close()

	yamlNoLoc := "name: Jo\nphone: \"1234567890\"\nvisibleInjuries: \"Yes\"\npreferredContact: [Phone]\ncurrentSituation: Still at home\nculprit: Partner, 40s\n"
	_, _, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, yamlNoLoc),
		"--locate", "--geo-endpoint", geoSrv.URL)

	require.NoError(t, err)
	require.Equal(t, 1, stub.count())
	assert.Equal(t, report.Point{Lat: 48.85, Lon: 2.35}, stub.reports[0].Location)
	assert.Equal(t, "1", stub.reports[0].OccurrenceDuration)
}

func TestSubmit_LocateAndLatAreExclusive(t *testing.T) {
	_, srv := newAPIStub(t)

	_, _, err := execute(t, nil, "submit", "--endpoint", srv.URL, "-f", writeFile(t, reportYAML), "--locate", "--lat", "1", "--lon", "2")

	assert.Error(t, err)
}

// scriptedDriver answers prompts from a fixed script keyed by prompt message.
type scriptedDriver struct {
	inputs   map[string]string
	selects  map[string]int
	multi    map[string][]int
	messages []string
}

func (d *scriptedDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	d.messages = append(d.messages, cfg.Message)
	if v, ok := d.inputs[cfg.Message]; ok {
		return v, nil
	}
	return cfg.Default, nil
}

func (d *scriptedDriver) TextArea(ctx context.Context, cfg InputConfig) (string, error) {
	return d.Input(ctx, cfg)
}

func (d *scriptedDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	d.messages = append(d.messages, cfg.Message)
	return d.selects[cfg.Message], nil
}

func (d *scriptedDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	d.messages = append(d.messages, cfg.Message)
	return d.multi[cfg.Message], nil
}

func TestSubmit_Interactive(t *testing.T) {
	stub, srv := newAPIStub(t)
	d := &scriptedDriver{
		inputs: map[string]string{
			"Name":                "Jo",
			"Phone":               "1234567890",
			"Location (lat, lon)": "10, 20",
			"How long has this been happening? (1-100 or a label)": "150",
			"How often do incidents occur? (1-100 or a label)":     "weekly",
			"Current situation":   "Still at home",
			"Culprit description": "Partner, 40s",
		},
		selects: map[string]int{"Visible injuries": 0},
		multi:   map[string][]int{"Preferred contact method": {1, 3}},
	}

	out, _, err := execute(t, d, "submit", "--endpoint", srv.URL, "--interactive")

	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
	require.Equal(t, 1, stub.count())
	got := stub.reports[0]
	assert.Equal(t, report.Point{Lat: 10, Lon: 20}, got.Location)
	assert.Equal(t, "100", got.OccurrenceDuration)
	assert.Equal(t, "weekly", got.Frequency)
	assert.Equal(t, report.InjuriesYes, got.VisibleInjuries)
	assert.True(t, got.PreferredContact.Equal(report.ContactSet{report.ContactEmail, report.ContactInPerson}))
	assert.Len(t, d.messages, 9)
}

func TestSubmit_RequiresInput(t *testing.T) {
	_, _, err := execute(t, nil, "submit")
	assert.Error(t, err)
}

func TestImages(t *testing.T) {
	stub, srv := newAPIStub(t)

	out, _, err := execute(t, nil, "images", "--endpoint", srv.URL, "--text", "hello", "--prompt", "a calm room")

	require.NoError(t, err)
	assert.Equal(t, "u1\nu2\nu3\n", out)
	assert.Equal(t, 1, stub.images)
}
