package form

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []report.IncidentReport
	bearers []string

	text    string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (g *fakeGenerator) GenerateText(ctx context.Context, r report.IncidentReport, bearer string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, r)
	g.bearers = append(g.bearers, bearer)
	g.mu.Unlock()

	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	return g.text, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func fillValid(f *Form) {
	f.SetName("Jo")
	f.SetPhone("1234567890")
	f.SetLocation(report.Point{Lat: 40.4, Lon: -3.7})
	_, _ = f.SetSlider(report.FieldOccurrenceDuration, 24)
	_, _ = f.SetSlider(report.FieldFrequency, 5)
	f.SetVisibleInjuries(report.InjuriesNo)
	f.ToggleContact(report.ContactEmail)
	f.SetCurrentSituation("Still at home")
	f.SetCulprit("Partner, 40s")
}

func TestSubmit_InvalidInputNeverCallsGenerator(t *testing.T) {
	tests := map[string]func(*Form){
		"empty form":      func(*Form) {},
		"short name":      func(f *Form) { fillValid(f); f.SetName("J") },
		"short phone":     func(f *Form) { fillValid(f); f.SetPhone("123") },
		"no contact":      func(f *Form) { fillValid(f); f.ToggleContact(report.ContactEmail) },
		"short culprit":   func(f *Form) { fillValid(f); f.SetCulprit("x") },
		"short situation": func(f *Form) { fillValid(f); f.SetCurrentSituation("ok") },
		"no injuries":     func(f *Form) { fillValid(f); f.SetVisibleInjuries("") },
	}

	for name, fill := range tests {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{text: "unused"}
			f := New(context.Background(), gen, nil)
			fill(f)

			out, err := f.Submit(context.Background())

			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindInvalid))
			assert.Equal(t, StatusIdle, out.Status)
			assert.NotEmpty(t, out.Fields)
			assert.Equal(t, out.Fields, f.FieldErrors())
			assert.Zero(t, gen.callCount())
		})
	}
}

func TestSubmit_ValidInputPostsOnceAndForwardsText(t *testing.T) {
	gen := &fakeGenerator{text: "hello"}
	var got []string
	f := New(context.Background(), gen, nil, WithOnText(func(text string) { got = append(got, text) }))
	fillValid(f)

	out, err := f.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, []string{"hello"}, got)
	assert.Equal(t, "hello", f.Text())
	assert.Empty(t, f.FieldErrors())
	require.Equal(t, 1, gen.callCount())

	b, err := json.Marshal(gen.calls[0])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	want := report.Fields()
	sort.Strings(want)
	assert.Equal(t, want, keys)
	assert.Equal(t, "Jo", m["name"])
	assert.Equal(t, "24", m["occurrenceDuration"])
}

func TestSubmit_SecondSubmitWhilePendingIsRefused(t *testing.T) {
	gen := &fakeGenerator{
		text:    "hello",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := New(context.Background(), gen, nil)
	fillValid(f)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	<-gen.entered
	assert.True(t, f.Pending())

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionPending)

	close(gen.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gen.callCount())
	assert.False(t, f.Pending())
}

func TestSubmit_TransportFailureIsSilentByDefault(t *testing.T) {
	cause := errs.E(errs.KindUnavailable, "TRANSPORT_FAILED", "client.post", "request failed", nil, errors.New("connection refused"))
	gen := &fakeGenerator{err: cause}
	called := false
	f := New(context.Background(), gen, nil, WithOnText(func(string) { called = true }))
	fillValid(f)

	out, err := f.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, StatusFailed, f.Status())
	assert.ErrorIs(t, f.LastError(), cause)
	assert.False(t, called)
	assert.Equal(t, 1, gen.callCount())
}

func TestSubmit_TransportFailureLoudPolicy(t *testing.T) {
	gen := &fakeGenerator{err: errs.E(errs.KindUnavailable, "TRANSPORT_FAILED", "client.post", "request failed", nil, nil)}
	f := New(context.Background(), gen, nil, WithFailurePolicy(FailLoudly))
	fillValid(f)

	out, err := f.Submit(context.Background())

	assert.True(t, errs.IsKind(err, errs.KindUnavailable))
	assert.Equal(t, StatusFailed, out.Status)
}

func TestSubmit_ServerFieldErrorsShownInline(t *testing.T) {
	gen := &fakeGenerator{err: errs.Invalid("REPORT_INVALID", "client.post", map[string]string{"phone": "rejected by server"})}
	f := New(context.Background(), gen, nil)
	fillValid(f)

	out, err := f.Submit(context.Background())

	assert.True(t, errs.IsKind(err, errs.KindInvalid))
	assert.Equal(t, "rejected by server", out.Fields["phone"])
	assert.Equal(t, StatusIdle, f.Status())
}

func TestSubmit_RetryAfterFailureAllowed(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	f := New(context.Background(), gen, nil)
	fillValid(f)

	_, _ = f.Submit(context.Background())
	gen.err, gen.text = nil, "second"

	out, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", out.Text)
	assert.NoError(t, f.LastError())
}

func TestSubmit_UsesInjectedUser(t *testing.T) {
	gen := &fakeGenerator{text: "hi"}
	user := auth.Fixed(auth.User{ID: "user_1", Name: "Jordan", Token: "tok"})

	f := New(context.Background(), gen, user)
	assert.Equal(t, "Jordan", f.Draft().Name)

	fillValid(f)
	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, gen.bearers)
}

func TestSubmit_SnapshotIsolatedFromLaterEdits(t *testing.T) {
	gen := &fakeGenerator{
		text:    "hello",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := New(context.Background(), gen, nil)
	fillValid(f)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.Submit(context.Background())
	}()

	<-gen.entered
	f.SetName("Changed")
	f.ToggleContact(report.ContactPhone)
	close(gen.release)
	<-done

	assert.Equal(t, "Jo", gen.calls[0].Name)
	assert.Equal(t, report.ContactSet{report.ContactEmail}, gen.calls[0].PreferredContact)
}

func TestToggleContact_KeepsOtherMembers(t *testing.T) {
	f := New(context.Background(), &fakeGenerator{}, nil)

	f.ToggleContact(report.ContactPhone)
	f.ToggleContact(report.ContactInPerson)
	f.ToggleContact(report.ContactPhone)
	f.ToggleContact(report.ContactEmail)

	got := f.Draft().PreferredContact
	assert.True(t, got.Equal(report.ContactSet{report.ContactInPerson, report.ContactEmail}))
	assert.Len(t, got, 2)
}

func TestSetSlider_ClampsToRange(t *testing.T) {
	f := New(context.Background(), &fakeGenerator{}, nil)

	for _, v := range []int{-100, 0, 1, 37, 100, 101, 5000} {
		stored, err := f.SetSlider(report.FieldFrequency, v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stored, report.SliderMin)
		assert.LessOrEqual(t, stored, report.SliderMax)
		assert.Equal(t, stored, f.Slider(report.FieldFrequency))
	}

	_, err := f.SetSlider(report.FieldName, 3)
	assert.True(t, errs.IsKind(err, errs.KindInvalid))
}

func TestSlider_NeverReportsOutOfRangeLabels(t *testing.T) {
	f := New(context.Background(), &fakeGenerator{}, nil)
	f.Load(report.IncidentReport{OccurrenceDuration: "250", Frequency: "often"})

	assert.Equal(t, report.SliderMax, f.Slider(report.FieldOccurrenceDuration))
	assert.Equal(t, report.SliderMin, f.Slider(report.FieldFrequency))
}

func TestNew_DefaultsAreSliderMinimum(t *testing.T) {
	f := New(context.Background(), &fakeGenerator{}, nil)

	d := f.Draft()
	assert.Equal(t, "1", d.OccurrenceDuration)
	assert.Equal(t, "1", d.Frequency)
	assert.True(t, d.Location.IsZero())
	assert.Equal(t, StatusIdle, f.Status())
	assert.Empty(t, f.Validate()[report.FieldOccurrenceDuration])
}

func TestSubmit_ContextDeadlineReachesGenerator(t *testing.T) {
	var gotDeadline bool
	gen := generatorFunc(func(ctx context.Context, r report.IncidentReport, bearer string) (string, error) {
		_, gotDeadline = ctx.Deadline()
		return "ok", nil
	})
	f := New(context.Background(), gen, nil)
	fillValid(f)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, err := f.Submit(ctx)

	require.NoError(t, err)
	assert.True(t, gotDeadline)
}

type generatorFunc func(ctx context.Context, r report.IncidentReport, bearer string) (string, error)

func (g generatorFunc) GenerateText(ctx context.Context, r report.IncidentReport, bearer string) (string, error) {
	return g(ctx, r, bearer)
}
