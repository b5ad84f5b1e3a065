/*
Copyright © 2026 the Drift authors.
This file is part of Drift.

Drift is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Drift is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Drift.  If not, see <http://www.gnu.org/licenses/>.
*/

package drift

import (
	"errors"
	"io/ioutil"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

var testStart = time.Date(2011, 3, 11, 0, 0, 0, 0, time.UTC)

// constVelocity moves every element at a fixed velocity.
type constVelocity struct {
	u, v     float64
	maxSpeed float64 // registered as a default if > 0
}

func (constVelocity) ElementType() ElementType { return PassiveTracer{} }

func (constVelocity) RequiredVariables() RequiredVariables { return RequiredVariables{} }

func (m constVelocity) SetDefaults(d Defaulter) error {
	if m.maxSpeed > 0 {
		return d.SetDefault(MaxSpeedOption, m.maxSpeed)
	}
	return nil
}

func (m constVelocity) Update(c StepContext) {
	n := c.Env().Len()
	u, v := make([]float64, n), make([]float64, n)
	for i := range u {
		u[i], v[i] = m.u, m.v
	}
	c.UpdatePositions(u, v)
}

// envVelocity moves elements with the sampled "u" and "v" variables.
type envVelocity struct{}

func (envVelocity) ElementType() ElementType { return PassiveTracer{} }

func (envVelocity) RequiredVariables() RequiredVariables {
	return RequiredVariables{"u": {Fallback: 0}, "v": {Fallback: -1}}
}

func (envVelocity) SetDefaults(d Defaulter) error { return d.SetDefault(MaxSpeedOption, 100) }

func (envVelocity) Update(c StepContext) {
	c.UpdatePositions(c.Env().Get("u"), c.Env().Get("v"))
}

// badModel violates the position update contract in different ways.
type badModel struct{ calls, extra int }

func (badModel) ElementType() ElementType             { return PassiveTracer{} }
func (badModel) RequiredVariables() RequiredVariables { return nil }
func (badModel) SetDefaults(d Defaulter) error        { return nil }
func (m badModel) Update(c StepContext) {
	n := c.Env().Len() + m.extra
	for i := 0; i < m.calls; i++ {
		c.UpdatePositions(make([]float64, n), make([]float64, n))
	}
}

// fakeReader covers positions east of lonMin.
type fakeReader struct {
	name         string
	vars         map[string]float64
	lonMin       float64
	err          error
	lengthOffset int // added to the number of returned values
}

func (r *fakeReader) Name() string { return r.name }

func (r *fakeReader) Provides(v string) bool {
	_, ok := r.vars[v]
	return ok
}

func (r *fakeReader) Sample(v string, t time.Time, lon, lat, z []float64) ([]float64, []bool, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	n := len(lon) + r.lengthOffset
	vals, cov := make([]float64, n), make([]bool, n)
	for i := 0; i < n && i < len(lon); i++ {
		if lon[i] >= r.lonMin {
			vals[i], cov[i] = r.vars[v], true
		}
	}
	return vals, cov, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// newTestSim returns a simulation with elements at the given longitudes
// along the equator.
func newTestSim(t *testing.T, m Model, options map[string]interface{}, lons ...float64) *Simulation {
	s, err := NewSimulation(m, options)
	if err != nil {
		t.Fatal(err)
	}
	s.Log = quietLogger()
	s.StartTime, s.Time, s.Dt = testStart, testStart, time.Hour
	for _, lon := range lons {
		s.Elements.add(lon, 0, 0, nil)
	}
	return s
}

func different(a, b, tolerance float64) bool {
	c := math.Abs(a - b)
	return c/math.Max(math.Abs(a), math.Abs(b)) > tolerance && c > 1e-12
}

func TestNewSimulationConfig(t *testing.T) {
	tests := []struct {
		name    string
		m       Model
		options map[string]interface{}
		want    Config
		err     string
	}{
		{
			name: "engine defaults",
			m:    constVelocity{},
			want: Config{MaxSpeed: 1},
		},
		{
			name: "model default",
			m:    constVelocity{maxSpeed: 12},
			want: Config{MaxSpeed: 12},
		},
		{
			name:    "user overrides model",
			m:       constVelocity{maxSpeed: 12},
			options: map[string]interface{}{MaxSpeedOption: "5", HorizontalDiffusivityOption: 10, SeedOption: 3},
			want:    Config{MaxSpeed: 5, HorizontalDiffusivity: 10, Seed: 3},
		},
		{
			name:    "unknown option",
			m:       constVelocity{},
			options: map[string]interface{}{"drift:vertical_mixing": false},
			err:     "unknown configuration option",
		},
		{
			name:    "invalid value",
			m:       constVelocity{},
			options: map[string]interface{}{MaxSpeedOption: "fast"},
			err:     "drift:max_speed",
		},
		{
			name:    "invalid range",
			m:       constVelocity{},
			options: map[string]interface{}{HorizontalDiffusivityOption: -1},
			err:     "should be >=0",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := NewSimulation(test.m, test.options)
			if test.err != "" {
				if err == nil || !strings.Contains(err.Error(), test.err) {
					t.Fatalf("error should contain %q but is %v", test.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if s.Config != test.want {
				t.Errorf("have %+v, want %+v", s.Config, test.want)
			}
		})
	}
}

func TestConfigGet(t *testing.T) {
	c := DefaultConfig()
	for _, name := range ConfigOptions() {
		if _, err := c.Get(name); err != nil {
			t.Error(err)
		}
	}
	if _, err := c.Get("x"); err == nil {
		t.Error("expected an error for an unknown option")
	}
}

func TestSampleEnvironment(t *testing.T) {
	s := newTestSim(t, envVelocity{}, nil, 0, 10, 20, 30)
	s.Readers = []Reader{
		&fakeReader{name: "broken", vars: map[string]float64{"u": 100}, err: errors.New("no file")},
		&fakeReader{name: "short", vars: map[string]float64{"u": 200}, lengthOffset: -1},
		&fakeReader{name: "east", vars: map[string]float64{"u": 1}, lonMin: 25},
		&fakeReader{name: "middle", vars: map[string]float64{"u": 2, "v": 3}, lonMin: 5},
	}
	env := s.SampleEnvironment(s.Model.RequiredVariables(), []int{3, 2, 1, 0})
	if env.Len() != 4 {
		t.Fatalf("length %d", env.Len())
	}
	wantU := []float64{1, 2, 2, 0}  // first covering reader wins, then fallback
	wantV := []float64{3, 3, 3, -1} // fallback for the uncovered element
	for i := range wantU {
		if env.Get("u")[i] != wantU[i] {
			t.Errorf("u[%d]: have %g, want %g", i, env.Get("u")[i], wantU[i])
		}
		if env.Get("v")[i] != wantV[i] {
			t.Errorf("v[%d]: have %g, want %g", i, env.Get("v")[i], wantV[i])
		}
	}
	if env.Get("w") != nil {
		t.Error("unrequested variable should be nil")
	}
}

func TestSampleEnvironmentEmpty(t *testing.T) {
	s := newTestSim(t, envVelocity{}, nil)
	s.Readers = []Reader{&fakeReader{name: "r", vars: map[string]float64{"u": 1}}}
	env := s.SampleEnvironment(s.Model.RequiredVariables(), nil)
	if env.Len() != 0 || len(env.Get("u")) != 0 || len(env.Get("v")) != 0 {
		t.Errorf("expected an empty sample but have %d rows", env.Len())
	}
}

func TestStepEquator(t *testing.T) {
	s := newTestSim(t, constVelocity{u: 1, maxSpeed: 12}, nil, 140)
	if err := Step()(s); err != nil {
		t.Fatal(err)
	}
	want := 140 + 3600/EarthRadius*180/math.Pi
	if different(s.Elements.Lon[0], want, 1e-12) {
		t.Errorf("lon: have %g, want %g", s.Elements.Lon[0], want)
	}
	if s.Elements.Lat[0] != 0 {
		t.Errorf("lat: have %g, want 0", s.Elements.Lat[0])
	}
	if got := Distance(140, 0, s.Elements.Lon[0], 0); different(got, 3600, 1e-9) {
		t.Errorf("distance: have %g m, want 3600 m", got)
	}
	if !s.Time.Equal(testStart.Add(time.Hour)) || s.Steps != 1 {
		t.Errorf("clock: time %v, steps %d", s.Time, s.Steps)
	}
}

func TestStepMaxSpeed(t *testing.T) {
	s := newTestSim(t, constVelocity{u: 30, v: 40}, map[string]interface{}{MaxSpeedOption: 5}, 0)
	if err := Step()(s); err != nil {
		t.Fatal(err)
	}
	// speed 50 is clipped to 5 in the same direction.
	got := Distance(0, 0, s.Elements.Lon[0], s.Elements.Lat[0])
	if different(got, 5*3600, 1e-4) {
		t.Errorf("distance: have %g m, want %g m", got, 5*3600.)
	}
	if ratio := s.Elements.Lat[0] / s.Elements.Lon[0]; different(ratio, 4./3, 1e-6) {
		t.Errorf("direction changed: lat/lon = %g", ratio)
	}
}

func TestStepContract(t *testing.T) {
	tests := []struct {
		name string
		m    badModel
		err  string
	}{
		{name: "no update", m: badModel{calls: 0}, err: "did not update positions"},
		{name: "two updates", m: badModel{calls: 2}, err: "2 times"},
		{name: "wrong length", m: badModel{calls: 1, extra: 1}, err: "for 2 elements"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newTestSim(t, test.m, nil, 0, 1)
			err := Step()(s)
			if err == nil || !strings.Contains(err.Error(), test.err) {
				t.Errorf("error should contain %q but is %v", test.err, err)
			}
		})
	}
}

func TestStepInactive(t *testing.T) {
	s := newTestSim(t, constVelocity{u: 1}, nil, 0, 0)
	s.Elements.Status[0] = Stranded
	if err := Step()(s); err != nil {
		t.Fatal(err)
	}
	if s.Elements.Lon[0] != 0 {
		t.Error("stranded element moved")
	}
	if s.Elements.Lon[1] == 0 {
		t.Error("active element did not move")
	}
}

func TestDiffusion(t *testing.T) {
	run := func() []float64 {
		s := newTestSim(t, constVelocity{}, map[string]interface{}{HorizontalDiffusivityOption: 10, SeedOption: 7}, 0, 0, 0)
		for i := 0; i < 3; i++ {
			if err := Step()(s); err != nil {
				t.Fatal(err)
			}
		}
		return append(append([]float64{}, s.Elements.Lon...), s.Elements.Lat...)
	}
	a, b := run(), run()
	var moved bool
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("diffusion is not reproducible: %v != %v", a, b)
			break
		}
		if a[i] != 0 {
			moved = true
		}
	}
	if !moved {
		t.Error("elements did not diffuse")
	}
}

func TestRunLifecycle(t *testing.T) {
	s, err := NewSimulation(constVelocity{u: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Log = quietLogger()
	var periodic int
	c := make(chan *SimulationStatus, 10)
	s.InitFuncs = []DomainManipulator{
		SetTime(testStart, 15*time.Minute),
		SeedElements(SeedConfig{Lon: 141, Lat: 37.5, Radius: 1000, Number: 5}),
	}
	s.RunFuncs = []DomainManipulator{
		Log(c),
		Step(),
		RunPeriodically(time.Hour, func(*Simulation) error { periodic++; return nil }),
		StopAfter(8),
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatal(err)
	}
	close(c)
	if s.Steps != 8 {
		t.Errorf("steps: have %d, want 8", s.Steps)
	}
	if !s.Time.Equal(testStart.Add(2 * time.Hour)) {
		t.Errorf("end time: %v", s.Time)
	}
	if periodic != 2 {
		t.Errorf("periodic function ran %d times, want 2", periodic)
	}
	var msgs int
	for msg := range c {
		if msg.Total != 5 || msg.Active != 5 {
			t.Errorf("status: %s", msg)
		}
		msgs++
	}
	if msgs != 8 {
		t.Errorf("%d status messages, want 8", msgs)
	}
}

func TestRunRequiresClock(t *testing.T) {
	s, err := NewSimulation(constVelocity{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.RunFuncs = []DomainManipulator{StopAfter(1)}
	if err := s.Run(); err == nil {
		t.Error("expected an error for a zero time step")
	}
	s.Dt = time.Minute
	if err := s.Run(); err == nil {
		t.Error("expected an error for a missing start time")
	}
	if err := StopAfter(0)(s); err == nil {
		t.Error("expected an error for zero steps")
	}
}

func TestSeedElements(t *testing.T) {
	seed := func() *Simulation {
		s, err := NewSimulation(oceanLike{}, map[string]interface{}{SeedOption: 1})
		if err != nil {
			t.Fatal(err)
		}
		s.Log = quietLogger()
		err = SeedElements(SeedConfig{
			Lon: 141, Lat: 37.5, Radius: 50000, Number: 200, ZMin: -10, ZMax: 0,
			Time:       testStart,
			Properties: map[string]float64{"wind_drift_factor": 0.03},
		})(s)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	s := seed()
	if s.Elements.Len() != 200 {
		t.Fatalf("have %d elements", s.Elements.Len())
	}
	if !s.Time.Equal(testStart) {
		t.Errorf("start time not set: %v", s.Time)
	}
	for i := 0; i < s.Elements.Len(); i++ {
		if d := Distance(141, 37.5, s.Elements.Lon[i], s.Elements.Lat[i]); d > 50000*1.01 {
			t.Errorf("element %d is %g m from the release point", i, d)
		}
		if z := s.Elements.Z[i]; z < -10 || z > 0 {
			t.Errorf("element %d depth %g", i, z)
		}
		if f := s.Elements.Properties["wind_drift_factor"][i]; f != 0.03 {
			t.Errorf("element %d wind drift factor %g", i, f)
		}
		if s.Elements.Status[i] != Active || s.Elements.ID[i] != i {
			t.Errorf("element %d: status %v id %d", i, s.Elements.Status[i], s.Elements.ID[i])
		}
	}
	s2 := seed()
	for i := range s.Elements.Lon {
		if s.Elements.Lon[i] != s2.Elements.Lon[i] || s.Elements.Lat[i] != s2.Elements.Lat[i] {
			t.Fatal("seeding is not reproducible")
		}
	}

	bad := SeedElements(SeedConfig{Number: 1, Properties: map[string]float64{"mass": 1}})
	if err := bad(s); err == nil {
		t.Error("expected an error for an unknown property")
	}
}

// oceanLike is a model with drifter elements.
type oceanLike struct{ constVelocity }

func (oceanLike) ElementType() ElementType { return Drifter{} }

func TestDeactivateOutside(t *testing.T) {
	s := newTestSim(t, constVelocity{}, nil, 136, 140, 161)
	b := &geom.Bounds{Min: geom.Point{X: 137, Y: -1}, Max: geom.Point{X: 160.5, Y: 44}}
	if err := DeactivateOutside(b)(s); err != nil {
		t.Fatal(err)
	}
	want := []Status{Outside, Active, Outside}
	for i, st := range want {
		if s.Elements.Status[i] != st {
			t.Errorf("element %d: have %v, want %v", i, s.Elements.Status[i], st)
		}
	}
	if s.Elements.Count(Outside) != 2 || len(s.Elements.Live()) != 1 {
		t.Errorf("counts: outside %d, live %d", s.Elements.Count(Outside), len(s.Elements.Live()))
	}
}

func TestStatusString(t *testing.T) {
	for st, want := range map[Status]string{Active: "active", Stranded: "stranded", Settled: "settled", Outside: "outside", Status(9): "Status(9)"} {
		if st.String() != want {
			t.Errorf("have %s, want %s", st, want)
		}
	}
}

func TestRunPeriodicallyCarriesRemainder(t *testing.T) {
	s, err := NewSimulation(constVelocity{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Log = quietLogger()
	var have []time.Duration
	s.InitFuncs = []DomainManipulator{SetTime(testStart, 40*time.Minute)}
	s.RunFuncs = []DomainManipulator{
		StopAfter(9),
		Step(),
		RunPeriodically(time.Hour, func(s *Simulation) error {
			have = append(have, s.Time.Sub(s.StartTime))
			return nil
		}),
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{80 * time.Minute, 2 * time.Hour, 200 * time.Minute,
		4 * time.Hour, 320 * time.Minute, 6 * time.Hour}
	if len(have) != len(want) {
		t.Fatalf("ran at %v, want %v", have, want)
	}
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("run %d at %v, want %v", i, have[i], want[i])
		}
	}
	if s.Steps != 9 {
		t.Errorf("steps: have %d, want 9", s.Steps)
	}
}

func TestStopAfterResumed(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{completed: 3, total: 5, want: 5},
		{completed: 5, total: 5, want: 5},
		{completed: 7, total: 5, want: 7},
	}
	for _, test := range tests {
		s := newTestSim(t, constVelocity{u: 1}, nil, 0)
		s.Steps = test.completed
		s.RunFuncs = []DomainManipulator{StopAfter(test.total), Step()}
		if err := s.Run(); err != nil {
			t.Fatal(err)
		}
		if s.Steps != test.want {
			t.Errorf("%d of %d steps done: ended at %d, want %d", test.completed, test.total, s.Steps, test.want)
		}
		if want := testStart.Add(time.Duration(test.want-test.completed) * time.Hour); !s.Time.Equal(want) {
			t.Errorf("%d of %d steps done: time %v, want %v", test.completed, test.total, s.Time, want)
		}
	}
}

func TestMovePoles(t *testing.T) {
	s := newTestSim(t, constVelocity{}, nil, 10, 10, 179.999)
	s.Elements.Lat[0], s.Elements.Lat[1] = 89.99, -89.99
	s.move(0, 0, 5000)
	s.move(1, 0, -5000)
	s.move(2, 3600, 0)

	dLat := 5000 / EarthRadius * degPerRad
	if want := 180 - (89.99 + dLat); different(s.Elements.Lat[0], want, 1e-12) {
		t.Errorf("north pole: lat %g, want %g", s.Elements.Lat[0], want)
	}
	if want := -180 - (-89.99 - dLat); different(s.Elements.Lat[1], want, 1e-12) {
		t.Errorf("south pole: lat %g, want %g", s.Elements.Lat[1], want)
	}
	for i := 0; i < 2; i++ {
		if s.Elements.Lon[i] != -170 {
			t.Errorf("element %d: lon %g, want -170", i, s.Elements.Lon[i])
		}
	}
	if want := 179.999 + 3600/EarthRadius*degPerRad - 360; different(s.Elements.Lon[2], want, 1e-9) {
		t.Errorf("antimeridian: lon %g, want %g", s.Elements.Lon[2], want)
	}

	// Eastward moves next to a pole stay finite and in range.
	s.Elements.Lat[0] = 90
	s.move(0, 1000, 0)
	if lon := s.Elements.Lon[0]; math.IsNaN(lon) || lon < -180 || lon >= 180 {
		t.Errorf("lon at the pole: %g", lon)
	}
}

func TestWrapLon(t *testing.T) {
	for lon, want := range map[float64]float64{
		10: 10, -180: -180, 180: -180, 540: -180, -190: 170, 359: -1, -539: -179,
	} {
		if have := wrapLon(lon); have != want {
			t.Errorf("wrapLon(%g) = %g, want %g", lon, have, want)
		}
	}
}
