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

package reader

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Values at or above fillValue are missing data; it is just below the
// NetCDF default fill value for floats.
const fillValue = 9.96e36

// Grid provides environment variables on a regular longitude-latitude
// grid that changes with time. Values are taken from the nearest grid node
// and the latest time that is not after the requested time; there is
// no interpolation.
type Grid struct {
	// Label is the reader name.
	Label string

	// Reference is the time that Times are counted from.
	Reference time.Time

	// Times are the times of the data, as offsets from Reference, in
	// ascending order.
	Times []time.Duration

	// Lon and Lat are the grid node coordinates [degrees] in ascending
	// order.
	Lon, Lat []float64

	// Fields holds the data for each variable, with dimensions
	// [time, lat, lon].
	Fields map[string]*sparse.DenseArray
}

// NewGrid reads a grid from NetCDF file rw. The file must have dimensions
// time, lat and lon, coordinate variables of the same names, a global
// start_time attribute in RFC 3339 format that the time variable [s] is
// relative to, and any number of variables with dimensions
// (time, lat, lon).
func NewGrid(name string, rw cdf.ReaderWriterAt) (*Grid, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("reader.NewGrid: %v", err)
	}
	g := &Grid{
		Label:  name,
		Fields: make(map[string]*sparse.DenseArray),
	}

	st, ok := f.Header.GetAttribute("", "start_time").(string)
	if !ok {
		return nil, fmt.Errorf("reader.NewGrid: %s: missing global start_time attribute", name)
	}
	g.Reference, err = time.Parse(time.RFC3339, st)
	if err != nil {
		return nil, fmt.Errorf("reader.NewGrid: %s: parsing start_time: %v", name, err)
	}

	coord := func(v string) ([]float64, error) {
		dims := f.Header.Dimensions(v)
		if len(dims) != 1 || dims[0] != v {
			return nil, fmt.Errorf("reader.NewGrid: %s: coordinate variable %s must have dimension %s", name, v, v)
		}
		o := make([]float64, f.Header.Lengths(v)[0])
		if _, err := f.Reader(v, nil, nil).Read(o); err != nil {
			return nil, fmt.Errorf("reader.NewGrid: %s: reading %s: %v", name, v, err)
		}
		return o, nil
	}
	times, err := coord("time")
	if err != nil {
		return nil, err
	}
	g.Times = make([]time.Duration, len(times))
	for i, t := range times {
		g.Times[i] = time.Duration(t * float64(time.Second))
	}
	if g.Lat, err = coord("lat"); err != nil {
		return nil, err
	}
	if g.Lon, err = coord("lon"); err != nil {
		return nil, err
	}

	for _, v := range f.Header.Variables() {
		if v == "time" || v == "lat" || v == "lon" {
			continue
		}
		dims := f.Header.Dimensions(v)
		if len(dims) != 3 || dims[0] != "time" || dims[1] != "lat" || dims[2] != "lon" {
			continue
		}
		lengths := f.Header.Lengths(v)
		d := sparse.ZerosDense(lengths...)
		tmp := make([]float32, len(d.Elements))
		if _, err = f.Reader(v, nil, nil).Read(tmp); err != nil {
			return nil, fmt.Errorf("reader.NewGrid: %s: reading %s: %v", name, v, err)
		}
		for i, val := range tmp {
			d.Elements[i] = float64(val)
		}
		g.Fields[v] = d
	}
	if err := g.check(); err != nil {
		return nil, err
	}
	return g, nil
}

// check makes sure the coordinates are ascending and the fields match
// them.
func (g *Grid) check() error {
	if len(g.Times) == 0 || len(g.Lon) == 0 || len(g.Lat) == 0 {
		return fmt.Errorf("reader: grid %s has an empty dimension", g.Name())
	}
	for name, c := range map[string][]float64{"lon": g.Lon, "lat": g.Lat} {
		if !sort.Float64sAreSorted(c) {
			return fmt.Errorf("reader: grid %s: %s is not in ascending order", g.Name(), name)
		}
	}
	for i := 1; i < len(g.Times); i++ {
		if g.Times[i] <= g.Times[i-1] {
			return fmt.Errorf("reader: grid %s: times are not in ascending order", g.Name())
		}
	}
	for name, d := range g.Fields {
		if len(d.Shape) != 3 || d.Shape[0] != len(g.Times) || d.Shape[1] != len(g.Lat) || d.Shape[2] != len(g.Lon) {
			return fmt.Errorf("reader: grid %s: variable %s has shape %v but the grid is [%d %d %d]",
				g.Name(), name, d.Shape, len(g.Times), len(g.Lat), len(g.Lon))
		}
	}
	return nil
}

// Name returns the reader label.
func (g *Grid) Name() string {
	if g.Label == "" {
		return "grid"
	}
	return g.Label
}

// Provides reports whether the grid holds variable.
func (g *Grid) Provides(variable string) bool {
	_, ok := g.Fields[variable]
	return ok
}

// StartTime returns the time of the first data.
func (g *Grid) StartTime() time.Time { return g.Reference.Add(g.Times[0]) }

// EndTime returns the time of the last data.
func (g *Grid) EndTime() time.Time { return g.Reference.Add(g.Times[len(g.Times)-1]) }

// Sample returns the value of variable at the nearest grid node to each
// position. Positions more than half a grid cell outside the grid, times
// outside the data period, and missing values are not covered.
func (g *Grid) Sample(variable string, t time.Time, lon, lat, z []float64) ([]float64, []bool, error) {
	values := make([]float64, len(lon))
	covered := make([]bool, len(lon))
	d, ok := g.Fields[variable]
	if !ok {
		return values, covered, nil
	}
	ti, ok := g.timeIndex(t)
	if !ok {
		return values, covered, nil
	}
	for i := range lon {
		xi, okx := nearest(g.Lon, lon[i])
		yi, oky := nearest(g.Lat, lat[i])
		if !okx || !oky {
			continue
		}
		v := d.Get(ti, yi, xi)
		if math.IsNaN(v) || math.Abs(v) >= fillValue {
			continue
		}
		values[i], covered[i] = v, true
	}
	return values, covered, nil
}

// timeIndex returns the index of the latest time not after t.
func (g *Grid) timeIndex(t time.Time) (int, bool) {
	dt := t.Sub(g.Reference)
	if dt < g.Times[0] || dt > g.Times[len(g.Times)-1] {
		return 0, false
	}
	return sort.Search(len(g.Times), func(i int) bool { return g.Times[i] > dt }) - 1, true
}

// nearest returns the index of the element of c closest to x, and whether
// x is within half a grid spacing of the ends of c.
func nearest(c []float64, x float64) (int, bool) {
	n := len(c)
	if math.IsNaN(x) {
		return 0, false
	}
	if n == 1 {
		return 0, x == c[0]
	}
	if x < c[0]-(c[1]-c[0])/2 || x > c[n-1]+(c[n-1]-c[n-2])/2 {
		return 0, false
	}
	i := sort.SearchFloat64s(c, x)
	switch {
	case i == 0:
		return 0, true
	case i == n:
		return n - 1, true
	case x-c[i-1] <= c[i]-x:
		return i - 1, true
	default:
		return i, true
	}
}

// Write writes the grid to NetCDF file w in the format NewGrid reads.
func (g *Grid) Write(w *os.File) error {
	if err := g.check(); err != nil {
		return err
	}
	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{len(g.Times), len(g.Lat), len(g.Lon)})
	h.AddAttribute("", "comment", "Drift environment data file")
	h.AddAttribute("", "start_time", g.Reference.UTC().Format(time.RFC3339))

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "s")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")

	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(g.Fields))
	for n := range g.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		h.AddVariable(name, []string{"time", "lat", "lon"}, []float32{0})
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("reader: writing grid: %v", err)
	}

	times := make([]float64, len(g.Times))
	for i, t := range g.Times {
		times[i] = t.Seconds()
	}
	for name, data := range map[string][]float64{"time": times, "lat": g.Lat, "lon": g.Lon} {
		if _, err := f.Writer(name, []int{0}, []int{len(data)}).Write(data); err != nil {
			return fmt.Errorf("reader: writing variable %s to netcdf file: %v", name, err)
		}
	}
	for _, name := range names {
		if err := writeNCF(f, name, g.Fields[name]); err != nil {
			return fmt.Errorf("reader: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, v string, data *sparse.DenseArray) error {
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	_, err := f.Writer(v, start, end).Write(data32)
	return err
}
