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
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/gocarina/gocsv"
	goshp "github.com/jonas-p/go-shp"
)

// TrajectoryRecord is one element at one output time.
type TrajectoryRecord struct {
	Time   string  `csv:"time"`
	ID     int     `csv:"id"`
	Lon    float64 `csv:"lon"`
	Lat    float64 `csv:"lat"`
	Z      float64 `csv:"z"`
	Status string  `csv:"status"`
}

// TrajectoryWriter writes element positions as CSV, one row per element
// per output time.
type TrajectoryWriter struct {
	w             io.Writer
	headerWritten bool
	last          time.Time
}

// NewTrajectoryWriter returns a TrajectoryWriter that writes to w.
func NewTrajectoryWriter(w io.Writer) *TrajectoryWriter {
	return &TrajectoryWriter{w: w}
}

// Record returns a function that writes the current state of every element.
// Calling it more than once at the same simulation time writes nothing
// the second time.
func (tw *TrajectoryWriter) Record() DomainManipulator {
	return func(s *Simulation) error {
		if tw.headerWritten && s.Time.Equal(tw.last) {
			return nil
		}
		e := s.Elements
		t := s.Time.UTC().Format(time.RFC3339)
		records := make([]TrajectoryRecord, e.Len())
		for i := range records {
			records[i] = TrajectoryRecord{
				Time:   t,
				ID:     e.ID[i],
				Lon:    e.Lon[i],
				Lat:    e.Lat[i],
				Z:      e.Z[i],
				Status: e.Status[i].String(),
			}
		}
		if !tw.headerWritten {
			if err := gocsv.Marshal(records, tw.w); err != nil {
				return fmt.Errorf("drift: writing trajectories: %v", err)
			}
			tw.headerWritten = true
		} else if len(records) > 0 {
			if err := gocsv.MarshalWithoutHeaders(records, tw.w); err != nil {
				return fmt.Errorf("drift: writing trajectories: %v", err)
			}
		}
		tw.last = s.Time
		return nil
	}
}

// Outputter is a holder for output parameters.
//
// fileName contains the path where the output will be saved.
//
// outputVariables maps shapefile column names to expressions evaluated for
// each element. The expressions can use the element variables
// id, lon, lat, z, lon0, lat0 and status (as its integer code), and the
// properties of the element type.
//
// outputFunctions are functions the expressions can call in addition to
// the defaults exp, sqrt, abs and distance.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
}

// NewOutputter initializes a new Outputter holder and parses the output
// expressions.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("drift: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"sqrt": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("drift: got %d arguments for function 'sqrt', but needs 1", len(arg))
			}
			return math.Sqrt(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("drift: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
		// distance is the great-circle distance in km between two
		// lon/lat positions.
		"distance": func(args ...interface{}) (interface{}, error) {
			if len(args) != 4 {
				return nil, fmt.Errorf("drift: got %d arguments for function 'distance', but needs 4", len(args))
			}
			return Distance(args[0].(float64), args[1].(float64), args[2].(float64), args[3].(float64)) / 1000, nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}
	if err := checkOutputNames(outputVariables); err != nil {
		return nil, err
	}
	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for name, expr := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("drift: parsing output variable %s: %v", name, err)
		}
		o.expressions[name] = e
	}
	return o, nil
}

// Distance returns the great-circle distance in metres between two
// lon/lat positions in degrees.
func Distance(lon1, lat1, lon2, lat2 float64) float64 {
	φ1, φ2 := lat1/degPerRad, lat2/degPerRad
	dφ := φ2 - φ1
	dλ := (lon2 - lon1) / degPerRad
	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

// checkOutputNames checks (1) if any output variable names exceed 10 characters
// and (2) if any output variable names include characters that are unsupported
// in shapefile field names.
func checkOutputNames(o map[string]string) error {
	valid := regexp.MustCompile(`^[A-Za-z]\w*$`)
	for key := range o {
		long := len(key) > 10
		ok := valid.MatchString(key)
		if long && !ok {
			return fmt.Errorf("drift: output variable name '%s' exceeds 10 characters and includes unsupported character(s)", key)
		} else if long {
			return fmt.Errorf("drift: output variable name '%s' exceeds 10 characters", key)
		} else if !ok {
			return fmt.Errorf("drift: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// elementVariables returns the variables available to output expressions
// for element i.
func elementVariables(e *Elements, i int) map[string]interface{} {
	v := map[string]interface{}{
		"id":     float64(e.ID[i]),
		"lon":    e.Lon[i],
		"lat":    e.Lat[i],
		"z":      e.Z[i],
		"lon0":   e.Lon0[i],
		"lat0":   e.Lat0[i],
		"status": float64(e.Status[i]),
	}
	for name, vals := range e.Properties {
		v[name] = vals[i]
	}
	return v
}

// CheckOutputVars ensures the output variables can be calculated for the
// simulation's element type.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(s *Simulation) error {
		available := map[string]bool{
			"id": true, "lon": true, "lat": true, "z": true,
			"lon0": true, "lat0": true, "status": true,
		}
		for _, p := range s.Model.ElementType().Properties() {
			available[p.Name] = true
		}
		for name, e := range o.expressions {
			for _, v := range e.Vars() {
				if !available[v] {
					return fmt.Errorf("drift: output variable %s uses unknown variable '%s'", name, v)
				}
			}
		}
		return nil
	}
}

// Results returns the value of each output variable for each element.
func (o *Outputter) Results(e *Elements) (map[string][]float64, error) {
	res := make(map[string][]float64, len(o.expressions))
	for name := range o.expressions {
		res[name] = make([]float64, e.Len())
	}
	for i := 0; i < e.Len(); i++ {
		vars := elementVariables(e, i)
		for name, expr := range o.expressions {
			v, err := expr.Evaluate(vars)
			if err != nil {
				return nil, fmt.Errorf("drift: evaluating output variable %s: %v", name, err)
			}
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("drift: output variable %s evaluates to %T, not a number", name, v)
			}
			res[name][i] = f
		}
	}
	return res, nil
}

// Output returns a function that writes the final element positions to a
// point shapefile, with one column per output variable.
func (o *Outputter) Output() DomainManipulator {
	return func(s *Simulation) error {
		const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

		results, err := o.Results(s.Elements)
		if err != nil {
			return err
		}

		vars := make([]string, 0, len(results))
		for v := range results {
			vars = append(vars, v)
		}
		sort.Strings(vars)
		fields := make([]goshp.Field, len(vars))
		for i, v := range vars {
			fields[i] = goshp.FloatField(v, 14, 8)
		}

		// remove extension and replace it with .shp
		fileBase := strings.TrimSuffix(o.fileName, filepath.Ext(o.fileName))
		shape, err := shp.NewEncoderFromFields(fileBase+".shp", goshp.POINT, fields...)
		if err != nil {
			return fmt.Errorf("drift: error creating output shapefile: %v", err)
		}
		for i := 0; i < s.Elements.Len(); i++ {
			outFields := make([]interface{}, len(vars))
			for j, v := range vars {
				outFields[j] = results[v][i]
			}
			p := geom.Point{X: s.Elements.Lon[i], Y: s.Elements.Lat[i]}
			if err = shape.EncodeFields(p, outFields...); err != nil {
				shape.Close()
				return fmt.Errorf("drift: error writing output shapefile: %v", err)
			}
		}
		shape.Close()

		f, err := os.Create(fileBase + ".prj")
		if err != nil {
			return fmt.Errorf("drift: error creating output prj file: %v", err)
		}
		fmt.Fprint(f, wgs84)
		return f.Close()
	}
}
