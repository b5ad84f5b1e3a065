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

package driftutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/drift"
	"github.com/spatialmodel/drift/internal/hash"
	"gopkg.in/yaml.v3"
)

// snapshot is the resolved configuration of a run as it is saved next to
// the output.
type snapshot struct {
	Fingerprint    string             `toml:"fingerprint" yaml:"fingerprint"`
	Version        string             `toml:"version" yaml:"version"`
	Model          string             `toml:"model" yaml:"model"`
	Engine         drift.Config       `toml:"engine" yaml:"engine"`
	Readers        []string           `toml:"readers" yaml:"readers"`
	ConstantReader map[string]float64 `toml:"constant_reader" yaml:"constant_reader"`
	StartTime      string             `toml:"start_time" yaml:"start_time"`
	InitialState   string             `toml:"initial_state,omitempty" yaml:"initial_state,omitempty"`
	TimeStep       string             `toml:"time_step" yaml:"time_step"`
	OutputTimeStep string             `toml:"output_time_step" yaml:"output_time_step"`
	Steps          int                `toml:"steps" yaml:"steps"`
	Seed           seedSnapshot       `toml:"seed" yaml:"seed"`
}

type seedSnapshot struct {
	Lon        float64            `toml:"lon" yaml:"lon"`
	Lat        float64            `toml:"lat" yaml:"lat"`
	Radius     float64            `toml:"radius" yaml:"radius"`
	Number     int                `toml:"number" yaml:"number"`
	Z          float64            `toml:"z" yaml:"z"`
	ZMin       float64            `toml:"z_min" yaml:"z_min"`
	ZMax       float64            `toml:"z_max" yaml:"z_max"`
	Properties map[string]float64 `toml:"properties" yaml:"properties"`
}

func newSnapshot(c *RunConfig, s *drift.Simulation, start time.Time) *snapshot {
	sn := &snapshot{
		Version:        drift.Version,
		Model:          c.ModelName,
		Engine:         s.Config,
		Readers:        c.Readers,
		ConstantReader: c.ConstantReader,
		InitialState:   c.InitialState,
		TimeStep:       c.TimeStep.String(),
		OutputTimeStep: c.OutputTimeStep.String(),
		Steps:          c.Steps,
		Seed: seedSnapshot{
			Lon:        c.Seed.Lon,
			Lat:        c.Seed.Lat,
			Radius:     c.Seed.Radius,
			Number:     c.Seed.Number,
			Z:          c.Seed.Z,
			ZMin:       c.Seed.ZMin,
			ZMax:       c.Seed.ZMax,
			Properties: c.Seed.Properties,
		},
	}
	if !start.IsZero() {
		sn.StartTime = start.UTC().Format(time.RFC3339)
	}
	sn.Fingerprint = hash.Hash(sn)
	return sn
}

// writeSnapshot saves the resolved configuration to c.ConfigSnapshot and
// returns its fingerprint.
func writeSnapshot(c *RunConfig, s *drift.Simulation, start time.Time) (string, error) {
	sn := newSnapshot(c, s, start)
	f, err := os.Create(c.ConfigSnapshot)
	if err != nil {
		return "", fmt.Errorf("drift: problem creating configuration snapshot: %v", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(c.ConfigSnapshot)) {
	case ".yaml", ".yml":
		e := yaml.NewEncoder(f)
		e.SetIndent(2)
		if err = e.Encode(sn); err == nil {
			err = e.Close()
		}
	default:
		err = toml.NewEncoder(f).Encode(sn)
	}
	if err != nil {
		return "", fmt.Errorf("drift: writing configuration snapshot: %v", err)
	}
	return sn.Fingerprint, nil
}
