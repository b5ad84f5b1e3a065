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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/drift"
	"github.com/spatialmodel/drift/models/oceandrift"
	"github.com/spatialmodel/drift/models/windblow"
	"github.com/spf13/cast"
)

// Models are the available models, by name.
var Models = map[string]func() drift.Model{
	"windblow":   func() drift.Model { return windblow.WindBlow{} },
	"oceandrift": func() drift.Model { return oceandrift.OceanDrift{} },
}

// RunConfig holds the resolved settings for a simulation run.
type RunConfig struct {
	ModelName   string
	ModelConfig map[string]interface{}

	Readers        []string
	ConstantReader map[string]float64

	Seed drift.SeedConfig

	TimeStep, OutputTimeStep time.Duration

	// Steps is the total number of steps; Duration is kept for the
	// configuration snapshot.
	Steps    int
	Duration time.Duration

	// Domain is nil if elements are never deactivated.
	Domain *geom.Bounds

	OutputFile      string
	FinalShapefile  string
	OutputVariables map[string]string
	ConfigSnapshot  string
	StateFile       string
	InitialState    string
	LogFile         string
	LogLevel        logrus.Level
}

// NewRunConfig reads and checks a run configuration from cfg.
func NewRunConfig(cfg *viper.Viper) (*RunConfig, error) {
	c := &RunConfig{
		ModelName:      os.ExpandEnv(cfg.GetString("Model")),
		Readers:        expandStringSlice(cfg.GetStringSlice("Readers")),
		FinalShapefile: os.ExpandEnv(cfg.GetString("FinalShapefile")),
		StateFile:      os.ExpandEnv(cfg.GetString("StateFile")),
		InitialState:   os.ExpandEnv(cfg.GetString("InitialState")),
	}
	if _, ok := Models[c.ModelName]; !ok {
		return nil, fmt.Errorf("drift: unknown Model '%s'; options are %s", c.ModelName, modelNames())
	}

	modelConfig, err := GetStringMapString("ModelConfig", cfg)
	if err != nil {
		return nil, err
	}
	c.ModelConfig = make(map[string]interface{}, len(modelConfig))
	for k, v := range modelConfig {
		c.ModelConfig[k] = v
	}

	constant, err := GetStringMapString("ConstantReader", cfg)
	if err != nil {
		return nil, err
	}
	if c.ConstantReader, err = toFloatMap("ConstantReader", constant); err != nil {
		return nil, err
	}

	props, err := GetStringMapString("Seed.Properties", cfg)
	if err != nil {
		return nil, err
	}
	c.Seed = drift.SeedConfig{
		Lon:    cfg.GetFloat64("Seed.Lon"),
		Lat:    cfg.GetFloat64("Seed.Lat"),
		Radius: cfg.GetFloat64("Seed.Radius"),
		Number: cfg.GetInt("Seed.Number"),
		Z:      cfg.GetFloat64("Seed.Z"),
		ZMin:   cfg.GetFloat64("Seed.ZMin"),
		ZMax:   cfg.GetFloat64("Seed.ZMax"),
	}
	if c.Seed.Properties, err = toFloatMap("Seed.Properties", props); err != nil {
		return nil, err
	}
	if st := cfg.GetString("Seed.Time"); st != "" {
		if c.Seed.Time, err = time.Parse(time.RFC3339, st); err != nil {
			return nil, fmt.Errorf("drift: parsing Seed.Time: %v", err)
		}
	}

	for _, d := range []struct {
		name string
		v    *time.Duration
	}{
		{"TimeStep", &c.TimeStep},
		{"OutputTimeStep", &c.OutputTimeStep},
		{"Duration", &c.Duration},
	} {
		if *d.v, err = cast.ToDurationE(cfg.Get(d.name)); err != nil {
			return nil, fmt.Errorf("drift: parsing %s: %v", d.name, err)
		}
		if *d.v <= 0 {
			return nil, fmt.Errorf("drift: %s=%v but should be >0", d.name, *d.v)
		}
	}
	c.Steps = cfg.GetInt("Steps")
	if c.Steps < 1 {
		c.Steps = int((c.Duration + c.TimeStep - 1) / c.TimeStep)
	}

	if c.Domain, err = parseDomain(cfg.GetStringSlice("Domain")); err != nil {
		return nil, err
	}

	if c.OutputFile, err = checkOutputFile(cfg.GetString("OutputFile")); err != nil {
		return nil, err
	}
	if c.FinalShapefile != "" {
		outputVars, err := GetStringMapString("OutputVariables", cfg)
		if err != nil {
			return nil, err
		}
		if c.OutputVariables, err = checkOutputVars(outputVars); err != nil {
			return nil, err
		}
	}
	c.ConfigSnapshot = os.ExpandEnv(cfg.GetString("ConfigSnapshot"))
	if c.ConfigSnapshot == "" {
		c.ConfigSnapshot = strings.TrimSuffix(c.OutputFile, filepath.Ext(c.OutputFile)) + ".toml"
	}
	c.LogFile = checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), c.OutputFile)
	c.LogLevel = logrus.InfoLevel
	if lvl := cfg.GetString("LogLevel"); lvl != "" {
		if c.LogLevel, err = logrus.ParseLevel(lvl); err != nil {
			return nil, fmt.Errorf("drift: parsing LogLevel: %v", err)
		}
	}
	return c, nil
}

func modelNames() string {
	var names []string
	for n := range Models {
		names = append(names, "'"+n+"'")
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// parseDomain converts [lonmin, lonmax, latmin, latmax] into bounds.
func parseDomain(s []string) (*geom.Bounds, error) {
	if len(s) == 0 {
		return nil, nil
	}
	if len(s) != 4 {
		return nil, fmt.Errorf("drift: Domain must have 4 values [lonmin, lonmax, latmin, latmax] but has %d", len(s))
	}
	v := make([]float64, 4)
	for i, x := range s {
		var err error
		if v[i], err = cast.ToFloat64E(strings.TrimSpace(x)); err != nil {
			return nil, fmt.Errorf("drift: parsing Domain: %v", err)
		}
	}
	if v[0] >= v[1] || v[2] >= v[3] {
		return nil, fmt.Errorf("drift: Domain %v is empty", v)
	}
	return &geom.Bounds{
		Min: geom.Point{X: v[0], Y: v[2]},
		Max: geom.Point{X: v[1], Y: v[3]},
	}, nil
}

func toFloatMap(name string, m map[string]string) (map[string]float64, error) {
	o := make(map[string]float64, len(m))
	for k, v := range m {
		f, err := cast.ToFloat64E(strings.TrimSpace(os.ExpandEnv(v)))
		if err != nil {
			return nil, fmt.Errorf("drift: parsing %s[%s]: %v", name, k, err)
		}
		o[k] = f
	}
	return o, nil
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.csv"`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("drift: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		// Numbers are allowed as well as strings.
		var raw map[string]interface{}
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&raw); err != nil {
			return nil, fmt.Errorf("drift: parsing configuration variable %s: %v", varName, err)
		}
		return cast.ToStringMapStringE(raw)
	default:
		return nil, fmt.Errorf("drift: invalid type for configuration variable %s: %#v", varName, i)
	}
}
