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
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/drift"
	"github.com/spatialmodel/drift/reader"
	"github.com/spf13/cobra"
)

// timeCoverage is implemented by readers that know the period their data
// covers.
type timeCoverage interface {
	StartTime() time.Time
}

// loadReaders opens the grid readers and appends the constant reader, if
// one is configured.
func loadReaders(c *RunConfig, log logrus.FieldLogger) ([]drift.Reader, error) {
	var readers []drift.Reader
	for _, path := range c.Readers {
		log.Infof("Reading environment data from %s...", path)
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("drift: problem opening reader file: %v", err)
		}
		g, err := reader.NewGrid(path, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		readers = append(readers, g)
	}
	if len(c.ConstantReader) > 0 {
		readers = append(readers, &reader.Constant{Values: c.ConstantReader})
	}
	return readers, nil
}

// startTime returns the configured release time or, if there is none,
// the earliest reader start time.
func startTime(c *RunConfig, readers []drift.Reader) (time.Time, error) {
	if !c.Seed.Time.IsZero() {
		return c.Seed.Time, nil
	}
	var t time.Time
	for _, r := range readers {
		if tc, ok := r.(timeCoverage); ok {
			if st := tc.StartTime(); t.IsZero() || st.Before(t) {
				t = st
			}
		}
	}
	if t.IsZero() {
		return t, fmt.Errorf("drift: Seed.Time is not set and no reader has a start time")
	}
	return t, nil
}

// newLogger returns a logger that writes to w.
func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	return &logrus.Logger{
		Out: w,
		Formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			DisableColors:   true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: level,
	}
}

// Run runs a simulation as specified by c, writing log messages to the
// output of cmd and to c.LogFile.
func Run(cmd *cobra.Command, c *RunConfig) error {
	startWall := time.Now()

	logfile, err := os.Create(c.LogFile)
	if err != nil {
		return fmt.Errorf("drift: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := newLogger(io.MultiWriter(cmd.OutOrStdout(), logfile), c.LogLevel)

	// Start a function to receive and print log messages.
	cLog := make(chan *drift.SimulationStatus)
	cLogTick := time.NewTicker(2 * time.Second)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range cLog {
			select {
			case <-cLogTick.C:
				log.Info(msg.String())
			default:
				log.Debug(msg.String())
				runtime.Gosched()
			}
		}
		wg.Done()
	}()
	defer func() { // Wait for the logging to finish.
		close(cLog)
		wg.Wait()
		cLogTick.Stop()
	}()

	s, err := drift.NewSimulation(Models[c.ModelName](), c.ModelConfig)
	if err != nil {
		return err
	}
	s.Log = log

	if s.Readers, err = loadReaders(c, log); err != nil {
		return err
	}

	trajFile, err := os.Create(c.OutputFile)
	if err != nil {
		return fmt.Errorf("drift: problem creating output file: %v", err)
	}
	defer trajFile.Close()
	tw := drift.NewTrajectoryWriter(trajFile)

	var initFuncs []drift.DomainManipulator
	var start time.Time
	if c.InitialState != "" {
		r, err := os.Open(c.InitialState)
		if err != nil {
			return fmt.Errorf("drift: problem opening InitialState: %v", err)
		}
		defer r.Close()
		initFuncs = []drift.DomainManipulator{
			drift.Load(r),
			drift.SetTime(time.Time{}, c.TimeStep),
		}
	} else {
		if start, err = startTime(c, s.Readers); err != nil {
			return err
		}
		initFuncs = []drift.DomainManipulator{
			drift.SetTime(start, c.TimeStep),
			drift.SeedElements(c.Seed),
		}
	}
	initFuncs = append(initFuncs, tw.Record())

	runFuncs := []drift.DomainManipulator{
		drift.StopAfter(c.Steps),
		drift.Log(cLog),
		drift.Step(),
	}
	if c.Domain != nil {
		runFuncs = append(runFuncs, drift.DeactivateOutside(c.Domain))
	}
	runFuncs = append(runFuncs, drift.RunPeriodically(c.OutputTimeStep, tw.Record()))

	cleanupFuncs := []drift.DomainManipulator{tw.Record()}

	if c.FinalShapefile != "" {
		log.Info("Parsing output variable expressions...")
		o, err := drift.NewOutputter(c.FinalShapefile, c.OutputVariables, nil)
		if err != nil {
			return err
		}
		initFuncs = append(initFuncs, o.CheckOutputVars())
		cleanupFuncs = append(cleanupFuncs, o.Output())
	}
	if c.StateFile != "" {
		w, err := os.Create(c.StateFile)
		if err != nil {
			return fmt.Errorf("drift: problem creating StateFile: %v", err)
		}
		defer w.Close()
		cleanupFuncs = append(cleanupFuncs, drift.Save(w))
	}

	s.InitFuncs = initFuncs
	s.RunFuncs = runFuncs
	s.CleanupFuncs = cleanupFuncs

	fingerprint, err := writeSnapshot(c, s, start)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"model":       c.ModelName,
		"fingerprint": fingerprint,
		"steps":       c.Steps,
	}).Info("Starting simulation")

	if err = s.Init(); err != nil {
		return err
	}
	if err = s.Run(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"active":   s.Elements.Count(drift.Active),
		"outside":  s.Elements.Count(drift.Outside),
		"total":    s.Elements.Len(),
		"end_time": s.Time.Format(time.RFC3339),
	}).Info("Simulation finished")
	if err = s.Cleanup(); err != nil {
		return err
	}
	log.Infof("drift completed successfully in %v.", time.Since(startWall))
	return nil
}
