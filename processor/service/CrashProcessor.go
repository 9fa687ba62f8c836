package service

import (
	"encoding/json"
	"os"
	"path/filepath"

	"crashreporter/common/format"
	"crashreporter/common/format/minidump"
	"crashreporter/common/task"
	"crashreporter/processor/cfg"
	"crashreporter/processor/pipeline"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

const ReportFile = "report.json"

type CrashProcessor struct {
	pline []pipeline.Stage
}

func (s *CrashProcessor) initCrashProcessor(c cfg.Config) {
	s.pline = []pipeline.Stage{
		pipeline.NewRx(c.SkipVersions()),
		&pipeline.ExceptionSignature{},
	}
}

// handleCrash runs the pipeline over a stored crash and writes the report
// next to the minidump. Skipped crashes are not written.
func (s *CrashProcessor) handleCrash(t *task.Crash) (*minidump.Report, error) {
	info := t.Info
	if info == nil {
		var err error
		info, err = format.MetadataFromFile(t.Metadata)
		if err != nil {
			return nil, err
		}
	}

	report := &minidump.Report{
		Id:           t.Id,
		BuildVersion: info.ExeVersion,
		DateAdded:    t.Time,
		Size:         t.Size,
	}

	header, err := minidump.HeaderFromFile(t.Minidump)
	if err != nil {
		log.WithFields(log.Fields{
			"id":    t.Id,
			"path":  t.Minidump,
			"error": err,
		}).Warning("Can't read minidump header")
	} else {
		report.Dump = header
	}

	for _, stage := range s.pline {
		if stage.Process(report, info) {
			break
		}
	}

	if report.Skipped {
		return report, nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(filepath.Dir(t.Minidump), ReportFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.WrapPrefix(err, "Can't write crash report", 0)
	}

	log.WithFields(log.Fields{
		"id":        report.Id,
		"build":     report.BuildVersion,
		"signature": report.Signature,
	}).Info("Processed crash")
	return report, nil
}
