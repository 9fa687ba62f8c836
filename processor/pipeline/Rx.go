package pipeline

import (
	"regexp"

	"crashreporter/common/format"
	"crashreporter/common/format/minidump"

	log "github.com/sirupsen/logrus"
)

// Rx skips crashes of builds whose version matches one of the expressions.
type Rx struct {
	Stage
	Regexps []*regexp.Regexp
}

func (r *Rx) Process(report *minidump.Report, info *format.Metadata) bool {
	for _, rx := range r.Regexps {
		if rx.MatchString(info.ExeVersion) {
			log.WithFields(log.Fields{
				"version": info.ExeVersion,
				"regexp":  rx.String(),
			}).Debug("Skipped crash")
			report.Skipped = true
			return true
		}
	}
	// to next stage
	return false
}

func NewRx(regs []string) *Rx {
	var rxSlice []*regexp.Regexp
	for _, reg := range regs {
		rx, err := regexp.Compile(reg)
		log.WithField("regexp", reg).
			Debug("Rx stage: compile regexp")
		if err == nil {
			rxSlice = append(rxSlice, rx)
		} else {
			log.WithError(err).
				Error("Can't compile regular expression")
		}
	}

	return &Rx{
		Regexps: rxSlice,
	}
}
