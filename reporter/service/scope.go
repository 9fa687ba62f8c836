package service

import (
	log "github.com/sirupsen/logrus"
)

type handle struct {
	name    string
	release func() error
}

// scope owns the transport handles of one upload and releases them in
// reverse order of acquisition.
type scope struct {
	handles []handle
}

func (s *scope) acquire(name string, release func() error) {
	s.handles = append(s.handles, handle{name: name, release: release})
	log.WithField("handle", name).Debug("Acquired")
}

func (s *scope) releaseAll() {
	for len(s.handles) > 0 {
		h := s.handles[len(s.handles)-1]
		s.handles = s.handles[:len(s.handles)-1]
		if err := h.release(); err != nil {
			log.WithFields(log.Fields{
				"handle": h.name,
				"error":  err,
			}).Debug("Release")
			continue
		}
		log.WithField("handle", h.name).Debug("Released")
	}
}

func (s *scope) open() int {
	return len(s.handles)
}
