package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"crashreporter/common/format"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	AGE  = `older`
	NAME = `name`
	SIZE = `count`
	SHOW = `show_only`

	metadataFile = "metadata.json"
)

type Callback func(c *cli.Context, args []string) error

var rmCallbacks = map[string]Callback{
	"crashes": rmCrashes,
}

// StoredCrash is one crash directory written by the collector.
type StoredCrash struct {
	Id      string
	Path    string
	Version string
	Time    time.Time
}

func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "remove stored crashes",
		ArgsUsage: "crashes",
		Action:    remove,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  AGE,
				Value: "16d",
				Usage: "minimal age, e.g. 36h, 16d or 2w",
			},
			&cli.StringFlag{
				Name:  NAME,
				Value: ".*", //Regular expression
				Usage: "regular expression matched against exe_version",
			},
			&cli.StringFlag{
				Name:    DIR,
				Value:   "./crashes",
				Usage:   "collector dumps directory",
				EnvVars: []string{"CRASH_DUMPS_DIR"},
			},
			&cli.IntFlag{
				Name:  SIZE,
				Value: 1000,
			},
			&cli.BoolFlag{
				Name: SHOW,
			},
		},
	}
}

func remove(c *cli.Context) error {
	if c.NArg() == 0 {
		message := `Empty task, available values:
	crashes`
		fmt.Println(message)
		return errors.New("Empty task")
	}

	task := c.Args().Get(0)

	if cb, ok := rmCallbacks[task]; ok {
		return cb(c, c.Args().Tail())
	}
	fmt.Printf("Unknown task %s\n", task)
	return errors.Errorf("Unknown task %s", task)
}

func rmCrashes(c *cli.Context, args []string) error {
	older, err := ParseAge(c.String(AGE))
	if err != nil {
		return err
	}
	name, err := regexp.Compile(c.String(NAME))
	if err != nil {
		return errors.WrapPrefix(err, "Invalid name expression", 0)
	}
	showOnly := c.Bool(SHOW)

	crashes, err := FindCrashes(c.String(DIR), older, name, c.Int(SIZE), time.Now())
	if err != nil {
		return err
	}

	for _, s := range crashes {
		fields := log.Fields{
			"id":      s.Id,
			"version": s.Version,
			"path":    s.Path,
			"date":    s.Time.Format(time.RFC3339),
		}
		if showOnly {
			log.WithFields(fields).Info("Crash")
			continue
		}

		err := os.RemoveAll(s.Path)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
				"path":  s.Path,
			}).Error("Can't remove directory")

			return err
		}
		log.WithFields(fields).Info("Removed crash")
	}

	return nil
}

// ParseAge accepts time.ParseDuration values plus whole days (d) and weeks (w).
func ParseAge(s string) (time.Duration, error) {
	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	}
	if unit != 0 {
		n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
		if err != nil {
			return 0, errors.Errorf("Invalid age %q", s)
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.Errorf("Invalid age %q", s)
	}
	return d, nil
}

// FindCrashes lists crashes in dir older than older whose version matches
// name, oldest first, at most count of them.
func FindCrashes(dir string, older time.Duration, name *regexp.Regexp, count int, now time.Time) ([]StoredCrash, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"dir":   dir,
		}).Error("Can't read dumps directory")
		return nil, err
	}

	cutoff := now.Add(-older)
	var found []StoredCrash
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, ok := readCrash(filepath.Join(dir, e.Name()))
		if !ok {
			continue
		}
		if s.Time.After(cutoff) || !name.MatchString(s.Version) {
			continue
		}
		found = append(found, s)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Time.Before(found[j].Time)
	})
	if count >= 0 && len(found) > count {
		found = found[:count]
	}
	return found, nil
}

// readCrash takes the crash time from its metadata, or the directory
// modification time when the metadata carries none.
func readCrash(path string) (StoredCrash, bool) {
	s := StoredCrash{Id: filepath.Base(path), Path: path}

	meta, err := format.MetadataFromFile(filepath.Join(path, metadataFile))
	if err != nil {
		log.WithField("path", path).Debug("Skip directory without metadata")
		return s, false
	}
	s.Version = meta.ExeVersion

	if t, err := time.Parse(format.TimestampLayout, meta.Timestamp); err == nil {
		s.Time = t
		return s, true
	}
	info, err := os.Stat(path)
	if err != nil {
		return s, false
	}
	s.Time = info.ModTime()
	return s, true
}
