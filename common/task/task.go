package task

import (
	"encoding/json"
	"time"

	"crashreporter/common/format"

	log "github.com/sirupsen/logrus"
)

const (
	PROCESS_CRASH = 1 << iota
)

// Crash points to a stored crash upload.
type Crash struct {
	Type     uint             `json:"type"`
	Id       string           `json:"id"`
	Minidump string           `json:"minidump"`
	Metadata string           `json:"metadata"`
	Info     *format.Metadata `json:"info,omitempty"`
	Size     int64            `json:"size"`
	Time     string           `json:"time,omitempty"`
}

func FromJson(data []byte) interface{} {
	type Test struct {
		Type uint `json:"type"`
	}

	var t Test
	json.Unmarshal(data, &t)
	switch t.Type {
	case PROCESS_CRASH:
		var c Crash
		err := json.Unmarshal(data, &c)
		if err != nil {
			log.WithError(err).Error("Can't parse crash task")
			return nil
		}

		if len(c.Time) == 0 {
			c.Time = getTimeStamp()
		}

		return &c
	default:
		return nil
	}
}

func CreateCrashTask(id, minidump, metadata string, size int64, info *format.Metadata) *Crash {
	return &Crash{Type: PROCESS_CRASH,
		Id:       id,
		Minidump: minidump,
		Metadata: metadata,
		Info:     info,
		Size:     size,
		Time:     getTimeStamp()}
}

func getTimeStamp() string {
	t := time.Now()
	return t.Format(time.RFC3339)
}
