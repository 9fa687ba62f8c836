// Package pipeline contains objects for processing by a conveyor
package pipeline

import (
	"fmt"

	"crashreporter/common/format"
	"crashreporter/common/format/minidump"
)

// Pipeline stage
type Stage interface {
	//Process the report
	//If return true then pipeline stop
	Process(report *minidump.Report, info *format.Metadata) bool
}

// ExceptionSignature names the crash after its exception code and address.
type ExceptionSignature struct {
	Stage
}

func (m *ExceptionSignature) Process(report *minidump.Report, info *format.Metadata) bool {
	code, err := format.ParseHex(info.ExceptionCode, 32)
	if err != nil {
		report.CrashType = "UNKNOWN_EXCEPTION"
	} else {
		report.CrashType = minidump.ExceptionName(uint32(code))
	}
	report.Address = info.ExceptionAddress
	report.Signature = fmt.Sprintf("%s at %s", report.CrashType, info.ExceptionAddress)
	return false
}
