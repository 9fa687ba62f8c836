// Package report holds the crash description handed over by the crashed process.
package report

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"crashreporter/common/format"
	"crashreporter/common/utils"

	"github.com/go-errors/errors"
)

// ArgCount is the number of positional arguments crash_reporter expects.
const ArgCount = 12

var ErrNotEnoughArgs = errors.Errorf("expected %d arguments", ArgCount)

// CrashReport is built once from argv and never modified afterwards.
type CrashReport struct {
	ServerURL        string
	APIKey           string
	MinidumpPath     string
	ExeVersion       string
	ExeGuid          string
	Pid              uint32
	Tid              uint32
	ExceptionCode    uint32
	ExceptionAddress uint64
	ExeAge           int
	TimeDateStamp    uint32
	SizeOfImage      uint32
	Timestamp        string
}

// FromArgs builds a CrashReport from the positional arguments (program name excluded).
// Extra arguments are ignored. now is read once for the report timestamp.
func FromArgs(args []string, now func() time.Time) (*CrashReport, error) {
	if len(args) < ArgCount {
		return nil, ErrNotEnoughArgs
	}

	r := &CrashReport{
		ServerURL:    utils.Trim(args[0]),
		APIKey:       utils.Trim(args[1]),
		MinidumpPath: utils.Trim(args[2]),
		ExeVersion:   utils.Trim(args[3]),
		ExeGuid:      utils.Trim(args[4]),
	}

	p := parser{}
	r.Pid = uint32(p.decimal("pid", args[5], 10, 32))
	r.Tid = uint32(p.decimal("tid", args[6], 10, 32))
	r.ExceptionCode = uint32(p.hexadecimal("exception_code", args[7], 32))
	r.ExceptionAddress = p.hexadecimal("exception_address", args[8], bits.UintSize)
	r.ExeAge = int(p.signed("exe_age", args[9]))
	r.TimeDateStamp = uint32(p.decimal("time_date_stamp", args[10], 10, 32))
	r.SizeOfImage = uint32(p.decimal("size_of_image", args[11], 10, 32))
	if p.err != nil {
		return nil, p.err
	}

	r.Timestamp = now().UTC().Format(format.TimestampLayout)
	return r, nil
}

// Metadata returns the JSON metadata document describing the report.
func (r *CrashReport) Metadata() *format.Metadata {
	return &format.Metadata{
		Timestamp:        r.Timestamp,
		ExeVersion:       r.ExeVersion,
		ExeGuid:          r.ExeGuid,
		ExeAge:           r.ExeAge,
		Pid:              r.Pid,
		Tid:              r.Tid,
		ExceptionCode:    format.FormatExceptionCode(r.ExceptionCode),
		ExceptionAddress: format.FormatExceptionAddress(r.ExceptionAddress),
		TimeDateStamp:    r.TimeDateStamp,
		SizeOfImage:      r.SizeOfImage,
	}
}

func Usage(program string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s <server_url> <api_key> <minidump_path> <version> <guid> "+
		"<pid> <tid> <exception_code_hex> <exception_address_hex> "+
		"<exe_age> <time_date_stamp> <size_of_image>\n", program)
	fmt.Fprintf(&b, "Example: %s http://localhost:9999/api/crash key123 C:\\dumps\\crash.dmp "+
		"1.0.0 3F2504E0-4F89-11D3-9A0C-0305E82C3301 1234 5678 0xC0000005 0x00007FF6A1B2C3D4 "+
		"0 1234567890 4194304\n", program)
	return b.String()
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) decimal(name, s string, base, bitSize int) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), base, bitSize)
	if err != nil {
		p.err = errors.Errorf("invalid %s %q: %v", name, s, err)
	}
	return v
}

func (p *parser) hexadecimal(name, s string, bitSize int) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := format.ParseHex(s, bitSize)
	if err != nil {
		p.err = errors.Errorf("invalid %s %q: %v", name, s, err)
	}
	return v
}

func (p *parser) signed(name, s string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits.UintSize)
	if err != nil {
		p.err = errors.Errorf("invalid %s %q: %v", name, s, err)
	}
	return v
}
