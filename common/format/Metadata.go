package format

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/bits"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// AddressDigits is the number of hex digits of a pointer-sized address.
const AddressDigits = bits.UintSize / 4

const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Metadata is the JSON document sent as the "metadata" part of a crash upload.
// Field order is part of the wire format.
type Metadata struct {
	Timestamp        string `json:"timestamp" validate:"required"`
	ExeVersion       string `json:"exe_version"`
	ExeGuid          string `json:"exe_guid"`
	ExeAge           int    `json:"exe_age"`
	Pid              uint32 `json:"pid"`
	Tid              uint32 `json:"tid"`
	ExceptionCode    string `json:"exception_code" validate:"required,startswith=0x,len=10"`
	ExceptionAddress string `json:"exception_address" validate:"required,startswith=0x"`
	TimeDateStamp    uint32 `json:"exe_time_date_stamp"`
	SizeOfImage      uint32 `json:"exe_size_of_image"`
}

var validate = validator.New()

func FormatExceptionCode(code uint32) string {
	return fmt.Sprintf("0x%08X", code)
}

func FormatExceptionAddress(addr uint64) string {
	return fmt.Sprintf("0x%0*X", AddressDigits, addr)
}

// ParseHex parses a hexadecimal value with an optional 0x prefix.
func ParseHex(s string, bitSize int) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, bitSize)
}

// Encode renders the metadata exactly as it goes on the wire.
func (m *Metadata) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func (m *Metadata) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if _, err := ParseHex(m.ExceptionCode, 32); err != nil {
		return errors.WrapPrefix(err, "exception_code", 0)
	}
	if _, err := ParseHex(m.ExceptionAddress, 64); err != nil {
		return errors.WrapPrefix(err, "exception_address", 0)
	}
	return nil
}

func MetadataFromJson(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		log.WithError(err).Debug("Can't parse crash metadata")
		return nil, err
	}
	return &m, nil
}

func MetadataFromFile(path string) (*Metadata, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		log.WithError(err).Error("Can't read metadata file")
		return nil, err
	}
	return MetadataFromJson(data)
}
