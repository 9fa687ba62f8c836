package minidump

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/go-errors/errors"
)

const (
	// Signature is "MDMP" read as a little-endian uint32.
	Signature  = 0x504d444d
	Version    = 0xa793
	HeaderSize = 32
)

var ErrNotMinidump = errors.New("not a minidump")

// Header is the fixed MINIDUMP_HEADER at the start of every dump file.
type Header struct {
	Signature             uint32 `json:"-"`
	Version               uint16 `json:"version"`
	ImplementationVersion uint16 `json:"implementation_version"`
	Streams               uint32 `json:"streams"`
	StreamDirectoryRva    uint32 `json:"-"`
	CheckSum              uint32 `json:"checksum"`
	TimeDateStamp         uint32 `json:"time_date_stamp"`
	Flags                 uint64 `json:"flags"`
}

func ReadHeader(r io.Reader) (*Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.WrapPrefix(err, "read minidump header", 0)
	}
	if h.Signature != Signature {
		return nil, ErrNotMinidump
	}
	return &h, nil
}

func HeaderFromFile(path string) (*Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadHeader(file)
}
