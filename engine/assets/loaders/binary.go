package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/azer/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// Resource is a loaded asset.
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

// BinaryLoader reads SPIR-V modules into little endian words.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params map[string]string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	code, err := LoadSPIRV(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Resource{
		Name:     params["name"],
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     code,
	}, nil
}

func (bl *BinaryLoader) Unload(res *Resource) error {
	if res == nil {
		return fmt.Errorf("cannot unload a nil resource")
	}
	res.Data = nil
	res.DataSize = 0
	return nil
}

// LoadSPIRV converts a SPIR-V binary into words, checking the magic number
// and that the size is a whole number of words.
func LoadSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("size %d is not a positive multiple of 4: %w", len(b), core.ErrInvalidShader)
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != SPIRVMagic {
		return nil, fmt.Errorf("bad magic number 0x%08x: %w", byteCode[0], core.ErrInvalidShader)
	}
	return byteCode, nil
}
