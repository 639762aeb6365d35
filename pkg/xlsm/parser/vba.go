package parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

// ErrBadCompression indicates a malformed compressed VBA container.
var ErrBadCompression = errors.New("malformed VBA compressed container")

// VBAModule is one code module of a VBA project.
type VBAModule struct {
	// Name is the module name shown in the VBA editor.
	Name string
	// StreamName is the stream holding the module inside the VBA storage.
	StreamName string
	// Class is true for document and class modules.
	Class bool
	// Source is the decompressed module source text.
	Source string
}

// FileName returns the conventional export name, e.g. "Module1.bas".
func (m VBAModule) FileName() string {
	if m.Class {
		return m.Name + ".cls"
	}
	return m.Name + ".bas"
}

// dir stream record ids
const (
	recCodePage       = 0x0003
	recVersion        = 0x0009
	recModuleName     = 0x0019
	recModuleStream   = 0x001A
	recModuleTypeProc = 0x0021
	recModuleTypeDoc  = 0x0022
	recModuleEnd      = 0x002B
	recModuleOffset   = 0x0031
	recDirEnd         = 0x0010
)

// ReadVBAModules decodes every code module of a vbaProject.bin compound file.
func ReadVBAModules(project []byte) ([]VBAModule, error) {
	doc, err := mscfb.New(bytes.NewReader(project))
	if err != nil {
		return nil, fmt.Errorf("open VBA project: %w", err)
	}

	streams := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !inVBAStorage(entry.Path) || entry.Size == 0 {
			continue
		}
		data, err := io.ReadAll(entry)
		if err != nil {
			return nil, fmt.Errorf("read stream %s: %w", entry.Name, err)
		}
		streams[strings.ToLower(entry.Name)] = data
	}

	dirData, ok := streams["dir"]
	if !ok {
		return nil, fmt.Errorf("VBA project has no dir stream")
	}
	dir, err := Decompress(dirData)
	if err != nil {
		return nil, fmt.Errorf("decompress dir stream: %w", err)
	}
	modules, offsets, decode, err := parseDirStream(dir)
	if err != nil {
		return nil, err
	}

	for i := range modules {
		stream, ok := streams[strings.ToLower(modules[i].StreamName)]
		if !ok || int(offsets[i]) > len(stream) {
			return nil, fmt.Errorf("module %s: stream %q missing", modules[i].Name, modules[i].StreamName)
		}
		src, err := Decompress(stream[offsets[i]:])
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", modules[i].Name, err)
		}
		modules[i].Source = decode(src)
	}
	return modules, nil
}

func inVBAStorage(path []string) bool {
	for _, p := range path {
		if strings.EqualFold(p, "VBA") {
			return true
		}
	}
	return false
}

// parseDirStream walks the records of a decompressed dir stream and returns
// the modules with their source offsets and a decoder for the project code page.
func parseDirStream(dir []byte) ([]VBAModule, []uint32, func([]byte) string, error) {
	var (
		modules []VBAModule
		offsets []uint32
		current *VBAModule
		offset  uint32
		decode  = decoderFor(1252)
	)

	pos := 0
	for pos+6 <= len(dir) {
		id := binary.LittleEndian.Uint16(dir[pos:])
		size := int(binary.LittleEndian.Uint32(dir[pos+2:]))
		pos += 6
		if id == recVersion {
			// the size field is fixed at 4 but the record carries 6 bytes
			size = 6
		}
		if size < 0 || pos+size > len(dir) {
			return nil, nil, nil, fmt.Errorf("dir record 0x%04X overruns stream", id)
		}
		data := dir[pos : pos+size]
		pos += size

		switch id {
		case recCodePage:
			if len(data) >= 2 {
				decode = decoderFor(binary.LittleEndian.Uint16(data))
			}
		case recModuleName:
			current = &VBAModule{Name: decode(data)}
			offset = 0
		case recModuleStream:
			if current != nil {
				current.StreamName = decode(data)
			}
		case recModuleOffset:
			if len(data) >= 4 {
				offset = binary.LittleEndian.Uint32(data)
			}
		case recModuleTypeProc:
			if current != nil {
				current.Class = false
			}
		case recModuleTypeDoc:
			if current != nil {
				current.Class = true
			}
		case recModuleEnd:
			if current != nil {
				if current.StreamName == "" {
					current.StreamName = current.Name
				}
				modules = append(modules, *current)
				offsets = append(offsets, offset)
				current = nil
			}
		case recDirEnd:
			return modules, offsets, decode, nil
		}
	}
	return modules, offsets, decode, nil
}

var codePages = map[uint16]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
}

func decoderFor(codePage uint16) func([]byte) string {
	cm, ok := codePages[codePage]
	if !ok {
		// 65001 and unknown code pages are read as UTF-8
		return func(b []byte) string { return string(b) }
	}
	return func(b []byte) string {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return string(b)
		}
		return string(out)
	}
}

// Decompress expands a VBA compressed container: a signature byte followed by
// chunks of literal bytes and copy tokens.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != 0x01 {
		return nil, fmt.Errorf("%w: bad signature", ErrBadCompression)
	}

	out := make([]byte, 0, len(data)*2)
	pos := 1
	for pos+2 <= len(data) {
		header := binary.LittleEndian.Uint16(data[pos:])
		chunkEnd := min(pos+int(header&0x0FFF)+3, len(data))
		pos += 2

		if header&0x8000 == 0 {
			end := min(pos+4096, len(data))
			out = append(out, data[pos:end]...)
			pos = end
			continue
		}

		chunkStart := len(out)
		for pos < chunkEnd {
			flags := data[pos]
			pos++
			for bit := 0; bit < 8 && pos < chunkEnd; bit++ {
				if flags&(1<<bit) == 0 {
					out = append(out, data[pos])
					pos++
					continue
				}
				if pos+2 > chunkEnd {
					return nil, fmt.Errorf("%w: truncated copy token", ErrBadCompression)
				}
				token := int(binary.LittleEndian.Uint16(data[pos:]))
				pos += 2

				bitCount := 4
				for 1<<bitCount < len(out)-chunkStart {
					bitCount++
				}
				lengthMask := 0xFFFF >> bitCount
				length := token&lengthMask + 3
				offset := token>>(16-bitCount) + 1

				src := len(out) - offset
				if src < chunkStart {
					return nil, fmt.Errorf("%w: copy token points before chunk", ErrBadCompression)
				}
				for i := 0; i < length; i++ {
					out = append(out, out[src+i])
				}
			}
		}
		pos = chunkEnd
	}
	return out, nil
}
