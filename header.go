package ofx

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// Header is the framing header of an OFX document. Version 1 documents
// carry it as KEY:VALUE lines before the body; version 2 documents as
// pseudo attributes of the <?OFX?> processing instruction.
type Header struct {
	OFXHeader   string
	Data        string
	Version     string
	Security    string
	Encoding    string
	Charset     string
	Compression string
	OldFileUID  string
	NewFileUID  string
}

const (
	headerOFXHeader   = "OFXHEADER"
	headerData        = "DATA"
	headerVersion     = "VERSION"
	headerSecurity    = "SECURITY"
	headerEncoding    = "ENCODING"
	headerCharset     = "CHARSET"
	headerCompression = "COMPRESSION"
	headerOldFileUID  = "OLDFILEUID"
	headerNewFileUID  = "NEWFILEUID"
)

func (h *Header) set(key, value string) {
	switch strings.ToUpper(key) {
	case headerOFXHeader:
		h.OFXHeader = value
	case headerData:
		h.Data = value
	case headerVersion:
		h.Version = value
	case headerSecurity:
		h.Security = value
	case headerEncoding:
		h.Encoding = value
	case headerCharset:
		h.Charset = value
	case headerCompression:
		h.Compression = value
	case headerOldFileUID:
		h.OldFileUID = value
	case headerNewFileUID:
		h.NewFileUID = value
	}
}

// VersionNumber returns VERSION as a number, or zero
func (h Header) VersionNumber() int {
	v, err := strconv.Atoi(strings.TrimSpace(h.Version))
	if err != nil {
		return 0
	}
	return v
}

// readV1Header reads KEY:VALUE lines from the start of b. The block
// ends at a blank line or at the first line starting with '<'. It
// returns the header and the offset of the first byte after it. found
// is false when b has no header lines at all.
func readV1Header(b []byte) (h Header, offset int, found bool) {
	s := bufio.NewScanner(bytes.NewReader(b))
	s.Buffer(make([]byte, 0, 256), len(b)+1)
	s.Split(scanLinesKeepEOL)
	for s.Scan() {
		raw := s.Bytes()
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			if found {
				offset += len(raw)
				return h, offset, true
			}
			offset += len(raw)
			continue
		}
		if line[0] == '<' {
			return h, offset, found
		}
		key, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			// stray text between the header and the body
			offset += len(raw)
			continue
		}
		h.set(string(bytes.TrimSpace(key)), string(bytes.TrimSpace(value)))
		found = true
		offset += len(raw)
	}
	return h, offset, found
}

func scanLinesKeepEOL(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		j := i + 1
		if data[i] == '\r' && j < len(data) && data[j] == '\n' {
			j++
		} else if data[i] == '\r' && j == len(data) && !atEOF {
			return 0, nil, nil
		}
		return j, data[:j], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// readPseudoAttributes parses the KEY="VALUE" pairs of a processing
// instruction such as <?OFX OFXHEADER="200" VERSION="211"?>
func readPseudoAttributes(data string) Header {
	var h Header
	for key, value := range readPseudoAttributesRaw(data) {
		h.set(key, value)
	}
	return h
}

func readPseudoAttributesRaw(data string) map[string]string {
	pairs := make(map[string]string)
	for {
		data = strings.TrimLeft(data, " \t\r\n")
		key, rest, ok := strings.Cut(data, "=")
		if !ok || key == "" {
			return pairs
		}
		rest = strings.TrimLeft(rest, " \t\r\n")
		if rest == "" {
			return pairs
		}
		var value string
		switch q := rest[0]; q {
		case '"', '\'':
			end := strings.IndexByte(rest[1:], q)
			if end < 0 {
				value, rest = rest[1:], ""
			} else {
				value, rest = rest[1:end+1], rest[end+2:]
			}
		default:
			end := strings.IndexAny(rest, " \t\r\n")
			if end < 0 {
				value, rest = rest, ""
			} else {
				value, rest = rest[:end], rest[end:]
			}
		}
		key = strings.TrimSpace(key)
		if _, ok := pairs[key]; !ok {
			pairs[key] = value
		}
		data = rest
	}
}

// validateV1 checks the fields of a version 1 header. Missing fields
// are accepted; present ones must hold supported values.
func (h Header) validateV1(enforceSecurity bool) error {
	if h.OFXHeader != "" && h.OFXHeader != "100" {
		return &ProtocolHeaderError{Key: headerOFXHeader, Value: h.OFXHeader}
	}
	if h.Data != "" && !strings.EqualFold(h.Data, "OFXSGML") {
		return &ProtocolHeaderError{Key: headerData, Value: h.Data}
	}
	if h.Version != "" {
		if v := h.VersionNumber(); v < 100 || v > 200 {
			return &ProtocolHeaderError{Key: headerVersion, Value: h.Version}
		}
	}
	return h.validateCommon(enforceSecurity)
}

// validateV2 checks the pseudo attributes of a version 2 <?OFX?>
// instruction
func (h Header) validateV2(enforceSecurity bool) error {
	if h.OFXHeader != "" && h.OFXHeader != "200" {
		return &ProtocolHeaderError{Key: headerOFXHeader, Value: h.OFXHeader}
	}
	if h.Version != "" {
		if v := h.VersionNumber(); v < 200 || v > 299 {
			return &ProtocolHeaderError{Key: headerVersion, Value: h.Version}
		}
	}
	return h.validateCommon(enforceSecurity)
}

func (h Header) validateCommon(enforceSecurity bool) error {
	if enforceSecurity && h.Security != "" && !strings.EqualFold(h.Security, "NONE") {
		return &ProtocolHeaderError{Key: headerSecurity, Value: h.Security, Err: ErrUnsupportedSecurity}
	}
	if h.Compression != "" && !strings.EqualFold(h.Compression, "NONE") {
		return &ProtocolHeaderError{Key: headerCompression, Value: h.Compression}
	}
	return nil
}

// WriteV1 writes h as a version 1 header block, including the blank
// line that separates it from the body
func (h Header) WriteV1(w *bytes.Buffer) {
	pairs := [][2]string{
		{headerOFXHeader, h.OFXHeader},
		{headerData, h.Data},
		{headerVersion, h.Version},
		{headerSecurity, h.Security},
		{headerEncoding, h.Encoding},
		{headerCharset, h.Charset},
		{headerCompression, h.Compression},
		{headerOldFileUID, h.OldFileUID},
		{headerNewFileUID, h.NewFileUID},
	}
	for _, kv := range pairs {
		w.WriteString(kv[0])
		w.WriteByte(':')
		w.WriteString(kv[1])
		w.WriteString("\r\n")
	}
	w.WriteString("\r\n")
}

// PseudoAttributes renders h as the data of a version 2 <?OFX?>
// instruction
func (h Header) PseudoAttributes() string {
	var b strings.Builder
	for i, kv := range [][2]string{
		{headerOFXHeader, h.OFXHeader},
		{headerVersion, h.Version},
		{headerSecurity, h.Security},
		{headerOldFileUID, h.OldFileUID},
		{headerNewFileUID, h.NewFileUID},
	} {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv[0])
		b.WriteString(`="`)
		b.WriteString(kv[1])
		b.WriteByte('"')
	}
	return b.String()
}
