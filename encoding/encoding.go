// Package encoding wraps around the various encoding stuff in
// golang.org/x/text/encoding. Part of the reason this exists is that
// the package names such as "unicode" clash with the stdlib, and
// it's rather easier if we just hide it from the parser.
//
// OFX names its character set in two ways. Version 1 headers either
// say ENCODING:USASCII and put a Windows code page number in CHARSET,
// or say ENCODING:UTF-8 and leave CHARSET meaningless. Version 2
// documents use the XML encoding declaration.
package encoding

import (
	"errors"
	"strings"

	enc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

var ErrUnknownEncoding = errors.New("unknown encoding")

// normalize lower cases name and drops separators so that
// "Windows-1252", "windows_1252" and "WINDOWS1252" compare equal
func normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case '-', '_', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Load returns the encoding with the given name, or nil
func Load(name string) enc.Encoding {
	switch normalize(name) {
	case "utf8", "unicode":
		return unicode.UTF8
	case "utf16", "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case "usascii", "ascii":
		// US-ASCII is a subset of windows-1252 and OFX servers routinely
		// send high bytes under it
		return charmap.Windows1252
	case "eucjp":
		return japanese.EUCJP
	case "shiftjis", "sjis", "cp932":
		return japanese.ShiftJIS
	case "jis", "iso2022jp":
		return japanese.ISO2022JP
	case "big5":
		return traditionalchinese.Big5
	case "euckr":
		return korean.EUCKR
	case "gbk", "gb2312":
		return simplifiedchinese.GBK
	case "hzgb2312":
		return simplifiedchinese.HZGB2312
	case "cp437", "ibm437":
		return charmap.CodePage437
	case "cp850", "ibm850":
		return charmap.CodePage850
	case "cp866":
		return charmap.CodePage866
	case "iso88592":
		return charmap.ISO8859_2
	case "iso88593":
		return charmap.ISO8859_3
	case "iso88594":
		return charmap.ISO8859_4
	case "iso88595":
		return charmap.ISO8859_5
	case "iso88596":
		return charmap.ISO8859_6
	case "iso88597":
		return charmap.ISO8859_7
	case "iso88598":
		return charmap.ISO8859_8
	case "iso885910":
		return charmap.ISO8859_10
	case "iso885913":
		return charmap.ISO8859_13
	case "iso885914":
		return charmap.ISO8859_14
	case "iso885915":
		return charmap.ISO8859_15
	case "iso885916":
		return charmap.ISO8859_16
	case "koi8r":
		return charmap.KOI8R
	case "koi8u":
		return charmap.KOI8U
	case "macintosh":
		return charmap.Macintosh
	case "macintoshcyrillic":
		return charmap.MacintoshCyrillic
	case "windows1250", "cp1250":
		return charmap.Windows1250
	case "windows1251", "cp1251":
		return charmap.Windows1251
	case "iso88591", "latin1", "windows1252", "cp1252":
		return charmap.Windows1252
	case "windows1253", "cp1253":
		return charmap.Windows1253
	case "windows1254", "cp1254":
		return charmap.Windows1254
	case "windows1255", "cp1255":
		return charmap.Windows1255
	case "windows1256", "cp1256":
		return charmap.Windows1256
	case "windows1257", "cp1257":
		return charmap.Windows1257
	case "windows1258", "cp1258":
		return charmap.Windows1258
	case "windows874", "cp874":
		return charmap.Windows874
	case "xuserdefined":
		return charmap.XUserDefined
	}
	return nil
}

// CodePage returns the encoding for a version 1 CHARSET value. Numeric
// values are Windows code pages. NONE and the empty string mean the
// default, windows-1252.
func CodePage(charset string) (enc.Encoding, error) {
	charset = strings.TrimSpace(charset)
	switch strings.ToUpper(charset) {
	case "", "NONE":
		return charmap.Windows1252, nil
	case "65001":
		return unicode.UTF8, nil
	case "437", "850", "866", "874", "932":
		return Load("cp" + charset), nil
	}
	if len(charset) == 4 && strings.HasPrefix(charset, "125") {
		if e := Load("windows" + charset); e != nil {
			return e, nil
		}
	}
	if e := Load(charset); e != nil {
		return e, nil
	}
	return nil, ErrUnknownEncoding
}

// Decode converts b from e to UTF-8. A nil encoding or UTF-8 returns b
// unchanged.
func Decode(e enc.Encoding, b []byte) ([]byte, error) {
	if e == nil || e == unicode.UTF8 {
		return b, nil
	}
	return e.NewDecoder().Bytes(b)
}
