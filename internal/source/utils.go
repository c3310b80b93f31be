package source

import "bytes"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeText strips a leading UTF-8 BOM and rewrites CRLF pairs to
// bare LF. Lone \r bytes are left alone; only the two-byte sequence is a
// line ending here.
func normalizeText(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !bytes.Contains(raw, []byte("\r\n")) {
		return raw
	}
	return bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
}

// lineStarts builds the byte offsets where each line begins. Line 1
// starts at offset 0; every '\n' opens the next line one byte later.
func lineStarts(content []byte) []uint32 {
	starts := make([]uint32, 1, 16)
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, uint32(i)+1)
		}
	}
	return starts
}
