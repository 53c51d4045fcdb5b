package section

import "bytes"

// putString copies s into the fixed-size buffer dst as a NUL-terminated
// string, truncating to len(dst)-1 bytes. The remainder is zero-filled.
func putString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(s)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, s[:n])
}

// getString reads a NUL-terminated string from a fixed-size buffer.
func getString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}

	return string(src)
}

// padRegion fills a reserved or discretionary region with the pad byte.
func padRegion(dst []byte, pad byte) {
	for i := range dst {
		dst[i] = pad
	}
}
