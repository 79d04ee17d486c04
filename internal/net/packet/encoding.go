package packet

import "golang.org/x/text/encoding/traditionalchinese"

// Wire strings are MS950, the Big5 variant the Taiwan client ships with.
// Account and character names are almost always plain ASCII, so both
// directions check for that before paying for a real transcode.

func asciiOnly(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// decodeMS950 converts MS950 bytes to a UTF-8 string. Undecodable input
// comes back as-is rather than dropped.
func decodeMS950(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if asciiOnly(raw) {
		return string(raw)
	}
	out, err := traditionalchinese.Big5.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// encodeMS950 converts a UTF-8 string to MS950 bytes, no terminator.
func encodeMS950(s string) []byte {
	if s == "" {
		return nil
	}
	b := []byte(s)
	if asciiOnly(b) {
		return b
	}
	out, err := traditionalchinese.Big5.NewEncoder().Bytes(b)
	if err != nil {
		return b
	}
	return out
}
