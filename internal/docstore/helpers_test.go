package docstore

import "bytes"

func bytesContains(b []byte, s string) bool {
	return bytes.Contains(b, []byte(s))
}

func bytesReplace(b []byte, old, new string) []byte {
	return bytes.ReplaceAll(b, []byte(old), []byte(new))
}
