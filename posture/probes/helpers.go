package probes

import "encoding/json"

// marshal returns the JSON encoding of v, or "{}" if v cannot be marshaled;
// every payload type in this package is a plain struct of
// strings/bools/slices, so that fallback is not reached in practice.
func marshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
