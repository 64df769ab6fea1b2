// Package wire implements the address codec and wire frame format shared
// by the local event bus and the replication transport.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a frame or address fails to decode.
var ErrMalformed = errors.New("wire: malformed input")

// MacAddr is a 48-bit IEEE 802 address.
type MacAddr [6]byte

// ZeroMAC is the all-zero address, used as a sentinel "unset" value.
var ZeroMAC MacAddr

// ParseMAC parses the canonical "HH:HH:HH:HH:HH:HH" text form.
func ParseMAC(text string) (MacAddr, error) {
	var m MacAddr
	parts := strings.Split(text, ":")
	if len(parts) != 6 {
		return m, fmt.Errorf("%w: %q is not a MAC address", ErrMalformed, text)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return m, fmt.Errorf("%w: %q is not a MAC address", ErrMalformed, text)
		}
		m[i] = byte(v)
	}
	return m, nil
}

// MustParseMAC parses text and panics on failure. Intended for constants in
// tests and static configuration, never for untrusted input.
func MustParseMAC(text string) MacAddr {
	m, err := ParseMAC(text)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the canonical upper-case colon-separated form.
func (m MacAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is the all-zero address.
func (m MacAddr) IsZero() bool {
	return m == ZeroMAC
}

// Less orders two addresses lexicographically by byte value.
func (m MacAddr) Less(other MacAddr) bool {
	return bytes.Compare(m[:], other[:]) < 0
}

// MarshalJSON renders the address as its canonical string form.
func (m MacAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON parses the canonical string form.
func (m *MacAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	parsed, err := ParseMAC(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
