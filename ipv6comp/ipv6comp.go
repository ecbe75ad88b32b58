// Package ipv6comp classifies IPv6 addresses into structural categories
// and packs their significant bits into compact byte records, as used
// by the word encoding of network endpoints.
//
// A record is a category tag byte, a category-specific body, and an
// optional 2-byte big-endian port. The record is decodable without
// external state: the tag determines the body structure, and the body
// plus tag plus port length determine where each field lives.
package ipv6comp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
)

// A Category is the structural class of an IPv6 address. The category
// selects the compression strategy and its byte value is the record's
// tag byte, so the values are fixed as part of the wire format.
type Category uint8

const (
	// Loopback is ::1. No significant bits.
	Loopback Category = 0

	// Unspecified is ::. No significant bits.
	Unspecified Category = 1

	// LinkLocal is fe80::/10. The low 64 bits (interface identifier)
	// are kept; the middle segments are reconstructed as zero.
	LinkLocal Category = 2

	// UniqueLocal is fc00::/7. The prefix byte, 40-bit global ID and
	// 16-bit subnet ID are kept; the interface identifier is discarded
	// and reconstructed as zero.
	UniqueLocal Category = 3

	// Documentation is 2001:db8::/32. Segments 2-3 are kept along with
	// the non-zero interface segments and their positions.
	Documentation Category = 4

	// GlobalUnicast is 2000::/3. The full address is kept, except that
	// the low byte of the interface identifier is dropped when a port
	// must also fit within the word-group budget.
	GlobalUnicast Category = 5

	// Special covers every remaining address (multicast, IPv4-mapped,
	// and other reserved space). Compressed like GlobalUnicast.
	Special Category = 6
)

// String returns the name of a Category.
func (c Category) String() string {
	switch c {
	case Loopback:
		return "loopback"
	case Unspecified:
		return "unspecified"
	case LinkLocal:
		return "link-local"
	case UniqueLocal:
		return "unique-local"
	case Documentation:
		return "documentation"
	case GlobalUnicast:
		return "global-unicast"
	case Special:
		return "special"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Documentation sub-format selectors: how many non-zero interface
// segments follow segments 2-3 in the record body.
const (
	docNone       = 0 // address ends at segment 3
	docOne        = 1 // exactly one (position, value) entry
	docMany       = 2 // two or three entries, terminated by docTerminator
	docFull       = 3 // all four interface segments, raw
	docTerminator = 0xFF
)

// Possible errors due to bad input.
var (
	errNotIPv6     = errors.New("ipv6comp: address must be IPv6")
	errShortRecord = errors.New("ipv6comp: record too short")
	errBadTag      = errors.New("ipv6comp: unknown category tag")
	errBadBody     = errors.New("ipv6comp: malformed record body")
)

// IsBadTag reports whether err indicates a record whose tag byte names
// no known category.
func IsBadTag(err error) bool { return errors.Is(err, errBadTag) }

// A Record is a compressed address: the category tag plus the packed
// significant bits. Data holds the full wire form, beginning with the
// tag byte and ending with the port when one was supplied.
type Record struct {
	Category Category
	Data     []byte
}

// Classify determines the structural category of an IPv6 address. The
// rules are tested top-to-bottom and the first match wins.
func Classify(addr netip.Addr) Category {
	switch {
	case addr == netip.IPv6Loopback():
		return Loopback
	case addr == netip.IPv6Unspecified():
		return Unspecified
	}

	a := addr.As16()
	switch {
	case a[0] == 0xfe && a[1]&0xc0 == 0x80:
		return LinkLocal
	case a[0]&0xfe == 0xfc:
		return UniqueLocal
	case binary.BigEndian.Uint32(a[0:4]) == 0x20010db8:
		return Documentation
	case a[0]&0xe0 == 0x20:
		return GlobalUnicast
	default:
		return Special
	}
}

// Compress packs addr and port into a Record. addr must be an IPv6
// address (an IPv4-mapped address is treated as IPv6 and classified
// Special).
func Compress(addr netip.Addr, port uint16) (*Record, error) {
	return compress(addr, port, true)
}

// CompressAddr packs addr alone into a Record with no port field. For
// the GlobalUnicast and Special categories this retains all 16 address
// bytes, since no port competes for the word-group budget.
func CompressAddr(addr netip.Addr) (*Record, error) {
	return compress(addr, 0, false)
}

func compress(addr netip.Addr, port uint16, hasPort bool) (*Record, error) {
	if !addr.Is6() {
		return nil, fmt.Errorf("%w: %s", errNotIPv6, addr)
	}

	a := addr.As16()
	c := Classify(addr)

	data := make([]byte, 1, 19)
	data[0] = byte(c)

	switch c {
	case Loopback, Unspecified:
		// No body: the address is fully determined by the tag.

	case LinkLocal:
		data = append(data, a[8:16]...)

	case UniqueLocal:
		// Prefix byte first: fc00::/7 leaves the L bit in byte 0, and
		// fd00:: must not decompress as fc00::.
		data = append(data, a[0:8]...)

	case Documentation:
		data = append(data, a[4:8]...)
		data = appendDocInterface(data, a)

	case GlobalUnicast, Special:
		if hasPort {
			// 16 address bytes plus tag plus port exceed the three-group
			// budget by one byte, so the low byte of the interface
			// identifier is dropped. The decoder zero-fills it.
			data = append(data, a[0:15]...)
		} else {
			data = append(data, a[0:16]...)
		}
	}

	if hasPort {
		data = binary.BigEndian.AppendUint16(data, port)
	}

	return &Record{Category: c, Data: data}, nil
}

// appendDocInterface appends the Documentation sub-format: a selector
// byte describing how many interface segments are non-zero, followed by
// (position, value) entries with positions relative to segment 4, or by
// the raw interface identifier when all four segments are non-zero.
func appendDocInterface(data []byte, a [16]byte) []byte {
	type entry struct {
		pos uint8
		val uint16
	}

	var entries []entry
	for i := 0; i < 4; i++ {
		v := binary.BigEndian.Uint16(a[8+2*i : 10+2*i])
		if v != 0 {
			entries = append(entries, entry{pos: uint8(i), val: v})
		}
	}

	switch len(entries) {
	case 0:
		data = append(data, docNone)
	case 1:
		data = append(data, docOne, entries[0].pos)
		data = binary.BigEndian.AppendUint16(data, entries[0].val)
	case 4:
		// Position-tagged entries for four segments would overflow the
		// three-group word budget, so the interface identifier is
		// stored raw instead.
		data = append(data, docFull)
		data = append(data, a[8:16]...)
	default:
		data = append(data, docMany)
		for _, e := range entries {
			data = append(data, e.pos)
			data = binary.BigEndian.AppendUint16(data, e.val)
		}
		data = append(data, docTerminator)
	}

	return data
}

// Decompress reconstructs the address and port packed in a record. It
// parses structurally from the tag byte and tolerates trailing zero
// padding appended by word-group packing. A record carrying no port
// field yields port 0.
func Decompress(data []byte) (netip.Addr, uint16, error) {
	if len(data) == 0 {
		return netip.Addr{}, 0, errShortRecord
	}

	c := Category(data[0])
	var a [16]byte

	// n is the offset just past the body, where the port begins.
	var n int

	switch c {
	case Loopback:
		a[15] = 1
		n = 1

	case Unspecified:
		n = 1

	case LinkLocal:
		if len(data) < 9 {
			return netip.Addr{}, 0, fmt.Errorf("%w: link-local body", errShortRecord)
		}
		a[0] = 0xfe
		a[1] = 0x80
		copy(a[8:16], data[1:9])
		n = 9

	case UniqueLocal:
		if len(data) < 9 {
			return netip.Addr{}, 0, fmt.Errorf("%w: unique-local body", errShortRecord)
		}
		copy(a[0:8], data[1:9])
		n = 9

	case Documentation:
		var err error
		a, n, err = decompressDoc(data)
		if err != nil {
			return netip.Addr{}, 0, err
		}

	case GlobalUnicast, Special:
		// A 17-byte record is the portless full-address form; anything
		// else carries 15 address bytes with a zero-filled low byte.
		if len(data) == 17 {
			copy(a[0:16], data[1:17])
			n = 17
		} else {
			if len(data) < 16 {
				return netip.Addr{}, 0, fmt.Errorf("%w: unicast body", errShortRecord)
			}
			copy(a[0:15], data[1:16])
			n = 16
		}

	default:
		return netip.Addr{}, 0, fmt.Errorf("%w: 0x%02x", errBadTag, data[0])
	}

	var port uint16
	if len(data) >= n+2 {
		port = binary.BigEndian.Uint16(data[n : n+2])
	}

	return netip.AddrFrom16(a), port, nil
}

// decompressDoc parses a Documentation body: segments 2-3, a selector,
// and the selected number of (position, value) interface entries or the
// raw interface identifier.
func decompressDoc(data []byte) ([16]byte, int, error) {
	var a [16]byte
	if len(data) < 6 {
		return a, 0, fmt.Errorf("%w: documentation body", errShortRecord)
	}

	binary.BigEndian.PutUint32(a[0:4], 0x20010db8)
	copy(a[4:8], data[1:5])

	set := func(pos uint8, val uint16) error {
		if pos > 3 {
			return fmt.Errorf("%w: interface segment position %d", errBadBody, pos)
		}
		binary.BigEndian.PutUint16(a[8+2*int(pos):], val)
		return nil
	}

	n := 6
	switch data[5] {
	case docNone:

	case docOne:
		if len(data) < n+3 {
			return a, 0, fmt.Errorf("%w: documentation entry", errShortRecord)
		}
		if err := set(data[n], binary.BigEndian.Uint16(data[n+1:n+3])); err != nil {
			return a, 0, err
		}
		n += 3

	case docFull:
		if len(data) < n+8 {
			return a, 0, fmt.Errorf("%w: raw interface identifier", errShortRecord)
		}
		copy(a[8:16], data[n:n+8])
		n += 8

	case docMany:
		for {
			if n >= len(data) {
				return a, 0, fmt.Errorf("%w: unterminated entry list", errBadBody)
			}
			if data[n] == docTerminator {
				n++
				break
			}
			if len(data) < n+3 {
				return a, 0, fmt.Errorf("%w: documentation entry", errShortRecord)
			}
			if err := set(data[n], binary.BigEndian.Uint16(data[n+1:n+3])); err != nil {
				return a, 0, err
			}
			n += 3
		}

	default:
		return a, 0, fmt.Errorf("%w: selector 0x%02x", errBadBody, data[5])
	}

	return a, n, nil
}
