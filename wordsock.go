// Package wordsock encodes network endpoints as short pronounceable
// word sequences that are fully reversible for the common cases.
//
// An IPv4 endpoint becomes exactly four dot-separated words and always
// round-trips bit for bit. An IPv6 endpoint is classified into a
// structural category, compressed, and emitted as six or nine
// dash-separated words; loopback, unspecified, link-local,
// documentation, and zero-interface unique-local addresses round-trip
// exactly, while the remaining categories may lose interface identifier
// bits and reconstruct with a zero fill. The separator makes the form
// self-identifying: dots mean IPv4, dashes mean IPv6.
package wordsock

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/wordsock/wordsock/feistel"
	"github.com/wordsock/wordsock/ipv6comp"
	"github.com/wordsock/wordsock/wordlist"
)

// Errors surfaced to callers. Each is wrapped with the offending
// substring or token where one exists; use errors.Is to match.
var (
	// ErrParseInput indicates a malformed endpoint or word string.
	ErrParseInput = errors.New("wordsock: cannot parse input")

	// ErrUnknownWord indicates a token that does not resolve to a
	// dictionary index valid for its position.
	ErrUnknownWord = errors.New("wordsock: unknown word")

	// ErrWrongWordCount indicates a word string whose token count does
	// not match any encoded form.
	ErrWrongWordCount = errors.New("wordsock: wrong word count")

	// ErrUnsupportedAddress indicates an input that no category can
	// represent, or a word string whose payload names no category.
	ErrUnsupportedAddress = errors.New("wordsock: unsupported address")

	// ErrInternalInvariant indicates a codec bug: it must never occur
	// on well-formed inputs.
	ErrInternalInvariant = errors.New("wordsock: internal invariant violated")
)

// Word-group geometry. A group of three 16-bit words carries one
// 48-bit mixed integer; an IPv4 endpoint instead spreads its single
// mixed integer across four 12-bit words.
const (
	groupBytes = 6
	groupWords = 3

	ipv4Words    = 4
	ipv4WordBits = 12
	ipv4WordMask = 1<<ipv4WordBits - 1

	// minGroups keeps every IPv6 endpoint at six words or more, so the
	// shortest spoken form still names both the category and the port.
	minGroups = 2
	maxGroups = 3
)

// A Codec encodes and decodes endpoints against a fixed dictionary. A
// Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	words *wordlist.List
}

// New creates a Codec backed by the embedded word list.
func New() (*Codec, error) {
	l, err := wordlist.Embedded()
	if err != nil {
		return nil, err
	}

	return &Codec{words: l}, nil
}

// NewWithList creates a Codec backed by a caller-supplied word list,
// typically parsed from an external resource with wordlist.New. The
// list ordering becomes part of the wire format of this Codec.
func NewWithList(l *wordlist.List) (*Codec, error) {
	if l == nil || l.Len() != wordlist.Size {
		return nil, fmt.Errorf("%w: dictionary must contain %d words", ErrParseInput, wordlist.Size)
	}

	return &Codec{words: l}, nil
}

var defaultCodec = sync.OnceValues(New)

// Encode encodes an endpoint using the process-wide default Codec.
func Encode(s string) (string, error) {
	c, err := defaultCodec()
	if err != nil {
		return "", err
	}

	return c.Encode(s)
}

// Decode decodes a word string using the process-wide default Codec.
func Decode(s string) (string, error) {
	c, err := defaultCodec()
	if err != nil {
		return "", err
	}

	return c.Decode(s)
}

// Valid reports whether s decodes using the process-wide default Codec.
func Valid(s string) bool {
	c, err := defaultCodec()
	if err != nil {
		return false
	}

	return c.Valid(s)
}

// Encode converts an endpoint string into its word form. The input is
// "A.B.C.D:P", "[v6]:P", or the address alone; a missing port defaults
// to zero. Whitespace around the input is tolerated.
func (c *Codec) Encode(s string) (string, error) {
	addr, port, err := parseEndpoint(s)
	if err != nil {
		return "", err
	}

	if addr.Is4() {
		return c.encode4(addr, port)
	}

	return c.encode6(addr, port)
}

// Decode converts a word string back into its endpoint string. Dots
// select the IPv4 path and dashes the IPv6 path; a mixture is
// rejected. Parsing is case-insensitive and whitespace around the
// input is tolerated.
func (c *Codec) Decode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrParseInput, s)
	}

	dots := strings.Contains(s, ".")
	dashes := strings.Contains(s, "-")
	switch {
	case dots && dashes:
		return "", fmt.Errorf("%w: mixed separators in %q", ErrParseInput, s)
	case dots:
		return c.decode4(strings.Split(s, "."))
	case dashes:
		return c.decode6(strings.Split(s, "-"))
	default:
		return "", fmt.Errorf("%w: got 1 word", ErrWrongWordCount)
	}
}

// Valid reports whether s is a well-formed word string that decodes to
// an endpoint.
func (c *Codec) Valid(s string) bool {
	_, err := c.Decode(s)
	return err == nil
}

// encode4 packs four octets and a port big-endian into a 48-bit
// integer, mixes it, and spreads the result across four 12-bit words.
func (c *Codec) encode4(addr netip.Addr, port uint16) (string, error) {
	o := addr.As4()
	v := uint64(o[0])<<40 | uint64(o[1])<<32 | uint64(o[2])<<24 |
		uint64(o[3])<<16 | uint64(port)

	m := feistel.Mix(v)

	ws := make([]string, ipv4Words)
	for i := range ws {
		idx := int(m>>(ipv4WordBits*(ipv4Words-1-i))) & ipv4WordMask

		w, err := c.words.Word(idx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInternalInvariant, err)
		}
		ws[i] = w
	}

	return strings.Join(ws, "."), nil
}

// decode4 reverses encode4 from exactly four dot-separated tokens.
func (c *Codec) decode4(tokens []string) (string, error) {
	if len(tokens) != ipv4Words {
		return "", fmt.Errorf("%w: got %d words, want %d", ErrWrongWordCount, len(tokens), ipv4Words)
	}

	var m uint64
	for _, tok := range tokens {
		idx, err := c.index(tok)
		if err != nil {
			return "", err
		}
		if idx > ipv4WordMask {
			return "", fmt.Errorf("%w: %q is not valid in the dot form", ErrUnknownWord, tok)
		}

		m = m<<ipv4WordBits | uint64(idx)
	}

	v := feistel.Unmix(m)

	addr := netip.AddrFrom4([4]byte{
		byte(v >> 40), byte(v >> 32), byte(v >> 24), byte(v >> 16),
	})

	return netip.AddrPortFrom(addr, uint16(v)).String(), nil
}

// encode6 compresses the address, pads the record with trailing zeros
// to whole word groups, and emits three 16-bit words per group.
func (c *Codec) encode6(addr netip.Addr, port uint16) (string, error) {
	rec, err := ipv6comp.Compress(addr, port)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedAddress, err)
	}

	data := rec.Data
	groups := (len(data) + groupBytes - 1) / groupBytes
	if groups < minGroups {
		groups = minGroups
	}
	if groups > maxGroups {
		return "", fmt.Errorf("%w: compressed record spans %d bytes", ErrInternalInvariant, len(data))
	}

	padded := make([]byte, groups*groupBytes)
	copy(padded, data)

	ws := make([]string, 0, groups*groupWords)
	for g := 0; g < groups; g++ {
		m := feistel.Mix(uint48(padded[g*groupBytes:]))

		for i := groupWords - 1; i >= 0; i-- {
			w, err := c.words.Word(int(m>>(16*i)) & 0xFFFF)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInternalInvariant, err)
			}
			ws = append(ws, w)
		}
	}

	return strings.Join(ws, "-"), nil
}

// decode6 reverses encode6 from 3, 6, or 9 dash-separated tokens. The
// group count is inferred from the token count.
func (c *Codec) decode6(tokens []string) (string, error) {
	if len(tokens)%groupWords != 0 || len(tokens) == 0 || len(tokens) > maxGroups*groupWords {
		return "", fmt.Errorf("%w: got %d words, want 3, 6 or 9", ErrWrongWordCount, len(tokens))
	}

	data := make([]byte, 0, len(tokens)/groupWords*groupBytes)
	for g := 0; g < len(tokens); g += groupWords {
		var m uint64
		for _, tok := range tokens[g : g+groupWords] {
			idx, err := c.index(tok)
			if err != nil {
				return "", err
			}

			m = m<<16 | uint64(idx)
		}

		data = putUint48(data, feistel.Unmix(m))
	}

	addr, port, err := ipv6comp.Decompress(data)
	switch {
	case ipv6comp.IsBadTag(err):
		return "", fmt.Errorf("%w: %v", ErrUnsupportedAddress, err)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrParseInput, err)
	}

	return netip.AddrPortFrom(addr, port).String(), nil
}

// index resolves a single token against the dictionary.
func (c *Codec) index(tok string) (int, error) {
	if tok == "" {
		return 0, fmt.Errorf("%w: empty word", ErrParseInput)
	}

	idx, err := c.words.Index(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWord, tok)
	}

	return idx, nil
}

// parseEndpoint parses "A.B.C.D:P", "[v6]:P", "A.B.C.D", "v6", or
// "[v6]" into an address and port. A missing port is zero.
func parseEndpoint(s string) (netip.Addr, uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return netip.Addr{}, 0, fmt.Errorf("%w: %q", ErrParseInput, s)
	}

	if ap, err := netip.ParseAddrPort(s); err == nil {
		return checkAddr(ap.Addr(), ap.Port())
	}

	// Address alone, with optional brackets around an IPv6 form.
	trimmed := s
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		trimmed = s[1 : len(s)-1]
	}

	addr, err := netip.ParseAddr(trimmed)
	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("%w: %q", ErrParseInput, s)
	}

	return checkAddr(addr, 0)
}

// checkAddr rejects the address forms no category can represent.
func checkAddr(addr netip.Addr, port uint16) (netip.Addr, uint16, error) {
	if addr.Zone() != "" {
		return netip.Addr{}, 0, fmt.Errorf("%w: zoned address %q", ErrUnsupportedAddress, addr)
	}

	return addr, port, nil
}

// uint48 reads a big-endian 48-bit integer from the first six bytes
// of b.
func uint48(b []byte) uint64 {
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// putUint48 appends v to b as six big-endian bytes.
func putUint48(b []byte, v uint64) []byte {
	return append(b,
		byte(v>>40), byte(v>>32), byte(v>>24),
		byte(v>>16), byte(v>>8), byte(v),
	)
}
