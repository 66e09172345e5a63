package fitsimage

import (
	"math/big"
	"strings"

	"github.com/astrogo/fitsio"
)

// Header is a read-only copy of the cards of a FITS header. Lookups report
// whether the key was present, so an absent key and a key holding a zero
// value are distinct.
type Header struct {
	keys  []string
	cards map[string]fitsio.Card
}

func newHeader(h *fitsio.Header) *Header {
	hdr := &Header{cards: make(map[string]fitsio.Card)}
	for _, key := range h.Keys() {
		card := h.Get(key)
		if card == nil {
			continue
		}
		name := strings.ToUpper(strings.TrimSpace(key))
		if _, dup := hdr.cards[name]; dup {
			continue
		}
		hdr.keys = append(hdr.keys, name)
		hdr.cards[name] = *card
	}
	return hdr
}

// NewHeader builds a Header from a list of cards, first occurrence wins
func NewHeader(cards ...fitsio.Card) *Header {
	hdr := &Header{cards: make(map[string]fitsio.Card)}
	for _, card := range cards {
		name := strings.ToUpper(strings.TrimSpace(card.Name))
		if _, dup := hdr.cards[name]; dup {
			continue
		}
		card.Name = name
		hdr.keys = append(hdr.keys, name)
		hdr.cards[name] = card
	}
	return hdr
}

// Keys returns the header keys in file order
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Card returns the full card for key
func (h *Header) Card(key string) (fitsio.Card, bool) {
	card, ok := h.cards[strings.ToUpper(key)]
	return card, ok
}

// Value returns the raw value of key
func (h *Header) Value(key string) (any, bool) {
	card, ok := h.cards[strings.ToUpper(key)]
	if !ok || card.Value == nil {
		return nil, false
	}
	return card.Value, true
}

// Float returns a numeric key as float64. Non-numeric values are reported
// as absent.
func (h *Header) Float(key string) (float64, bool) {
	v, ok := h.Value(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	}
	return 0, false
}

// Int returns an integer key
func (h *Header) Int(key string) (int, bool) {
	v, ok := h.Value(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	}
	return 0, false
}

// String returns a string key with trailing blanks removed
func (h *Header) String(key string) (string, bool) {
	v, ok := h.Value(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimRight(s, " "), true
}
