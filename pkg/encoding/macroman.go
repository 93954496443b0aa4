// Package encoding provides text encoding utilities for Mac resource identifiers.
package encoding

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// MacRomanToUTF8 converts MacRoman encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func MacRomanToUTF8(data []byte) string {
	decoder := charmap.Macintosh.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToMacRoman converts a UTF-8 string to MacRoman encoded bytes.
// Runes with no MacRoman representation are an error.
func UTF8ToMacRoman(s string) ([]byte, error) {
	encoder := charmap.Macintosh.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %q as MacRoman: %w", s, err)
	}
	return result, nil
}
