// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// NormalizeHeader turns a CSV column header into its lookup key: folded,
// BOM-free, with inner spaces and dashes collapsed into underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = LowerASCIIFolding(h)

	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}

		return r
	}, h)
}
