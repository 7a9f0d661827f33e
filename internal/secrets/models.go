// Package secrets turns raw capture records into the canonical version to secret mapping
// and renders it to disk.
package secrets

import "sort"

// Secret is one canonical secret.
type Secret struct {
	Version int    `json:"version"`
	Secret  string `json:"secret"`
}

// SecretBytes is a secret with its characters spelled out as Unicode code points.
type SecretBytes struct {
	Version int   `json:"version"`
	Secret  []int `json:"secret"`
}

// SecretDict maps a decimal version string to the secret's code points.
type SecretDict map[string][]int

// Mapping is the canonical version to secret mapping. Versions are always > 0.
type Mapping map[int]string

// Versions returns the mapping's versions in ascending order.
func (m Mapping) Versions() []int {
	versions := make([]int, 0, len(m))
	for v := range m {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Codepoints returns one entry per character of s, holding its Unicode code point.
func Codepoints(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		out = append(out, int(r))
	}
	return out
}
