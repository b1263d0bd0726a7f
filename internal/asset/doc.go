// Package asset resolves symbolic token references against the immutable
// process allowlist and scales user supplied decimal amounts into exact
// minimal-unit big integers.
package asset
