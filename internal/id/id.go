// Package id generates identifiers for persisted records and cart bundle groups.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for persisted records.
const (
	PrefixBundle = "bnd"
	PrefixItem   = "itm"
)

// Generate creates a prefixed NanoID, e.g. "bnd-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewBundleKey returns a fresh correlation key shared by every cart line
// added for one bundle purchase.
func NewBundleKey() string {
	return uuid.NewString()
}
