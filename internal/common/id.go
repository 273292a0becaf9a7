package common

import (
	"github.com/google/uuid"
)

// NewScanID generates a unique scan ID with the "scan_" prefix
func NewScanID() string {
	return "scan_" + uuid.New().String()
}

// NewPageID generates a unique page ID with the "page_" prefix
func NewPageID() string {
	return "page_" + uuid.New().String()
}

// NewID generates a bare UUID string
func NewID() string {
	return uuid.New().String()
}
