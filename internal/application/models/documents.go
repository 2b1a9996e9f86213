package models

import (
	"fmt"
	"slices"

	dErrors "admission/pkg/domain-errors"
)

// DefaultDocumentMaxBytes applies to any key without its own ceiling.
const DefaultDocumentMaxBytes int64 = 2 << 20

var (
	imageTypes    = []string{"image/jpeg", "image/png"}
	scanTypes     = []string{"application/pdf", "image/jpeg", "image/png"}
	documentTypes = map[string][]string{
		"photograph":             imageTypes,
		"signature":              imageTypes,
		"sscMarksheet":           scanTypes,
		"hscMarksheet":           scanTypes,
		"mhtcetScorecard":        scanTypes,
		"neetScorecard":          scanTypes,
		"leavingCertificate":     scanTypes,
		"nationalityCertificate": scanTypes,
		"domicileCertificate":    scanTypes,
		"aadharCard":             scanTypes,
		"casteCertificate":       scanTypes,
		"casteValidity":          scanTypes,
		"nonCreamyLayer":         scanTypes,
		"incomeCertificate":      scanTypes,
	}
)

// DocumentKeys lists every accepted document key.
func DocumentKeys() []string {
	keys := make([]string, 0, len(documentTypes))
	for k := range documentTypes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DocumentPolicy holds per-key size ceilings.
type DocumentPolicy struct {
	DefaultMaxBytes int64
	MaxBytes        map[string]int64
}

// MaxBytesFor returns the ceiling for key.
func (p DocumentPolicy) MaxBytesFor(key string) int64 {
	if n, ok := p.MaxBytes[key]; ok && n > 0 {
		return n
	}
	if p.DefaultMaxBytes > 0 {
		return p.DefaultMaxBytes
	}
	return DefaultDocumentMaxBytes
}

// Check validates an upload before it is attached to the application.
func (p DocumentPolicy) Check(key, contentType string, size int64) error {
	allowed, ok := documentTypes[key]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "unknown document: "+key)
	}
	if size <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "document is empty")
	}
	if limit := p.MaxBytesFor(key); size > limit {
		return dErrors.New(dErrors.CodeOversizedDocument,
			fmt.Sprintf("%s must be at most %d KB", key, limit>>10))
	}
	if !slices.Contains(allowed, contentType) {
		return dErrors.New(dErrors.CodeUnsupportedDocument,
			fmt.Sprintf("%s must be one of %v", key, allowed))
	}
	return nil
}
