// Package id generates public identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Document ids are lowercase alphanumerics so they are safe in URLs and
// file names and compare without case folding.
const (
	documentAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	documentLength   = 24
)

// Document returns a new stable public id for a submission or article.
func Document() (string, error) {
	id, err := gonanoid.Generate(documentAlphabet, documentLength)
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}
	return id, nil
}

// Generate creates a prefixed NanoID such as "tok-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is Generate that panics when the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
