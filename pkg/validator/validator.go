// Package validator holds small generic validation helpers for
// configuration structs.
package validator

import (
	"fmt"
	"slices"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

// NotEmpty rejects an empty string field.
func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

// OneOf rejects a value outside the allowed set. An empty value passes;
// pair with NotEmpty when the field is required.
func OneOf[T comparable](value T, allowed []T, description string) error {
	var zero T
	if value == zero {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, value)
	}
	return nil
}

// NoDuplicates rejects a slice containing the same value twice.
func NoDuplicates[T comparable](items []T, description string) error {
	seen := make(map[T]struct{}, len(items))
	for _, v := range items {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}
