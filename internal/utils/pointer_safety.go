package utils

import "strings"

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// ClonePtr returns a new pointer to a copy of *v, or nil.
func ClonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// NilIfBlank returns nil for values a browser-era client stored to mean "absent"
// ("", "null", "undefined"), otherwise a pointer to the trimmed value.
func NilIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	switch s {
	case "", "null", "undefined":
		return nil
	}
	return &s
}
