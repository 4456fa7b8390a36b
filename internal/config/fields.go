package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"
)

// Field helpers shared by the section configs. Overlay and env values only
// replace a field when they are set; defaults only fill empty fields.

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func fallback[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}

func fromEnv(dst *string, key string) {
	overlay(dst, os.Getenv(key))
}

func fromEnvInt(dst *int, key string) {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = n
	}
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// checkDurations requires every named value to parse as a positive duration.
func checkDurations(fields map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if d, err := time.ParseDuration(fields[name]); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", name, fields[name])
		}
	}
	return nil
}
