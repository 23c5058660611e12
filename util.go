package main

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID returns a random UUID v4 string
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// AbsInt returns |v|
func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AbsFloat returns |v|
func AbsFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// round1 rounds to one decimal place for the wire
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatGameTime renders d as hh:mm:ss.fffffff, the layout the browser client parses.
func FormatGameTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ticks := d / 100 // 100ns units
	return fmt.Sprintf("%02d:%02d:%02d.%07d", int64(h), int64(m), int64(s), int64(ticks))
}
