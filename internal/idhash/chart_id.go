package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ChartKey identifies one chart request over one data version.
type ChartKey struct {
	Subject   string // "station:<ref>" or "fuel:<id>"
	Transform string
	Mode      string // average mode name, empty unless Transform is average
	Pattern   string // raw pattern text, empty for none
	Begin     int64  // Unix ms, 0 = unbounded
	End       int64  // Unix ms, 0 = unbounded
	Version   uint64 // data revision (stations and prices) the chart was built from
}

// ComputeChartID computes a deterministic chart request id using SHA256.
// Formula: SHA256(subject|transform|mode|pattern|begin|end|version)
// Returns the base58-encoded hash.
func ComputeChartID(k ChartKey) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%d|%d",
		k.Subject,
		k.Transform,
		k.Mode,
		k.Pattern,
		k.Begin,
		k.End,
		k.Version,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// StationSubject returns the chart subject of a station reference (id or
// name, as requested).
func StationSubject(ref string) string {
	return "station:" + ref
}

// FuelSubject returns the chart subject of a fuel type id.
func FuelSubject(fuelID int) string {
	return fmt.Sprintf("fuel:%d", fuelID)
}
