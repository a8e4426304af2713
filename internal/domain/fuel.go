package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FuelType is a tracked commodity kind. The numeric value is the stable id
// used in storage (prices.fuel_id).
type FuelType int

const (
	FuelDiesel FuelType = iota
	FuelTruckDiesel
	FuelSuperE10
	FuelSuperE5
	FuelSuper95
	FuelSuperPlus
	FuelAutogas
)

type fuelInfo struct {
	key          string // enum-style name
	name         string // display name
	vendorLabels []string
	color        Color
}

var fuelTable = [...]fuelInfo{
	FuelDiesel:      {"DIESEL", "Diesel", []string{"Shell Diesel FuelSave"}, Color{0x33, 0x33, 0x33}},
	FuelTruckDiesel: {"TRUCK_DIESEL", "LKW-Diesel", []string{"Shell Truck Diesel", "Truck Diesel"}, Color{0x8b, 0x45, 0x13}},
	FuelSuperE10:    {"SUPER_E10", "Super E10", []string{"Shell Super FuelSave E10"}, Color{0x2e, 0x8b, 0x57}},
	FuelSuperE5:     {"SUPER_E5", "Super E5", []string{"Shell Super FuelSave E5"}, Color{0x1e, 0x90, 0xff}},
	FuelSuper95:     {"SUPER_95", "Super 95", []string{"Shell Super FuelSave 95"}, Color{0xff, 0x8c, 0x00}},
	FuelSuperPlus:   {"SUPER_PLUS", "SuperPlus", nil, Color{0xdc, 0x14, 0x3c}},
	FuelAutogas:     {"AUTOGAS", "Autogas", []string{"Shell Autogas (LPG)", "LPG"}, Color{0x94, 0x00, 0xd3}},
}

// FuelTypes returns every fuel type in id order.
func FuelTypes() []FuelType {
	out := make([]FuelType, len(fuelTable))
	for i := range fuelTable {
		out[i] = FuelType(i)
	}
	return out
}

// IsValid reports whether f is a known fuel type.
func (f FuelType) IsValid() bool {
	return f >= 0 && int(f) < len(fuelTable)
}

// ID returns the storage id of f.
func (f FuelType) ID() int {
	return int(f)
}

// Name returns the display name.
func (f FuelType) Name() string {
	if !f.IsValid() {
		return fmt.Sprintf("FuelType(%d)", int(f))
	}
	return fuelTable[f].name
}

// Color returns the canonical display color.
func (f FuelType) Color() Color {
	if !f.IsValid() {
		return Color{}
	}
	return fuelTable[f].color
}

// String returns the display name.
func (f FuelType) String() string {
	return f.Name()
}

// FuelByID returns the fuel type with the given storage id.
func FuelByID(id int) (FuelType, bool) {
	f := FuelType(id)
	return f, f.IsValid()
}

// ParseFuelType resolves a fuel type from an id, enum name, display name or
// vendor label. Matching is case-insensitive.
func ParseFuelType(s string) (FuelType, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		if f, ok := FuelByID(id); ok {
			return f, nil
		}
		return 0, fmt.Errorf("unknown fuel id %d", id)
	}

	for i, info := range fuelTable {
		if strings.EqualFold(s, info.key) || strings.EqualFold(s, info.name) {
			return FuelType(i), nil
		}
		for _, label := range info.vendorLabels {
			if strings.EqualFold(s, label) {
				return FuelType(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown fuel %q", s)
}
