package domain

// PriceObservation is one stored price point.
// Corresponds to the prices table; (station_id, fuel_id, timestamp_ms) is unique.
type PriceObservation struct {
	StationID   int64    // references stations.id
	Fuel        FuelType // stored as fuel_id
	TimestampMs int64    // Unix timestamp in milliseconds
	Price       float32  // price per unit
}

// PriceStats summarizes the price store.
type PriceStats struct {
	Stations    int    // number of stations
	Prices      int64  // number of stored observations
	FirstUpdate int64  // earliest timestamp (ms), 0 when empty
	LastUpdate  int64  // latest timestamp (ms), 0 when empty
	Revision    uint64 // fingerprint of station rows and price state
}
