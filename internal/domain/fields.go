package domain

// FieldOrder is the canonical column order of a specification record. It is the
// header of a fresh catalog and the row order of a comparison table.
var FieldOrder = []string{
	"Models", "Variant", "Ex-Showroom Price INR", "Bharat Stage", "FI/Carburettor",
	"Displacement (cc)", "Engine Layout", "Head Cam Layout", "Valve Type", "Engine Cool Type",
	"Compression Ratio", "Bore X Stroke (mm)", "Maximum Power", "Maximum Torque", "Final Drive",
	"Gear Box", "Length (mm)", "Width (mm)", "Height (mm)", "Wheelbase (mm)",
	"Ground Clearence (mm)", "Seat Height (mm)", "Seat Type", "Kerb Weight (kg)", "Fuel Tank Capacity (L)",
	"Front Tyre Size", "Rear Tyre Size", "Wheels", "Front Suspension", "Fork Diameter",
	"Adjustable Front Suspension", "Front Suspension Stroke", "Rear Suspension", "Adjustable Rear Suspension", "Rear Suspension Stroke",
	"Front Brake Size", "Rear Brake Size", "ABS", "Switachable ABS", "Cornering ABS",
	"Traction Control", "Switachable Traction control", "Ride by Wire", "Riding Mode", "Steering Stabiliser",
	"Cruise Control", "Slipper clutch", "Quickshifter", "Day Time Running Lamp (DRL)", "Headlamp",
	"Taillamp", "Indicators", "Instrument Display", "Connected Features", "GPS Navigation",
	"Starting System", "Silent Start", "Idle Start Stop", "Windshiled", "Adjustable Windshield",
	"Rear Luggage rack", "Rear Luggage rack (Capacity)", "Under Engine Cowling", "Side stand Indicator", "Side stand Inhibitor",
	"Engine Kill Switch", "Pass Switch", "Hazard lamps", "USB /Charging Socket", "Colors",
}

// NewCatalog returns an empty catalog whose header is FieldOrder.
func NewCatalog() *Catalog {
	cols := make([]string, len(FieldOrder))
	copy(cols, FieldOrder)
	return &Catalog{Columns: cols}
}

// Clone returns a copy of the catalog that shares no slices or rows with c.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Columns: make([]string, len(c.Columns)),
		Rows:    make([]Record, len(c.Rows)),
	}
	copy(out.Columns, c.Columns)
	for i, row := range c.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}
