// Package equipment holds the inventory records the protected API serves.
package equipment

// Status values for a piece of equipment.
const (
	StatusAvailable = "available"
	StatusIssued    = "issued"
	StatusFaulty    = "faulty"
)

type Equipment struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`               // Component name
	Code         string `json:"code,omitempty"`     // Inventory code
	Category     string `json:"category,omitempty"` // e.g. Resistor, Tool, IC
	Lab          string `json:"lab,omitempty"`      // Main storage lab
	TotalQty     int    `json:"total_qty"`
	AvailableQty int    `json:"available_qty"`
	Status       string `json:"status"`
}
