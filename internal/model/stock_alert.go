package model

// AlertLevel is the urgency of restocking an item.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical" // out of stock
	AlertHigh     AlertLevel = "high"
	AlertMedium   AlertLevel = "medium"
	AlertNone     AlertLevel = "none"
)

// ClassifyStock maps a quantity on hand and a reorder level to an AlertLevel.
// Zero stock is always critical; at or below half the reorder level (rounded
// up) is high; at or below the reorder level is medium.
func ClassifyStock(quantity, reorderLevel int) AlertLevel {
	switch {
	case quantity <= 0:
		return AlertCritical
	case quantity <= (reorderLevel+1)/2:
		return AlertHigh
	case quantity <= reorderLevel:
		return AlertMedium
	default:
		return AlertNone
	}
}

// Severity orders levels so that callers can detect an escalation.
func (l AlertLevel) Severity() int {
	switch l {
	case AlertCritical:
		return 3
	case AlertHigh:
		return 2
	case AlertMedium:
		return 1
	default:
		return 0
	}
}
