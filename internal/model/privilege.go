package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "sale:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivInventoryView   = "inventory:view"
	PrivInventoryCreate = "inventory:create"
	PrivInventoryUpdate = "inventory:update"
	PrivInventoryDelete = "inventory:delete"
	PrivSaleView        = "sale:view"
	PrivSaleCreate      = "sale:create"
	PrivSaleEdit        = "sale:edit"
	PrivSaleExport      = "sale:export"
	PrivDashboardView   = "dashboard:view"
)

// DefaultPrivileges are seeded on startup.
var DefaultPrivileges = []Privilege{
	{Code: PrivInventoryView, Name: "View Inventory"},
	{Code: PrivInventoryCreate, Name: "Create Inventory Item"},
	{Code: PrivInventoryUpdate, Name: "Update Inventory Item"},
	{Code: PrivInventoryDelete, Name: "Delete Inventory Item"},
	{Code: PrivSaleView, Name: "View Sales"},
	{Code: PrivSaleCreate, Name: "Checkout Sale"},
	{Code: PrivSaleEdit, Name: "Edit Sale"},
	{Code: PrivSaleExport, Name: "Export Sales"},
	{Code: PrivDashboardView, Name: "View Dashboard"},
}

// CashierPrivileges is the subset granted to the CASHIER role.
var CashierPrivileges = []string{PrivInventoryView, PrivSaleView, PrivSaleCreate}
