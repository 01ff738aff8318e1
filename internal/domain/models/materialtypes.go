// internal/domain/models/materialtypes.go
package models

// Material status values stored in Material.Status.
const (
	MaterialStatusActive   = "active"
	MaterialStatusArchived = "archived"
	MaterialStatusPending  = "pending"
)

// MaterialStatuses lists every valid status in display order.
var MaterialStatuses = []string{
	MaterialStatusActive,
	MaterialStatusArchived,
	MaterialStatusPending,
}

// IsValidMaterialStatus reports whether s is a known material status.
func IsValidMaterialStatus(s string) bool {
	for _, v := range MaterialStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Field limits for materials. These mirror the $jsonSchema validator and the
// request validation tags so the three layers agree.
const (
	MaterialTitleMin       = 3
	MaterialTitleMax       = 150
	MaterialDescriptionMin = 10
	MaterialDescriptionMax = 2000
	MaterialSubjectMax     = 50
	MaterialGradeMax       = 20
	MaterialTagsMax        = 10
	MaterialTagMax         = 30
)
