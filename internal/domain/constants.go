package domain

const (
	// EpicValue is the single-select option that marks a project item as an epic.
	EpicValue = "Epic"
	// DefaultEpicField is the project field holding the item type.
	DefaultEpicField = "Issue Type"
	// DateLayout is the ISO date layout used on both sides of the sync.
	DateLayout = "2006-01-02"
)
