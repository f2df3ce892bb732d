package models

// TemplateSpec is a board blueprint: the columns, and per-column seed
// cards, to materialize when creating a sub-board from a template.
// Column order in the slice is preserved as the created column order.
type TemplateSpec struct {
	Name               string           `yaml:"name" json:"name"`
	ApprovalColumnName string           `yaml:"approval_column" json:"approvalColumnName,omitempty"`
	Columns            []TemplateColumn `yaml:"columns" json:"columns"`
}

// TemplateColumn is one column of a blueprint with its seed cards.
type TemplateColumn struct {
	Name  string         `yaml:"name" json:"name"`
	Cards []TemplateCard `yaml:"cards,omitempty" json:"cards,omitempty"`
}

// TemplateCard is a seed card created inside its template column.
type TemplateCard struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// SeedCardCount returns the total number of seed cards across columns.
func (t *TemplateSpec) SeedCardCount() int {
	n := 0
	for _, col := range t.Columns {
		n += len(col.Cards)
	}
	return n
}
