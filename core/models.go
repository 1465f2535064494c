package core

// Role identifies which split of a processing call a dataset belongs to.
type Role int

const (
	// RoleTrain is the training split of a labeled processing call.
	RoleTrain Role = iota + 1
	// RoleValidation is the validation split of a labeled processing call.
	RoleValidation
	// RoleTest is the test split of a labeled processing call.
	RoleTest
	// RoleUnlabeled is the single split of an unlabeled processing call.
	RoleUnlabeled
)

// String returns the lowercase name of the role.
func (r Role) String() string {
	switch r {
	case RoleTrain:
		return "train"
	case RoleValidation:
		return "validation"
	case RoleTest:
		return "test"
	case RoleUnlabeled:
		return "unlabeled"
	default:
		return "unknown"
	}
}

// Labeled reports whether datasets with this role carry a label column.
func (r Role) Labeled() bool {
	return r == RoleTrain || r == RoleValidation || r == RoleTest
}

// FieldRole classifies a single column of an input file.
type FieldRole int

const (
	// FieldLeft marks a column holding an attribute of the left record.
	FieldLeft FieldRole = iota + 1
	// FieldRight marks a column holding an attribute of the right record.
	FieldRight
	// FieldLabel marks the match label column.
	FieldLabel
	// FieldID marks the pair identifier column.
	FieldID
	// FieldIgnored marks a column excluded from processing.
	FieldIgnored
)

// Column is one classified header of an input file.
type Column struct {
	Name string
	Role FieldRole
	// Base is the attribute name with the left/right prefix stripped.
	// Empty unless Role is FieldLeft or FieldRight.
	Base string
}

// Schema is the resolved column layout of one dataset. It is built once by
// ResolveSchema and immutable afterwards.
type Schema struct {
	// Columns lists every header in file order, classified.
	Columns []Column
	// Attrs lists the paired attribute base names in left-column order.
	Attrs []string
	// LeftIndexes and RightIndexes give, per Attrs entry, the column index
	// of the left and right occurrence of that attribute.
	LeftIndexes  []int
	RightIndexes []int
	// LabelIndex is the label column index, -1 when absent.
	LabelIndex int
	// IDIndex is the id column index, -1 when absent.
	IDIndex int
}

// NoLabel is the Example.Label value for datasets without a label column.
const NoLabel = -1

// Example is one processed record pair. Left and Right hold, per schema
// attribute, the normalized token sequence of that field. Examples are owned
// by their dataset and never shared.
type Example struct {
	ID    string
	Label int
	Left  [][]string
	Right [][]string
}

// Dataset holds the processed examples of one split, in input row order.
type Dataset struct {
	Role     Role
	Path     string
	Schema   *Schema
	Examples []Example
}

// Tokens calls fn for every token of every example, visiting examples in
// row order and, within an example, left fields before right fields in
// schema attribute order. The visit order is deterministic so callers can
// derive reproducible, order-sensitive structures from it.
func (d *Dataset) Tokens(fn func(token string)) {
	for i := range d.Examples {
		for _, field := range d.Examples[i].Left {
			for _, tok := range field {
				fn(tok)
			}
		}
		for _, field := range d.Examples[i].Right {
			for _, tok := range field {
				fn(tok)
			}
		}
	}
}

// Frequencies is the training-split token frequency table. Counts covers
// every occurrence across all left and right fields of the training split
// only.
type Frequencies struct {
	Counts map[string]int
}

// Count returns the number of training-split occurrences of token.
func (f *Frequencies) Count(token string) int {
	return f.Counts[token]
}

// TokenCount pairs a token with its frequency.
type TokenCount struct {
	Token string
	Count int
}
