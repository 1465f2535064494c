package core

import (
	"fmt"
	"strings"
)

// ResolveSchema classifies raw column headers into field roles using the
// configuration's naming convention. Every header must be ignored, a
// left/right attribute, the label, or the id; anything else fails with a
// SchemaError. Every left attribute must pair 1:1 by base name with a right
// attribute.
//
// For unlabeled datasets the absence of a label column is expected; a label
// column that is nonetheless present is classified but its values are not
// interpreted by the loader.
func ResolveSchema(headers []string, cfg Config, role Role) (*Schema, error) {
	s := &Schema{
		Columns:    make([]Column, len(headers)),
		LabelIndex: -1,
		IDIndex:    -1,
	}

	leftAt := make(map[string]int)
	rightAt := make(map[string]int)

	for i, name := range headers {
		col := Column{Name: name}
		switch {
		case cfg.IsIgnored(name):
			col.Role = FieldIgnored
		case name == cfg.LabelAttr:
			if s.LabelIndex >= 0 {
				return nil, &SchemaError{Column: name, Reason: "duplicate label column"}
			}
			col.Role = FieldLabel
			s.LabelIndex = i
		case name == cfg.IDAttr:
			if s.IDIndex >= 0 {
				return nil, &SchemaError{Column: name, Reason: "duplicate id column"}
			}
			col.Role = FieldID
			s.IDIndex = i
		case strings.HasPrefix(name, cfg.LeftPrefix):
			col.Role = FieldLeft
			col.Base = strings.TrimPrefix(name, cfg.LeftPrefix)
			if _, dup := leftAt[col.Base]; dup {
				return nil, &SchemaError{Column: name, Reason: "duplicate left attribute"}
			}
			leftAt[col.Base] = i
			s.Attrs = append(s.Attrs, col.Base)
		case strings.HasPrefix(name, cfg.RightPrefix):
			col.Role = FieldRight
			col.Base = strings.TrimPrefix(name, cfg.RightPrefix)
			if _, dup := rightAt[col.Base]; dup {
				return nil, &SchemaError{Column: name, Reason: "duplicate right attribute"}
			}
			rightAt[col.Base] = i
		default:
			return nil, &SchemaError{Column: name, Reason: fmt.Sprintf(
				"unrecognized: not ignored, not %q/%q, and no %q/%q prefix",
				cfg.LabelAttr, cfg.IDAttr, cfg.LeftPrefix, cfg.RightPrefix)}
		}
		s.Columns[i] = col
	}

	if role.Labeled() && s.LabelIndex < 0 {
		return nil, &SchemaError{Column: cfg.LabelAttr, Reason: "label column missing"}
	}
	if len(s.Attrs) == 0 {
		return nil, &SchemaError{Reason: "no attribute columns found"}
	}

	// Attributes must pair exactly by base name.
	for _, base := range s.Attrs {
		ri, ok := rightAt[base]
		if !ok {
			return nil, &SchemaError{Column: cfg.LeftPrefix + base, Reason: "no matching right attribute"}
		}
		s.LeftIndexes = append(s.LeftIndexes, leftAt[base])
		s.RightIndexes = append(s.RightIndexes, ri)
	}
	for base := range rightAt {
		if _, ok := leftAt[base]; !ok {
			return nil, &SchemaError{Column: cfg.RightPrefix + base, Reason: "no matching left attribute"}
		}
	}

	return s, nil
}
