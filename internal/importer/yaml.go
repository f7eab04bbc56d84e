package importer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lineagekit/lineage/pkg/types"
)

// TreeFile is the YAML document describing one family tree. Member IDs are
// local to the file; edges and marriages reference them by those local IDs
// and the importer assigns canonical store IDs on insert.
type TreeFile struct {
	Name      string         `yaml:"name"`
	Members   []MemberEntry  `yaml:"members"`
	Edges     []EdgeEntry    `yaml:"edges"`
	Marriages []MarriageEntry `yaml:"marriages"`
}

// MemberEntry is one member row in a tree file.
type MemberEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// EdgeEntry is one parent-child link in a tree file. Kind defaults to
// biological when omitted.
type EdgeEntry struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
	Kind   string `yaml:"kind"`
}

// MarriageEntry is one marriage in a tree file. Status defaults to married
// when omitted.
type MarriageEntry struct {
	Spouse1 string `yaml:"spouse1"`
	Spouse2 string `yaml:"spouse2"`
	Status  string `yaml:"status"`
}

// ParseTreeFile decodes and validates a YAML tree document. Validation is
// strict: a file that references members it does not declare, or declares a
// member twice, is rejected whole rather than partially imported.
func ParseTreeFile(data []byte) (*TreeFile, error) {
	var tf TreeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if strings.TrimSpace(tf.Name) == "" {
		return nil, fmt.Errorf("tree name is required")
	}
	if len(tf.Members) == 0 {
		return nil, fmt.Errorf("tree %q declares no members", tf.Name)
	}

	seen := make(map[string]bool, len(tf.Members))
	for i, m := range tf.Members {
		if strings.TrimSpace(m.ID) == "" {
			return nil, fmt.Errorf("member %d: id is required", i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate member id %q", m.ID)
		}
		seen[m.ID] = true
	}

	for i := range tf.Edges {
		e := &tf.Edges[i]
		if e.Kind == "" {
			e.Kind = string(types.ParentChildBiological)
		}
		if !types.ParentChildKind(e.Kind).Valid() {
			return nil, fmt.Errorf("edge %d: unrecognized kind %q", i, e.Kind)
		}
		if !seen[e.Parent] || !seen[e.Child] {
			return nil, fmt.Errorf("edge %d: references undeclared member", i)
		}
		if e.Parent == e.Child {
			return nil, fmt.Errorf("edge %d: member %q cannot be its own parent", i, e.Parent)
		}
	}

	for i := range tf.Marriages {
		m := &tf.Marriages[i]
		if m.Status == "" {
			m.Status = string(types.MarriageMarried)
		}
		if !types.MarriageStatus(m.Status).Valid() {
			return nil, fmt.Errorf("marriage %d: unrecognized status %q", i, m.Status)
		}
		if !seen[m.Spouse1] || !seen[m.Spouse2] {
			return nil, fmt.Errorf("marriage %d: references undeclared member", i)
		}
		if m.Spouse1 == m.Spouse2 {
			return nil, fmt.Errorf("marriage %d: member %q cannot marry itself", i, m.Spouse1)
		}
	}

	return &tf, nil
}
