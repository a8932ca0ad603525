package types

// Stats accumulates write counters for one load. Counters are only advanced
// after the database confirms a write, and only merged into a run total on
// commit, so a rollback never leaks counts.
type Stats struct {
	NodesCreated         int            `json:"nodes_created"`
	RelationshipsCreated int            `json:"relationships_created"`
	NodesDeleted         int            `json:"nodes_deleted"`
	RelationshipsDeleted int            `json:"relationships_deleted"`
	IndexesCreated       int            `json:"indexes_created"`
	NodesByKind          map[string]int `json:"nodes_by_kind"`
	RelationshipsByLabel map[string]int `json:"relationships_by_label"`
	NodesDeletedByKind   map[string]int `json:"nodes_deleted_by_kind"`
}

// NewStats returns a zeroed Stats with initialized maps.
func NewStats() *Stats {
	return &Stats{
		NodesByKind:          make(map[string]int),
		RelationshipsByLabel: make(map[string]int),
		NodesDeletedByKind:   make(map[string]int),
	}
}

// AddNodes credits node creations against a kind.
func (s *Stats) AddNodes(kind string, n int) {
	if n == 0 {
		return
	}
	s.NodesCreated += n
	s.NodesByKind[kind] += n
}

// AddRelationships credits relationship creations against an edge label.
func (s *Stats) AddRelationships(label string, n int) {
	if n == 0 {
		return
	}
	s.RelationshipsCreated += n
	s.RelationshipsByLabel[label] += n
}

// AddDeleted credits node and relationship deletions against a kind.
func (s *Stats) AddDeleted(kind string, nodes, relationships int) {
	s.NodesDeleted += nodes
	s.RelationshipsDeleted += relationships
	if nodes != 0 && kind != "" {
		s.NodesDeletedByKind[kind] += nodes
	}
}

// Merge folds another Stats (for example a plugin's) into this one.
func (s *Stats) Merge(other *Stats) {
	if other == nil {
		return
	}
	s.NodesCreated += other.NodesCreated
	s.RelationshipsCreated += other.RelationshipsCreated
	s.NodesDeleted += other.NodesDeleted
	s.RelationshipsDeleted += other.RelationshipsDeleted
	s.IndexesCreated += other.IndexesCreated
	for k, v := range other.NodesByKind {
		s.NodesByKind[k] += v
	}
	for k, v := range other.RelationshipsByLabel {
		s.RelationshipsByLabel[k] += v
	}
	for k, v := range other.NodesDeletedByKind {
		s.NodesDeletedByKind[k] += v
	}
}

// Reset zeroes every counter in place.
func (s *Stats) Reset() {
	s.NodesCreated = 0
	s.RelationshipsCreated = 0
	s.NodesDeleted = 0
	s.RelationshipsDeleted = 0
	s.IndexesCreated = 0
	s.NodesByKind = make(map[string]int)
	s.RelationshipsByLabel = make(map[string]int)
	s.NodesDeletedByKind = make(map[string]int)
}
