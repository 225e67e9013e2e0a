package store

import "time"

// Color is the recorded sex of a person vertex.
type Color string

const (
	ColorMale    Color = "male"
	ColorFemale  Color = "female"
	ColorUnknown Color = "unknown"
)

// EdgeType classifies a parent→child edge.
type EdgeType string

const (
	EdgeUnspecifiedParentType EdgeType = "UnspecifiedParentType"
	EdgeAssumedBiological     EdgeType = "AssumedBiological"
	EdgeBiologicalParent      EdgeType = "BiologicalParent"
	EdgeNonBiological         EdgeType = "NonBiological"
	EdgeResolve               EdgeType = "Resolve"
)

// IsBiologicalIsh reports whether an edge type is followed by graph readers.
func (t EdgeType) IsBiologicalIsh() bool {
	switch t {
	case EdgeUnspecifiedParentType, EdgeAssumedBiological, EdgeBiologicalParent:
		return true
	default:
		return false
	}
}

// RunStatus is the lifecycle state of a crawl run, as stored in JOB_METADATA
// by SetRunStatus. The engine does not call SetRunStatus, so the stored value
// does not follow a run's state changes.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunResolving RunStatus = "resolving"
	RunDone      RunStatus = "done"
	RunAborted   RunStatus = "aborted"
)

// Vertex is a single person record.
type Vertex struct {
	PID       string
	Color     Color
	Surname   string
	GivenName string
	Iteration int
	Lifespan  string
}

// Edge is a directed parent→child link.
type Edge struct {
	Source         string
	Destination    string
	RelationshipID string
	Type           EdgeType
}

// IterationLogEntry is one completed-hop summary row.
type IterationLogEntry struct {
	Iteration           int
	DurationSeconds      float64
	VerticesAdded        int
	FrontierSizeAfter    int
	EdgesAdded           int
	SpanningEdgesAdded   int
	FrontierEdgesAdded   int
}

// Status is a point-in-time snapshot for `checkpoint --status` and metrics.
type Status struct {
	FrontierDepth   int
	ProcessingDepth int
	VertexCount     int
	EdgeCount       int
	LastIteration   int
	RunStatus       RunStatus
	UpdatedAt       time.Time
}
