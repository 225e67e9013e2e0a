package store

// schemaVersion is the current forward-only migration level. open() applies
// every migration above the version recorded in JOB_METADATA.
const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS VERTEX (
	id TEXT PRIMARY KEY,
	color TEXT NOT NULL DEFAULT 'unknown',
	surname TEXT NOT NULL DEFAULT '',
	given_name TEXT NOT NULL DEFAULT '',
	iteration INTEGER NOT NULL DEFAULT 0,
	lifespan TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_vertex_iteration ON VERTEX(iteration);

CREATE TABLE IF NOT EXISTS EDGE (
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	id TEXT NOT NULL,
	type TEXT NOT NULL,
	prior_type TEXT NOT NULL DEFAULT '',
	resolved INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, destination, id)
);

CREATE INDEX IF NOT EXISTS idx_edge_type_source ON EDGE(type, source);
CREATE INDEX IF NOT EXISTS idx_edge_type_destination ON EDGE(type, destination);
CREATE INDEX IF NOT EXISTS idx_edge_relationship ON EDGE(id);

CREATE TABLE IF NOT EXISTS FRONTIER_QUEUE (
	id TEXT PRIMARY KEY,
	seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_frontier_seq ON FRONTIER_QUEUE(seq);

CREATE TABLE IF NOT EXISTS PROCESSING_QUEUE (
	id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS LOG (
	iteration INTEGER PRIMARY KEY,
	duration REAL NOT NULL,
	vertices INTEGER NOT NULL,
	frontier INTEGER NOT NULL,
	edges INTEGER NOT NULL,
	spanning_edges INTEGER NOT NULL,
	frontier_edges INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS JOB_METADATA (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS RESOLUTION_LOG (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	duration REAL NOT NULL,
	relationships_resolved INTEGER NOT NULL,
	resolved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS JOB_LOCK (
	name TEXT PRIMARY KEY,
	holder TEXT NOT NULL,
	acquired_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// metadata keys held in JOB_METADATA.
const (
	metaSchemaVersion   = "schema_version"
	metaSeeds           = "seeds"
	metaMaxHops         = "max_hops"
	metaThrottleConfig  = "throttle_config"
	metaRunStatus       = "run_status"
	metaLastCheckpoint  = "last_checkpoint_event"
	metaLastCheckpointTS = "last_checkpoint_timestamp"
	metaFrontierSeq     = "frontier_seq"
)
