package person

// Payload is the parsed shape of one `persons` API response: the records
// for the requested PIDs plus the parent→child relationship records that
// tie them together.
type Payload struct {
	Persons       []Record             `json:"persons"`
	Relationships []RelationshipRecord `json:"relationships"`
}

// Record is one returned person.
type Record struct {
	PID       string `json:"pid"`
	Color     string `json:"color"`
	Surname   string `json:"surname"`
	GivenName string `json:"given_name"`
	Lifespan  string `json:"lifespan"`
}

// RelationshipRecord is one returned parent→child link. Either parent may
// be empty (unknown/not yet discovered), but at least one must be present.
type RelationshipRecord struct {
	RelationshipID string `json:"relationship_id"`
	ParentPID1     string `json:"parent_pid_1"`
	ParentPID2     string `json:"parent_pid_2"`
	ChildPID       string `json:"child_pid"`
	// Type carries an already-typed fact from the payload, if the remote
	// service supplied one. Empty means UnspecifiedParentType.
	Type string `json:"type"`
}
