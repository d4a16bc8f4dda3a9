package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "kbase"

	// TableNameRecords is the default table/collection name for records.
	TableNameRecords = "records"

	// Column names
	ColID          = "id"
	ColKind        = "kind"
	ColTitle       = "title"
	ColDescription = "description"
	ColSummary     = "summary"
	ColCreatedAt   = "created_at"
	ColUpdatedAt   = "updated_at"

	// Neo4j specific
	LabelRecord = "Record"

	// Redis key prefixes
	KeyPrefixRecord = "record:"
	KeyPrefixKind   = "kind:"
)
