package model

// Backup is a point-in-time copy of every collection.
type Backup struct {
	ID            int64               `json:"-"`
	Timestamp     string              `json:"timestamp"`
	SchemaVersion int                 `json:"schemaVersion"`
	Data          map[string][]Record `json:"data"`
}

// Count returns the number of records captured for a collection.
func (b *Backup) Count(collection string) int {
	return len(b.Data[collection])
}

// BackupSummary describes a stored backup without its payload.
type BackupSummary struct {
	ID            int64
	Name          string
	Size          int64
	SchemaVersion int
	CreatedAt     string
}

