package data

// Identifiers pairs the stable logical id of a record with the id the remote
// store assigned to it, when there is one.
type Identifiers struct {
	LogicalId string
	StorageId *string
}

// PreferredId is the single rule every remote operation uses to address a
// record: the storage id when known, otherwise the logical id.
func (ids Identifiers) PreferredId() string {
	if ids.StorageId != nil && *ids.StorageId != "" {
		return *ids.StorageId
	}
	return ids.LogicalId
}

func (ids Identifiers) HasStorageId() bool {
	return ids.StorageId != nil && *ids.StorageId != ""
}
