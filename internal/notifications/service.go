package notifications

import "context"

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionRemoved = "removed"
)

// Change is the message other devices receive when a list or item of the
// account changed remotely.
type Change struct {
	AccountId string `json:"accountId"`
	Entity    string `json:"entity"`
	LogicalId string `json:"logicalId"`
	StorageId string `json:"storageId,omitempty"`
	Action    string `json:"action"`
}

type ChangePublisher interface {
	Publish(ctx context.Context, change Change) error
}
