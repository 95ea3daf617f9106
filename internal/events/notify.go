package events

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/listsync/internal/notifications"
)

var _actions = map[string]string{
	Insert: notifications.ActionCreated,
	Modify: notifications.ActionUpdated,
	Remove: notifications.ActionRemoved,
}

// ChangeNotificationHandler tells an account's other devices that something
// changed so they can pull.
type ChangeNotificationHandler struct {
	Publisher notifications.ChangePublisher
	Entities  map[string]bool
}

func (ch *ChangeNotificationHandler) Filter(record events.DynamoDBEventRecord) bool {
	_, entity, ok := _recordKey(record)
	_, known := _actions[record.EventName]
	return ok && known && ch.Entities[entity]
}

func (ch *ChangeNotificationHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	accountId, entity, _ := _recordKey(record)
	image := _getRecordImage(record)
	action := _actions[record.EventName]
	if deleted, ok := record.Change.NewImage["deleted"]; ok && deleted.DataType() == events.DataTypeBoolean && deleted.Boolean() {
		action = notifications.ActionDeleted
	}
	return ch.Publisher.Publish(ctx, notifications.Change{
		AccountId: accountId,
		Entity:    entity,
		LogicalId: _stringField(image, "logicalId"),
		StorageId: _stringField(image, "SK"),
		Action:    action,
	})
}

func DefaultChangeNotificationHandler(publisher notifications.ChangePublisher) *ChangeNotificationHandler {
	return &ChangeNotificationHandler{
		Publisher: publisher,
		Entities: map[string]bool{
			"ShoppingList": true,
			"ShoppingItem": true,
		},
	}
}
