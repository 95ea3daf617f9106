package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
)

// TouchListHandler re-stamps a list whenever one of its items is written, so
// a list is never older than its items on the remote tier either.
type TouchListHandler struct {
	Lists data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO]
}

func (th *TouchListHandler) Filter(record events.DynamoDBEventRecord) bool {
	_, entity, ok := _recordKey(record)
	return ok && entity == "ShoppingItem" &&
		(record.EventName == Insert || record.EventName == Modify) &&
		_stringField(record.Change.NewImage, "listRef") != ""
}

func (th *TouchListHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	accountId, _, _ := _recordKey(record)
	listRef := _stringField(record.Change.NewImage, "listRef")
	_, err := th.Lists.Update(ctx, accountId, listRef, data.ShoppingListInputDTO{})
	if err == nil || !exceptions.IsNotFound(err) {
		return err
	}
	// Items written before their list had a storage id reference its logical id.
	found, err := data.ListAll(ctx, th.Lists, accountId, map[string]string{"logicalId": listRef})
	if err != nil {
		return fmt.Errorf("find list %s: %w", listRef, err)
	}
	for _, list := range found {
		if _, err := th.Lists.Update(ctx, accountId, list.SK, data.ShoppingListInputDTO{}); err != nil && !exceptions.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func DefaultTouchListHandler(lists data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO]) *TouchListHandler {
	return &TouchListHandler{Lists: lists}
}
