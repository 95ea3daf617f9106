package events

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

type EventFilter interface {
	Filter(record events.DynamoDBEventRecord) bool
	Apply(ctx context.Context, record events.DynamoDBEventRecord) error
}

const (
	Insert = "INSERT"
	Modify = "MODIFY"
	Remove = "REMOVE"
)

func _getRecordImage(record events.DynamoDBEventRecord) map[string]events.DynamoDBAttributeValue {
	if record.Change.NewImage != nil {
		return record.Change.NewImage
	}
	return record.Change.OldImage
}

// _recordKey splits the "{accountId}:{Entity}" partition key of a record.
func _recordKey(record events.DynamoDBEventRecord) (string, string, bool) {
	pk, ok := record.Change.Keys["PK"]
	if !ok {
		pk, ok = _getRecordImage(record)["PK"]
	}
	if !ok || pk.DataType() != events.DataTypeString {
		return "", "", false
	}
	accountId, entity, found := strings.Cut(pk.String(), ":")
	return accountId, entity, found
}

func _stringField(image map[string]events.DynamoDBAttributeValue, field string) string {
	value, ok := image[field]
	if !ok || value.DataType() != events.DataTypeString {
		return ""
	}
	return value.String()
}

// Dispatch runs every matching handler for each record. A failing handler
// is logged and stops the remaining handlers for that record only.
func Dispatch(ctx context.Context, handlers []EventFilter, event events.DynamoDBEvent, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	for _, record := range event.Records {
		for _, handler := range handlers {
			if !handler.Filter(record) {
				continue
			}
			if err := handler.Apply(ctx, record); err != nil {
				logger.Error("failed to handle stream record", "eventId", record.EventID, "eventName", record.EventName, "error", err)
				failures++
				break
			}
		}
	}
	return failures
}
