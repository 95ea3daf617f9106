package services

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"philcali.me/listsync/internal/notifications"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ChangeSNSService publishes changes with the account id as a message
// attribute so device subscriptions can filter on it.
type ChangeSNSService struct {
	Sns      SNSAPI
	TopicArn string
}

func NewChangeSNSService(client SNSAPI, topicArn string) *ChangeSNSService {
	return &ChangeSNSService{Sns: client, TopicArn: topicArn}
}

func (n *ChangeSNSService) Publish(ctx context.Context, change notifications.Change) error {
	message, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = n.Sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.TopicArn),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"accountId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(change.AccountId),
			},
			"entity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(change.Entity),
			},
		},
	})
	return err
}
