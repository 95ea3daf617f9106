package token

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// TokenMarshaler turns a LastEvaluatedKey into an opaque page token bound to
// one account, and back.
type TokenMarshaler interface {
	Marshal(accountId string, lastKey map[string]types.AttributeValue) ([]byte, error)

	Unmarshal(accountId string, token []byte) (map[string]types.AttributeValue, error)
}
