package token_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/listsync/internal/dynamodb/token"
)

func TestEncryptionMarshaler(t *testing.T) {
	marshaler := token.NewGCMWithSecret([]byte("deployment-secret"))
	accountId := "user-123"
	lastKey := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "user-123:ShoppingItem"},
		"SK": &types.AttributeValueMemberS{Value: "0b7c6a2e"},
	}

	t.Run("lastKey==Unmarshal(Marshal(lastKey))", func(t *testing.T) {
		sealed, err := marshaler.Marshal(accountId, lastKey)
		if err != nil {
			t.Fatalf("Failed to marshal token: %v", err)
		}
		otherKey, err := marshaler.Unmarshal(accountId, sealed)
		if err != nil {
			t.Fatalf("Failed to unmarshal token: %v", err)
		}
		for _, field := range []string{"PK", "SK"} {
			value, ok := otherKey[field].(*types.AttributeValueMemberS)
			if !ok {
				t.Fatalf("otherKey %s is not an S type: %v", field, otherKey)
			}
			if value.Value != lastKey[field].(*types.AttributeValueMemberS).Value {
				t.Errorf("otherKey %s is %s", field, value.Value)
			}
		}
	})

	t.Run("empty key yields no token", func(t *testing.T) {
		sealed, err := marshaler.Marshal(accountId, nil)
		if err != nil {
			t.Fatalf("Threw an error on marshal: %v", err)
		}
		if sealed != nil {
			t.Fatalf("Expected no token, got %s", sealed)
		}
		otherKey, err := marshaler.Unmarshal(accountId, nil)
		if err != nil || otherKey != nil {
			t.Fatalf("Expected nothing for an empty token, got %v %v", otherKey, err)
		}
	})

	t.Run("accountA!=accountB", func(t *testing.T) {
		sealed, err := marshaler.Marshal(accountId, lastKey)
		if err != nil {
			t.Fatalf("Failed to marshal token: %v", err)
		}
		otherKey, err := marshaler.Unmarshal("someone-else", sealed)
		if err == nil {
			t.Fatalf("Expected an err but received, %v", otherKey)
		}
	})

	t.Run("secrets differ", func(t *testing.T) {
		sealed, err := marshaler.Marshal(accountId, lastKey)
		if err != nil {
			t.Fatalf("Failed to marshal token: %v", err)
		}
		if _, err := token.NewGCM().Unmarshal(accountId, sealed); err == nil {
			t.Fatal("Expected a token sealed under another secret to be rejected")
		}
	})
}
