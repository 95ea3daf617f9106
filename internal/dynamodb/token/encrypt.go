package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/listsync/internal/data"
)

type EncryptMode func(cipher.Block) (cipher.AEAD, error)

// EncryptionTokenMarshaler seals page tokens with AES-GCM under a key derived
// from the account id and an optional deployment secret, so a token minted
// for one account cannot be replayed against another.
type EncryptionTokenMarshaler struct {
	Mode   EncryptMode
	Secret []byte
}

func NewGCM() *EncryptionTokenMarshaler {
	return &EncryptionTokenMarshaler{
		Mode: cipher.NewGCM,
	}
}

func NewGCMWithSecret(secret []byte) *EncryptionTokenMarshaler {
	return &EncryptionTokenMarshaler{
		Mode:   cipher.NewGCM,
		Secret: secret,
	}
}

type sealedToken struct {
	Nonce      []byte `json:"n"`
	Ciphertext []byte `json:"c"`
}

func _lastKeyToToken(lastKey map[string]types.AttributeValue) ([]byte, error) {
	if len(lastKey) == 0 {
		return nil, nil
	}
	token := make(data.NextToken, len(lastKey))
	for field, value := range lastKey {
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			token[field] = map[string]string{"S": v.Value}
		case *types.AttributeValueMemberN:
			token[field] = map[string]string{"N": v.Value}
		case *types.AttributeValueMemberB:
			token[field] = map[string]string{"B": base64.StdEncoding.EncodeToString(v.Value)}
		default:
			return nil, fmt.Errorf("unsupported key attribute %s of type %T", field, value)
		}
	}
	return json.Marshal(token)
}

func _tokenToLastKey(plaintext []byte) (map[string]types.AttributeValue, error) {
	var token data.NextToken
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return nil, err
	}
	lastKey := make(map[string]types.AttributeValue, len(token))
	for field, typed := range token {
		if s, ok := typed["S"]; ok {
			lastKey[field] = &types.AttributeValueMemberS{Value: s}
		} else if n, ok := typed["N"]; ok {
			lastKey[field] = &types.AttributeValueMemberN{Value: n}
		} else if b, ok := typed["B"]; ok {
			raw, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, err
			}
			lastKey[field] = &types.AttributeValueMemberB{Value: raw}
		}
	}
	return lastKey, nil
}

func (em *EncryptionTokenMarshaler) aead(accountId string) (cipher.AEAD, error) {
	hash := sha256.New()
	hash.Write(em.Secret)
	hash.Write([]byte(accountId))
	block, err := aes.NewCipher(hash.Sum(nil))
	if err != nil {
		return nil, err
	}
	return em.Mode(block)
}

func (em *EncryptionTokenMarshaler) Marshal(accountId string, lastKey map[string]types.AttributeValue) ([]byte, error) {
	plaintext, err := _lastKeyToToken(lastKey)
	if err != nil || plaintext == nil {
		return nil, err
	}
	aead, err := em.aead(accountId)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed, err := json.Marshal(sealedToken{
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, []byte(accountId)),
	})
	if err != nil {
		return nil, err
	}
	encoded := make([]byte, base64.RawURLEncoding.EncodedLen(len(sealed)))
	base64.RawURLEncoding.Encode(encoded, sealed)
	return encoded, nil
}

func (em *EncryptionTokenMarshaler) Unmarshal(accountId string, token []byte) (map[string]types.AttributeValue, error) {
	if len(token) == 0 {
		return nil, nil
	}
	decoded := make([]byte, base64.RawURLEncoding.DecodedLen(len(token)))
	n, err := base64.RawURLEncoding.Decode(decoded, token)
	if err != nil {
		return nil, err
	}
	var sealed sealedToken
	if err := json.Unmarshal(decoded[:n], &sealed); err != nil {
		return nil, err
	}
	aead, err := em.aead(accountId)
	if err != nil {
		return nil, err
	}
	if len(sealed.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("malformed token nonce")
	}
	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, []byte(accountId))
	if err != nil {
		return nil, err
	}
	return _tokenToLastKey(plaintext)
}
