package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmsTypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pay-theory/arangorm/pkg/codec"
	customerrors "github.com/pay-theory/arangorm/pkg/errors"
)

const (
	envelopeVersionV1 = 1

	envelopeKeyVersion    = "v"
	envelopeKeyEDK        = "edk"
	envelopeKeyNonce      = "nonce"
	envelopeKeyCiphertext = "ct"
)

type kmsAPI interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// configLoadFunc is a variable to allow mocking config.LoadDefaultConfig in tests
var configLoadFunc = config.LoadDefaultConfig

// Service implements envelope encryption of document values using AWS KMS.
type Service struct {
	keyARN string
	kms    kmsAPI
	rand   io.Reader
}

func NewService(keyARN string, kmsClient kmsAPI) *Service {
	return &Service{
		keyARN: keyARN,
		kms:    kmsClient,
		rand:   rand.Reader,
	}
}

func NewServiceFromAWSConfig(keyARN string, cfg aws.Config) *Service {
	return NewService(keyARN, kms.NewFromConfig(cfg))
}

// NewServiceFromConfig loads the default AWS configuration for region and,
// when roleARN is set, assumes that role before calling KMS.
func NewServiceFromConfig(ctx context.Context, keyARN, region, roleARN string) (*Service, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := configLoadFunc(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if roleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = "arangorm-kms"
		})
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return NewServiceFromAWSConfig(keyARN, cfg), nil
}

func (s *Service) check(column string) error {
	if s == nil {
		return fmt.Errorf("encryption service is nil")
	}
	if s.kms == nil {
		return fmt.Errorf("kms client is nil")
	}
	if s.keyARN == "" {
		return fmt.Errorf("kms key ARN is empty")
	}
	if column == "" {
		return fmt.Errorf("column name is empty")
	}
	return nil
}

// EncryptValue seals the JSON form of value under a fresh data key, bound
// to column, and returns the envelope document stored in its place.
func (s *Service) EncryptValue(ctx context.Context, column string, value any) (map[string]any, error) {
	if err := s.check(column); err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}

	dataKey, err := s.kms.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(s.keyARN),
		KeySpec: kmsTypes.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("kms GenerateDataKey failed: %w", err)
	}
	if len(dataKey.Plaintext) != 32 {
		return nil, fmt.Errorf("unexpected data key plaintext length: %d", len(dataKey.Plaintext))
	}
	if len(dataKey.CiphertextBlob) == 0 {
		return nil, fmt.Errorf("kms returned empty ciphertext data key")
	}

	gcm, err := newGCM(dataKey.Plaintext)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	ct := gcm.Seal(nil, nonce, plaintext, aadForColumn(column))

	return map[string]any{
		envelopeKeyVersion:    envelopeVersionV1,
		envelopeKeyEDK:        base64.StdEncoding.EncodeToString(dataKey.CiphertextBlob),
		envelopeKeyNonce:      base64.StdEncoding.EncodeToString(nonce),
		envelopeKeyCiphertext: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// DecryptValue opens an envelope produced by EncryptValue for the same column.
func (s *Service) DecryptValue(ctx context.Context, column string, envelope any) (any, error) {
	if err := s.check(column); err != nil {
		return nil, err
	}

	env, ok := envelope.(map[string]any)
	if !ok || env == nil {
		return nil, fmt.Errorf("%w: expected encrypted envelope map, got %T", customerrors.ErrInvalidEncryptedEnvelope, envelope)
	}

	if version, err := codec.ToFloat(env[envelopeKeyVersion]); err != nil || version != envelopeVersionV1 {
		return nil, fmt.Errorf("%w: unsupported encrypted envelope version", customerrors.ErrInvalidEncryptedEnvelope)
	}

	edk, err := envelopeBytes(env, envelopeKeyEDK, "encrypted data key")
	if err != nil {
		return nil, err
	}
	nonce, err := envelopeBytes(env, envelopeKeyNonce, "nonce")
	if err != nil {
		return nil, err
	}
	ct, err := envelopeBytes(env, envelopeKeyCiphertext, "ciphertext")
	if err != nil {
		return nil, err
	}

	dec, err := s.kms.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: edk,
	})
	if err != nil {
		return nil, fmt.Errorf("kms Decrypt failed: %w", err)
	}
	if len(dec.Plaintext) != 32 {
		return nil, fmt.Errorf("unexpected data key plaintext length: %d", len(dec.Plaintext))
	}

	gcm, err := newGCM(dec.Plaintext)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length", customerrors.ErrInvalidEncryptedEnvelope)
	}

	plaintext, err := gcm.Open(nil, nonce, ct, aadForColumn(column))
	if err != nil {
		return nil, fmt.Errorf("aes-gcm decrypt failed: %w", err)
	}

	var out any
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher init failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aes-gcm init failed: %w", err)
	}
	return gcm, nil
}

func envelopeBytes(env map[string]any, key, what string) ([]byte, error) {
	s, ok := env[key].(string)
	if !ok || s == "" {
		return nil, fmt.Errorf("%w: missing %s", customerrors.ErrInvalidEncryptedEnvelope, what)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64", customerrors.ErrInvalidEncryptedEnvelope, what)
	}
	return b, nil
}

func aadForColumn(column string) []byte {
	return []byte(fmt.Sprintf("arangorm:encrypted:v1|col=%s", column))
}
