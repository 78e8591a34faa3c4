package encryption

import (
	"context"
	"fmt"

	"github.com/pay-theory/arangorm/pkg/codec"
	customerrors "github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
)

// EncryptedColumns returns the storage columns of properties marked encrypted.
func EncryptedColumns(def *model.Definition) map[string]string {
	if def == nil {
		return nil
	}
	out := make(map[string]string)
	for _, name := range def.PropertyNames() {
		if prop := def.Property(name); prop != nil && prop.Encrypted {
			out[def.ToStorageName(name)] = name
		}
	}
	return out
}

// FailClosedIfEncryptedWithoutService rejects models with encrypted
// properties when no encryption service is configured.
func FailClosedIfEncryptedWithoutService(svc *Service, def *model.Definition) error {
	if def == nil || !def.HasEncrypted() || svc != nil {
		return nil
	}
	return fmt.Errorf("%w: model %s has encrypted properties but no KMS key ARN is configured",
		customerrors.ErrEncryptionNotConfigured, def.Name)
}

// EncryptDocument replaces the values of encrypted columns in doc with
// envelopes. doc is modified in place.
func EncryptDocument(ctx context.Context, svc *Service, def *model.Definition, doc map[string]any) error {
	columns := EncryptedColumns(def)
	if len(columns) == 0 {
		return nil
	}
	if err := FailClosedIfEncryptedWithoutService(svc, def); err != nil {
		return err
	}
	for column := range columns {
		value, ok := doc[column]
		if !ok {
			continue
		}
		env, err := svc.EncryptValue(ctx, column, value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", column, err)
		}
		doc[column] = env
	}
	return nil
}

// EncryptFields encrypts the values of update payload fields bound to
// encrypted properties. Nested paths into an encrypted property are rejected.
func EncryptFields(ctx context.Context, svc *Service, def *model.Definition, fields []codec.Field) error {
	columns := EncryptedColumns(def)
	if len(columns) == 0 {
		return nil
	}
	if err := FailClosedIfEncryptedWithoutService(svc, def); err != nil {
		return err
	}
	for i := range fields {
		if _, ok := columns[fields[i].Column]; !ok {
			continue
		}
		if fields[i].Value == nil {
			continue
		}
		env, err := svc.EncryptValue(ctx, fields[i].Column, fields[i].Value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", fields[i].Column, err)
		}
		fields[i].Value = env
	}
	return nil
}

// DecryptDocument opens the envelopes of encrypted columns in doc in place.
func DecryptDocument(ctx context.Context, svc *Service, def *model.Definition, doc map[string]any) error {
	columns := EncryptedColumns(def)
	if len(columns) == 0 {
		return nil
	}
	if err := FailClosedIfEncryptedWithoutService(svc, def); err != nil {
		return err
	}
	for column := range columns {
		env, ok := doc[column]
		if !ok || env == nil {
			continue
		}
		value, err := svc.DecryptValue(ctx, column, env)
		if err != nil {
			return fmt.Errorf("decrypt %s: %w", column, err)
		}
		doc[column] = value
	}
	return nil
}
