package accounts

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

// Marshal borsh-encodes an entity for account storage. Field order is fixed
// by the struct definition, so layouts are stable across encoders.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode account data")
	}
	return buf.Bytes(), nil
}

// Unmarshal borsh-decodes account data into an entity.
func Unmarshal(data []byte, v interface{}) error {
	if err := bin.NewBorshDecoder(data).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode account data")
	}
	return nil
}
