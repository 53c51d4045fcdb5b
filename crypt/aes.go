// Package crypt implements the cryptographic primitives MEF 3.0 uses for
// optional data protection: AES-128 in single-block ECB mode for the RED
// difference payload, and SHA-256 password validation fields for the
// Universal Header.
//
// Passwords are at most 15 bytes and are zero-padded to the 16-byte AES-128
// key size; key expansion is delegated to crypto/aes, whose cipher.Block
// holds the pre-expanded round keys.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

// ExpandKey derives an AES-128 cipher from a password of up to 15 bytes,
// zero-padded to the 16-byte key size. The returned cipher.Block carries
// the expanded round keys and can be reused across blocks.
func ExpandKey(password string) (cipher.Block, error) {
	if len(password) > format.MaxPasswordCharacters {
		return nil, fmt.Errorf("%w: password exceeds %d bytes", errs.ErrInvalidFormat, format.MaxPasswordCharacters)
	}

	var key [format.PasswordBytes]byte
	copy(key[:], password)

	return aes.NewCipher(key[:])
}

// EncryptBlock encrypts a single 16-byte block with a password-derived key.
// dst and src may alias.
func EncryptBlock(dst, src []byte, password string) error {
	block, err := ExpandKey(password)
	if err != nil {
		return err
	}
	EncryptBlockWithKey(dst, src, block)

	return nil
}

// DecryptBlock decrypts a single 16-byte block with a password-derived key.
// dst and src may alias.
func DecryptBlock(dst, src []byte, password string) error {
	block, err := ExpandKey(password)
	if err != nil {
		return err
	}
	DecryptBlockWithKey(dst, src, block)

	return nil
}

// EncryptBlockWithKey encrypts a single 16-byte block with a pre-expanded
// key. dst and src may alias.
func EncryptBlockWithKey(dst, src []byte, key cipher.Block) {
	key.Encrypt(dst, src)
}

// DecryptBlockWithKey decrypts a single 16-byte block with a pre-expanded
// key. dst and src may alias.
func DecryptBlockWithKey(dst, src []byte, key cipher.Block) {
	key.Decrypt(dst, src)
}

// EncryptRegion encrypts data in place in 16-byte ECB blocks. A trailing
// partial block of fewer than 16 bytes is left in the clear, matching the
// RED payload encryption rule.
func EncryptRegion(data []byte, key cipher.Block) {
	for i := 0; i+format.EncryptionBlockBytes <= len(data); i += format.EncryptionBlockBytes {
		key.Encrypt(data[i:i+format.EncryptionBlockBytes], data[i:i+format.EncryptionBlockBytes])
	}
}

// DecryptRegion reverses EncryptRegion in place.
func DecryptRegion(data []byte, key cipher.Block) {
	for i := 0; i+format.EncryptionBlockBytes <= len(data); i += format.EncryptionBlockBytes {
		key.Decrypt(data[i:i+format.EncryptionBlockBytes], data[i:i+format.EncryptionBlockBytes])
	}
}
