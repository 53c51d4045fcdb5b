package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	password := "test_password"
	plaintext := []byte("Hello MEF 3.0!!!")
	require.Len(t, plaintext, 16)

	ciphertext := make([]byte, 16)
	decrypted := make([]byte, 16)

	require.NoError(t, EncryptBlock(ciphertext, plaintext, password))
	require.NoError(t, DecryptBlock(decrypted, ciphertext, password))

	require.Equal(t, plaintext, decrypted)
	require.NotEqual(t, plaintext, ciphertext)
}

func TestEncryptDecrypt_WithExpandedKey(t *testing.T) {
	key, err := ExpandKey("another_key")
	require.NoError(t, err)

	plaintext := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	ciphertext := make([]byte, 16)
	decrypted := make([]byte, 16)

	EncryptBlockWithKey(ciphertext, plaintext, key)
	DecryptBlockWithKey(decrypted, ciphertext, key)

	require.Equal(t, plaintext, decrypted)
}

func TestEncrypt_InPlace(t *testing.T) {
	original := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE, 0xBA, 0xBE,
		0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0}
	buffer := make([]byte, 16)
	copy(buffer, original)

	require.NoError(t, EncryptBlock(buffer, buffer, "inplace_key"))
	require.False(t, bytes.Equal(original, buffer))
	require.NoError(t, DecryptBlock(buffer, buffer, "inplace_key"))

	require.Equal(t, original, buffer)
}

func TestExpandKey_PasswordTooLong(t *testing.T) {
	_, err := ExpandKey("sixteen__chars__")
	require.Error(t, err)

	_, err = ExpandKey("fifteen_chars__")
	require.NoError(t, err)
}

func TestExpandKey_DistinctPasswordsDistinctKeys(t *testing.T) {
	plaintext := []byte("0123456789abcdef")

	c1 := make([]byte, 16)
	c2 := make([]byte, 16)
	require.NoError(t, EncryptBlock(c1, plaintext, "password_one"))
	require.NoError(t, EncryptBlock(c2, plaintext, "password_two"))

	require.NotEqual(t, c1, c2)
}

func TestEncryptDecryptRegion(t *testing.T) {
	key, err := ExpandKey("region_key")
	require.NoError(t, err)

	// 37 bytes: two full AES blocks plus a 5-byte tail left in the clear.
	data := make([]byte, 37)
	for i := range data {
		data[i] = byte(i * 7)
	}
	original := make([]byte, len(data))
	copy(original, data)

	EncryptRegion(data, key)
	require.NotEqual(t, original[:32], data[:32])
	require.Equal(t, original[32:], data[32:])

	DecryptRegion(data, key)
	require.Equal(t, original, data)
}
