package streamzip

import (
	"bytes"
	"crypto/aes"
	"crypto/hmac"
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func TestAESEncryptWriterLayoutAndMAC(t *testing.T) {
	const password = "correct horse battery staple"
	plaintext := []byte("the archive stays closed until you know the password")

	var out bytes.Buffer
	salt := bytes.Repeat([]byte{0x42}, aesSaltLen)
	w, err := newAESEncryptWriter(&out, password, bytes.NewReader(salt))
	require.NoError(t, err)

	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got := out.Bytes()
	require.Len(t, got, aesSaltLen+aesVerifierLen+len(plaintext)+aesMACLen)

	gotSalt := got[:aesSaltLen]
	assert.Equal(t, salt, gotSalt)

	keyMaterial := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 2*aesKeyLen+aesVerifierLen, sha1.New)
	encKey := keyMaterial[:aesKeyLen]
	macKey := keyMaterial[aesKeyLen : 2*aesKeyLen]
	wantVerifier := keyMaterial[2*aesKeyLen:]

	gotVerifier := got[aesSaltLen : aesSaltLen+aesVerifierLen]
	assert.Equal(t, wantVerifier, gotVerifier)

	ciphertext := got[aesSaltLen+aesVerifierLen : len(got)-aesMACLen]
	gotMAC := got[len(got)-aesMACLen:]

	mac := hmac.New(sha1.New, macKey)
	mac.Write(ciphertext)
	assert.Equal(t, mac.Sum(nil)[:aesMACLen], gotMAC)

	block, err := aes.NewCipher(encKey)
	require.NoError(t, err)
	stream := newLittleEndianCTR(block)
	decrypted := make([]byte, len(ciphertext))
	stream.XORKeyStream(decrypted, ciphertext)
	assert.Equal(t, plaintext, decrypted)
}

func TestLittleEndianCTRIncrementCarries(t *testing.T) {
	block, err := aes.NewCipher(make([]byte, 32))
	require.NoError(t, err)
	c := newLittleEndianCTR(block)

	c.counter[0] = 0xff
	c.increment()
	assert.Equal(t, byte(0x00), c.counter[0])
	assert.Equal(t, byte(0x01), c.counter[1])

	for i := range c.counter {
		c.counter[i] = 0xff
	}
	c.increment()
	for _, b := range c.counter {
		assert.Equal(t, byte(0x00), b)
	}
}

func TestLittleEndianCTRMatchesManualBlockEncryption(t *testing.T) {
	block, err := aes.NewCipher(bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)
	c := newLittleEndianCTR(block)

	plaintext := make([]byte, aes.BlockSize*3)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}
	ciphertext := make([]byte, len(plaintext))
	c.XORKeyStream(ciphertext, plaintext)

	var counter [aes.BlockSize]byte
	var want bytes.Buffer
	for block2 := 0; block2 < 3; block2++ {
		var keystream [aes.BlockSize]byte
		blk, _ := aes.NewCipher(bytes.Repeat([]byte{0x07}, 32))
		blk.Encrypt(keystream[:], counter[:])
		for i := range counter {
			counter[i]++
			if counter[i] != 0 {
				break
			}
		}
		chunk := make([]byte, aes.BlockSize)
		for i := range chunk {
			chunk[i] = plaintext[block2*aes.BlockSize+i] ^ keystream[i]
		}
		want.Write(chunk)
	}

	assert.Equal(t, want.Bytes(), ciphertext)
}
