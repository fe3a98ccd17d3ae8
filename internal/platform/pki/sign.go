package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// HashHex returns the SHA-256 digest of data as a lowercase hex string.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sign computes an RSA PKCS#1 v1.5 signature over the SHA-256 digest of data
// and returns it base64-encoded. Signing is a privileged operation: malformed
// key material or a failing signer surfaces as an error.
func Sign(data []byte, privateKeyPEM string) (string, error) {
	priv, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("signing key: %w", err)
	}

	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature against data with the given public key.
// Verification is public-facing and must always produce a verdict: every
// parse or crypto failure is reported as false, never as an error.
func Verify(data []byte, signatureB64, publicKeyPEM string) bool {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
