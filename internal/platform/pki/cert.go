package pki

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	rootValidity     = 10 * 365 * 24 * time.Hour
	hospitalValidity = 365 * 24 * time.Hour
)

// CAIdentity describes the subject of the root certificate.
type CAIdentity struct {
	CommonName   string
	Organization string
	Country      string
}

// HospitalIdentity describes the subject of a hospital end-entity certificate.
type HospitalIdentity struct {
	ID   uuid.UUID
	Name string
}

// SerialFromUUID derives a certificate serial from the first 16 hex
// characters of the entity UUID, matching the serials already printed on
// issued documents.
func SerialFromUUID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}

// CreateRootCertificate builds a self-signed CA certificate for the given
// key pair, valid for ten years.
func CreateRootCertificate(privateKeyPEM, publicKeyPEM string, ident CAIdentity) (string, error) {
	priv, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("root private key: %w", err)
	}
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", fmt.Errorf("root public key: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   ident.CommonName,
			Organization: []string{ident.Organization},
			Country:      []string{ident.Country},
		},
		NotBefore:             now,
		NotAfter:              now.Add(rootValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return "", fmt.Errorf("create root certificate: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})), nil
}

// IssueHospitalCertificate builds a one-year end-entity certificate for the
// hospital's public key, signed by the persisted root certificate and key.
func IssueHospitalCertificate(hospitalPublicKeyPEM, rootPrivateKeyPEM, rootCertPEM string, ident HospitalIdentity) (string, error) {
	rootPriv, err := ParsePrivateKey(rootPrivateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("root private key: %w", err)
	}
	rootCert, err := ParseCertificate(rootCertPEM)
	if err != nil {
		return "", fmt.Errorf("root certificate: %w", err)
	}
	hospitalPub, err := ParsePublicKey(hospitalPublicKeyPEM)
	if err != nil {
		return "", fmt.Errorf("hospital public key: %w", err)
	}

	serial, ok := new(big.Int).SetString(SerialFromUUID(ident.ID), 16)
	if !ok {
		return "", fmt.Errorf("derive serial from hospital id %s", ident.ID)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   ident.Name,
			Organization: []string{ident.Name},
			Country:      rootCert.Subject.Country,
			SerialNumber: ident.ID.String(),
		},
		NotBefore:             now,
		NotAfter:              now.Add(hospitalValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		BasicConstraintsValid: true,
		IsCA:                  false,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, rootCert, hospitalPub, rootPriv)
	if err != nil {
		return "", fmt.Errorf("create hospital certificate: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})), nil
}

// ParseCertificate decodes a PEM-encoded X.509 certificate.
func ParseCertificate(pemStr string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no CERTIFICATE block in PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}

// VerifyCertificateChain checks that cert was signed by the root certificate
// and is currently within its validity window.
func VerifyCertificateChain(certPEM, rootCertPEM string) error {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return err
	}
	rootCert, err := ParseCertificate(rootCertPEM)
	if err != nil {
		return err
	}

	roots := x509.NewCertPool()
	roots.AddCert(rootCert)

	_, err = cert.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("verify certificate chain: %w", err)
	}
	return nil
}
