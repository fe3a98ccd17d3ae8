package ca

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/nikohealth/trustcore/internal/domain/audit"
	"github.com/nikohealth/trustcore/internal/platform/keywrap"
	"github.com/nikohealth/trustcore/internal/platform/pki"
)

// Service is the national certificate authority: it owns the root key pair
// and issues hospital signing identities chained to it.
type Service struct {
	keys      KeyRepository
	hospitals HospitalRepository
	wrapper   *keywrap.Wrapper
	audit     *audit.Logger
	ident     pki.CAIdentity
	log       zerolog.Logger
}

func NewService(keys KeyRepository, hospitals HospitalRepository, wrapper *keywrap.Wrapper, auditLog *audit.Logger, ident pki.CAIdentity, log zerolog.Logger) *Service {
	return &Service{keys: keys, hospitals: hospitals, wrapper: wrapper, audit: auditLog, ident: ident, log: log}
}

// InitializeRootCA creates the root key pair and self-signed certificate if
// none exists. The operation is idempotent; a second call reports the
// existing root without touching it. The unique index on key_type backstops
// concurrent initialization.
func (s *Service) InitializeRootCA(ctx context.Context, actorID uuid.UUID) (*InitResult, error) {
	existing, err := s.keys.GetRootKey(ctx)
	if err == nil {
		return &InitResult{Created: false, CertificatePEM: existing.CertificatePEM}, nil
	}
	if !errors.Is(err, ErrRootCANotInitialized) {
		return nil, fmt.Errorf("check root key: %w", err)
	}

	pair, err := pki.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	certPEM, err := pki.CreateRootCertificate(pair.PrivateKeyPEM, pair.PublicKeyPEM, s.ident)
	if err != nil {
		return nil, err
	}
	wrapped, err := s.wrapper.Wrap(pair.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	key := &SystemKey{
		PublicKey:      pair.PublicKeyPEM,
		PrivateKeyEnc:  wrapped,
		CertificatePEM: certPEM,
	}
	if err := s.keys.CreateRootKey(ctx, key); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if existing, gerr := s.keys.GetRootKey(ctx); gerr == nil {
				return &InitResult{Created: false, CertificatePEM: existing.CertificatePEM}, nil
			}
		}
		return nil, fmt.Errorf("persist root key: %w", err)
	}

	if err := s.audit.Log(ctx, actorID, audit.ActionRootCAInitialized, "system_key", &key.ID,
		map[string]interface{}{"common_name": s.ident.CommonName}, audit.SeverityCritical); err != nil {
		return nil, err
	}

	s.log.Info().Str("key_id", key.ID.String()).Msg("root CA initialized")

	return &InitResult{Created: true, CertificatePEM: certPEM}, nil
}

// IssueHospitalIdentity generates a fresh key pair for the hospital and
// signs a one-year certificate with the root key. Re-issuing replaces the
// previous identity; documents signed under the old key stay verifiable only
// if the verifier kept the old certificate.
func (s *Service) IssueHospitalIdentity(ctx context.Context, actorID, hospitalID uuid.UUID) (*Hospital, error) {
	root, err := s.keys.GetRootKey(ctx)
	if err != nil {
		return nil, err
	}
	hospital, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	rootPriv, err := s.wrapper.Unwrap(root.PrivateKeyEnc)
	if err != nil {
		return nil, fmt.Errorf("unwrap root key: %w", err)
	}

	pair, err := pki.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	certPEM, err := pki.IssueHospitalCertificate(pair.PublicKeyPEM, rootPriv, root.CertificatePEM, pki.HospitalIdentity{
		ID:   hospital.ID,
		Name: hospital.Name,
	})
	if err != nil {
		return nil, err
	}
	wrapped, err := s.wrapper.Wrap(pair.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	serial := pki.SerialFromUUID(hospital.ID)
	if err := s.hospitals.SaveIdentity(ctx, hospital.ID, pair.PublicKeyPEM, wrapped, certPEM, serial); err != nil {
		return nil, fmt.Errorf("save hospital identity: %w", err)
	}

	s.audit.Log(ctx, actorID, audit.ActionHospitalIdentityIssued, "hospital", &hospital.ID,
		map[string]interface{}{"serial": serial, "name": hospital.Name}, audit.SeverityWarning)

	s.log.Info().
		Str("hospital_id", hospital.ID.String()).
		Str("serial", serial).
		Msg("hospital identity issued")

	return s.hospitals.GetByID(ctx, hospitalID)
}

// RootCertificate returns the persisted root certificate PEM, the public
// trust anchor clients pin.
func (s *Service) RootCertificate(ctx context.Context) (string, error) {
	root, err := s.keys.GetRootKey(ctx)
	if err != nil {
		return "", err
	}
	return root.CertificatePEM, nil
}

// RegisterHospital creates a hospital record. Identity issuance is a
// separate, explicit step.
func (s *Service) RegisterHospital(ctx context.Context, h *Hospital) error {
	return s.hospitals.Create(ctx, h)
}

// ListHospitals pages through registered hospitals.
func (s *Service) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, limit, offset)
}
