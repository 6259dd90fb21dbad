package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/messaging"
	"github.com/optilens/optilens-backend/pkg/roles"
)

// stubClinicalStore covers only the methods the signing tests reach.
type stubClinicalStore struct {
	clinicalStore

	getUser          func(ctx context.Context, id, companyID string) (*storage.User, error)
	signPrescription func(ctx context.Context, id, companyID, ecpID, signature string) (*storage.Prescription, error)
}

func (s *stubClinicalStore) GetUser(ctx context.Context, id, companyID string) (*storage.User, error) {
	return s.getUser(ctx, id, companyID)
}

func (s *stubClinicalStore) SignPrescription(ctx context.Context, id, companyID, ecpID, signature string) (*storage.Prescription, error) {
	return s.signPrescription(ctx, id, companyID, ecpID, signature)
}

func TestSignPrescription_OnlyEcpMaySign(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	companyID := "company-1"
	store := &stubClinicalStore{
		getUser: func(ctx context.Context, id, cid string) (*storage.User, error) {
			return &storage.User{ID: id, CompanyID: &companyID, Role: roles.Dispenser}, nil
		},
		signPrescription: func(ctx context.Context, id, companyID, ecpID, signature string) (*storage.Prescription, error) {
			t.Fatal("SignPrescription must not be reached for a non-ECP signer")
			return nil, nil
		},
	}
	svc := NewClinicalService(store, publisher, logger.Nop())

	rx, err := svc.SignPrescription(context.Background(), "rx-1", companyID, SignPrescriptionRequest{
		EcpID:     uuid.New().String(),
		Signature: "sig-bytes",
	})
	assert.Nil(t, rx)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.Empty(t, mock.EventTypes())
}

func TestSignPrescription_PublishesSignedEvent(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	companyID := "company-1"
	ecpID := uuid.New().String()
	store := &stubClinicalStore{
		getUser: func(ctx context.Context, id, cid string) (*storage.User, error) {
			return &storage.User{ID: id, CompanyID: &companyID, Role: roles.ECP}, nil
		},
		signPrescription: func(ctx context.Context, id, cid, signer, signature string) (*storage.Prescription, error) {
			return &storage.Prescription{
				ID:            id,
				CompanyID:     cid,
				IsSigned:      true,
				SignedByEcpID: &signer,
			}, nil
		},
	}
	svc := NewClinicalService(store, publisher, logger.Nop())

	rx, err := svc.SignPrescription(context.Background(), "rx-1", companyID, SignPrescriptionRequest{
		EcpID:     ecpID,
		Signature: "sig-bytes",
	})
	require.NoError(t, err)
	assert.True(t, rx.IsSigned)

	require.Len(t, mock.Published, 1)
	event, ok := mock.Published[0].Data.(messaging.PrescriptionSignedEvent)
	require.True(t, ok)
	assert.Equal(t, ecpID, event.SignedByEcpID)
}

func TestSignPrescription_RequiresSignature(t *testing.T) {
	publisher, mock := newRecordedPublisher()
	svc := NewClinicalService(&stubClinicalStore{}, publisher, logger.Nop())

	rx, err := svc.SignPrescription(context.Background(), "rx-1", "company-1", SignPrescriptionRequest{
		EcpID: uuid.New().String(),
	})
	assert.Nil(t, rx)
	assert.Error(t, err)
	assert.Empty(t, mock.EventTypes())
}

func TestSignPrescription_UnknownSignerCollapsesToNotFound(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	store := &stubClinicalStore{
		getUser: func(ctx context.Context, id, cid string) (*storage.User, error) {
			return nil, errors.NotFound("user")
		},
	}
	svc := NewClinicalService(store, publisher, logger.Nop())

	rx, err := svc.SignPrescription(context.Background(), "rx-1", "company-1", SignPrescriptionRequest{
		EcpID:     uuid.New().String(),
		Signature: "sig-bytes",
	})
	assert.Nil(t, rx)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, mock.EventTypes())
}
