package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"licensure/internal/privilege"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

type InMemoryApplicationStore struct {
	mu           sync.RWMutex
	applications map[domain.ApplicationID]privilege.Application
}

func NewInMemoryApplicationStore() *InMemoryApplicationStore {
	return &InMemoryApplicationStore{
		applications: make(map[domain.ApplicationID]privilege.Application),
	}
}

func (s *InMemoryApplicationStore) Create(_ context.Context, app privilege.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[app.ID]; ok {
		return sentinel.ErrConflict
	}
	s.applications[app.ID] = app
	return nil
}

func (s *InMemoryApplicationStore) FindByID(_ context.Context, id domain.ApplicationID) (privilege.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return privilege.Application{}, sentinel.ErrNotFound
	}
	return app, nil
}

func (s *InMemoryApplicationStore) Update(_ context.Context, app privilege.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.applications[app.ID] = app
	return nil
}

func (s *InMemoryApplicationStore) ListByPractitioner(_ context.Context, practitionerID domain.PractitionerID) ([]privilege.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]privilege.Application, 0)
	for _, app := range s.applications {
		if app.PractitionerID == practitionerID {
			result = append(result, app)
		}
	}
	sortApplications(result)
	return result, nil
}

func (s *InMemoryApplicationStore) ListByRemoteState(_ context.Context, stateID domain.MemberStateID, status privilege.ApplicationStatus) ([]privilege.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]privilege.Application, 0)
	for _, app := range s.applications {
		if app.RemoteStateID != stateID {
			continue
		}
		if status != "" && app.Status != status {
			continue
		}
		result = append(result, app)
	}
	sortApplications(result)
	return result, nil
}

func sortApplications(apps []privilege.Application) {
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.After(apps[j].CreatedAt)
	})
}

type InMemoryAttestationStore struct {
	mu           sync.RWMutex
	attestations map[uuid.UUID]privilege.Attestation
}

func NewInMemoryAttestationStore() *InMemoryAttestationStore {
	return &InMemoryAttestationStore{
		attestations: make(map[uuid.UUID]privilege.Attestation),
	}
}

func (s *InMemoryAttestationStore) Create(_ context.Context, attestation privilege.Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attestations[attestation.ID] = attestation
	return nil
}

func (s *InMemoryAttestationStore) ListByApplication(_ context.Context, applicationID domain.ApplicationID) ([]privilege.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]privilege.Attestation, 0)
	for _, a := range s.attestations {
		if a.ApplicationID == applicationID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// InMemoryPaymentStore keys rows by application, which makes the
// one-row-per-application invariant structural.
type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[domain.ApplicationID]privilege.PaymentTransaction
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		payments: make(map[domain.ApplicationID]privilege.PaymentTransaction),
	}
}

func (s *InMemoryPaymentStore) Upsert(_ context.Context, payment privilege.PaymentTransaction) (privilege.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.payments[payment.ApplicationID]; ok {
		existing.Amount = payment.Amount
		existing.Status = payment.Status
		existing.UpdatedAt = payment.UpdatedAt
		s.payments[payment.ApplicationID] = existing
		return existing, nil
	}
	s.payments[payment.ApplicationID] = payment
	return payment, nil
}

func (s *InMemoryPaymentStore) FindByApplication(_ context.Context, applicationID domain.ApplicationID) (privilege.PaymentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.payments[applicationID]
	if !ok {
		return privilege.PaymentTransaction{}, sentinel.ErrNotFound
	}
	return payment, nil
}

type InMemoryPrivilegeStore struct {
	mu         sync.RWMutex
	privileges map[domain.PrivilegeID]privilege.Privilege
}

func NewInMemoryPrivilegeStore() *InMemoryPrivilegeStore {
	return &InMemoryPrivilegeStore{
		privileges: make(map[domain.PrivilegeID]privilege.Privilege),
	}
}

func (s *InMemoryPrivilegeStore) Create(_ context.Context, p privilege.Privilege) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.privileges[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.privileges[p.ID] = p
	return nil
}

func (s *InMemoryPrivilegeStore) ListByPractitioner(_ context.Context, practitionerID domain.PractitionerID) ([]privilege.Privilege, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]privilege.Privilege, 0)
	for _, p := range s.privileges {
		if p.PractitionerID == practitionerID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
