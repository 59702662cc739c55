package store

import (
	"context"
	"sort"
	"sync"

	"licensure/internal/license"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

// InMemoryLicenseStore keeps licenses in a mutex-guarded map. Used in tests
// and for local development without Postgres.
type InMemoryLicenseStore struct {
	mu       sync.RWMutex
	licenses map[domain.LicenseID]license.License
}

func NewInMemoryLicenseStore() *InMemoryLicenseStore {
	return &InMemoryLicenseStore{
		licenses: make(map[domain.LicenseID]license.License),
	}
}

func (s *InMemoryLicenseStore) Create(_ context.Context, lic license.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.licenses[lic.ID]; ok {
		return sentinel.ErrConflict
	}
	s.licenses[lic.ID] = lic
	return nil
}

func (s *InMemoryLicenseStore) FindByID(_ context.Context, id domain.LicenseID) (license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lic, ok := s.licenses[id]
	if !ok {
		return license.License{}, sentinel.ErrNotFound
	}
	return lic, nil
}

func (s *InMemoryLicenseStore) Update(_ context.Context, lic license.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.licenses[lic.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.licenses[lic.ID] = lic
	return nil
}

func (s *InMemoryLicenseStore) List(_ context.Context, filter license.ListFilter) ([]license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]license.License, 0)
	for _, lic := range s.licenses {
		if !filter.PractitionerID.IsNil() && lic.PractitionerID != filter.PractitionerID {
			continue
		}
		if !filter.IssuingStateID.IsNil() && lic.IssuingStateID != filter.IssuingStateID {
			continue
		}
		if filter.VerificationStatus != "" && lic.VerificationStatus != filter.VerificationStatus {
			continue
		}
		result = append(result, lic)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpirationDate.Before(result[j].ExpirationDate)
	})
	return result, nil
}

// InMemoryDesignationStore keeps designations in a mutex-guarded map.
type InMemoryDesignationStore struct {
	mu           sync.RWMutex
	designations map[domain.DesignationID]license.Designation
}

func NewInMemoryDesignationStore() *InMemoryDesignationStore {
	return &InMemoryDesignationStore{
		designations: make(map[domain.DesignationID]license.Designation),
	}
}

func (s *InMemoryDesignationStore) Create(_ context.Context, d license.Designation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.designations[d.ID]; ok {
		return sentinel.ErrConflict
	}
	s.designations[d.ID] = d
	return nil
}

func (s *InMemoryDesignationStore) Update(_ context.Context, d license.Designation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.designations[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.designations[d.ID] = d
	return nil
}

func (s *InMemoryDesignationStore) FindActiveByPractitioner(_ context.Context, practitionerID domain.PractitionerID) (license.Designation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.designations {
		if d.PractitionerID == practitionerID && d.Status == license.DesignationActive {
			return d, nil
		}
	}
	return license.Designation{}, sentinel.ErrNotFound
}

func (s *InMemoryDesignationStore) ListByPractitioner(_ context.Context, practitionerID domain.PractitionerID) ([]license.Designation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]license.Designation, 0)
	for _, d := range s.designations {
		if d.PractitionerID == practitionerID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
