package staff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/auth"
)

type memoryStaffRepo struct {
	profiles map[string]Profile
	hashes   map[string]string
}

func newMemoryStaffRepo() *memoryStaffRepo {
	return &memoryStaffRepo{profiles: map[string]Profile{}, hashes: map[string]string{}}
}

func (m *memoryStaffRepo) List(_ context.Context, role string) ([]Profile, error) {
	var matched []Profile
	for _, p := range m.profiles {
		if !p.IsActive {
			continue
		}
		if role != "" && p.Role != role {
			continue
		}
		matched = append(matched, p)
	}
	return matched, nil
}

func (m *memoryStaffRepo) Get(_ context.Context, id string) (Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (m *memoryStaffRepo) Create(_ context.Context, profile Profile, passwordHash string) (Profile, error) {
	for _, existing := range m.profiles {
		if existing.Email == profile.Email {
			return Profile{}, ErrEmailTaken
		}
	}
	profile.IsActive = true
	m.profiles[profile.ID] = profile
	m.hashes[profile.ID] = passwordHash
	return profile, nil
}

func (m *memoryStaffRepo) Update(_ context.Context, profile Profile) (Profile, error) {
	if _, ok := m.profiles[profile.ID]; !ok {
		return Profile{}, ErrProfileNotFound
	}
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *memoryStaffRepo) Delete(_ context.Context, id string) error {
	p, ok := m.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	p.IsActive = false
	m.profiles[id] = p
	return nil
}

func TestCreateProfile(t *testing.T) {
	repo := newMemoryStaffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Profile{Email: "jane@novadent.co.ke", FirstName: "Jane", Role: "janitor"}, "changeme1")
	require.Error(t, err, "unknown role must be rejected")

	_, err = svc.Create(ctx, Profile{Email: "jane@novadent.co.ke", FirstName: "Jane", Role: auth.RoleDentist}, "short")
	require.Error(t, err, "short passwords must be rejected")

	created, err := svc.Create(ctx, Profile{Email: "jane@novadent.co.ke", FirstName: "Jane", LastName: "Achieng", Role: auth.RoleDentist}, "changeme1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, created.IsActive)
	require.NotEmpty(t, repo.hashes[created.ID])
	require.NotEqual(t, "changeme1", repo.hashes[created.ID], "passwords are stored hashed")

	_, err = svc.Create(ctx, Profile{Email: "jane@novadent.co.ke", FirstName: "Other", Role: auth.RoleAdmin}, "changeme1")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestListFiltersByRole(t *testing.T) {
	repo := newMemoryStaffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	repo.profiles["1"] = Profile{ID: "1", Email: "a@novadent.co.ke", Role: auth.RoleDentist, IsActive: true}
	repo.profiles["2"] = Profile{ID: "2", Email: "b@novadent.co.ke", Role: auth.RoleReceptionist, IsActive: true}
	repo.profiles["3"] = Profile{ID: "3", Email: "c@novadent.co.ke", Role: auth.RoleDentist, IsActive: false}

	_, err := svc.List(ctx, "superuser")
	require.Error(t, err, "unknown role filter must be rejected")

	dentists, err := svc.List(ctx, auth.RoleDentist)
	require.NoError(t, err)
	require.Len(t, dentists, 1, "deactivated profiles stay out of pickers")
	require.Equal(t, "1", dentists[0].ID)
}

func TestDeleteDeactivates(t *testing.T) {
	repo := newMemoryStaffRepo()
	svc := NewService(repo)
	ctx := context.Background()

	repo.profiles["1"] = Profile{ID: "1", Email: "a@novadent.co.ke", Role: auth.RoleDentist, IsActive: true}

	require.NoError(t, svc.Delete(ctx, "1"))
	profile, err := svc.Get(ctx, "1")
	require.NoError(t, err, "deactivated profiles keep their history")
	require.False(t, profile.IsActive)
}

func TestFullName(t *testing.T) {
	require.Equal(t, "Jane Achieng", Profile{FirstName: "Jane", LastName: "Achieng"}.FullName())
	require.Equal(t, "Jane", Profile{FirstName: "Jane"}.FullName())
	require.Equal(t, "Achieng", Profile{LastName: "Achieng"}.FullName())
}
