package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/model"
)

type mockBackupService struct {
	mock.Mock
}

func (m *mockBackupService) List(ctx context.Context) (*model.BackupList, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BackupList), args.Error(1)
}

func (m *mockBackupService) Get(ctx context.Context, backupID string) (*model.Manifest, error) {
	args := m.Called(ctx, backupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Manifest), args.Error(1)
}

func (m *mockBackupService) Create(ctx context.Context, in core.CreateBackupInput) (*model.Manifest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Manifest), args.Error(1)
}

func (m *mockBackupService) Restore(ctx context.Context, in core.RestoreInput) (*model.RestoreLogs, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RestoreLogs), args.Error(1)
}

func (m *mockBackupService) Status(ctx context.Context) (*core.RestoreStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.RestoreStatus), args.Error(1)
}

type mockAPIKeyStore struct {
	mock.Mock
}

func (m *mockAPIKeyStore) Create(ctx context.Context, name string, isAdmin bool) (*model.APIKey, string, error) {
	args := m.Called(ctx, name, isAdmin)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*model.APIKey), args.String(1), args.Error(2)
}

func (m *mockAPIKeyStore) List(ctx context.Context) ([]model.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *mockAPIKeyStore) Revoke(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
