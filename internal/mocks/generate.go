// Package mocks provides mock implementations for testing the tracker's ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// collaborator interfaces. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	query := mocks.NewMockQueryClient(ctrl)
//	query.EXPECT().QueryTestQueueItems(gomock.Any(), gomock.Any()).Return(records, nil)
package mocks

// Generate mocks for the Transport, QueryClient, and CredentialSource interfaces
// from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ports_mock.go github.com/MuriloKakazu/salesforcedx-apex/internal/ports Transport,QueryClient,CredentialSource
