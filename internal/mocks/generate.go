// Package mocks provides mock implementations for testing the validation system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the ports in internal/core. The mocks are generated with go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	exec := mocks.NewMockTestExecutor(ctrl)
//	exec.EXPECT().Run(gomock.Any(), gomock.Any()).Return(outcome, nil)
package mocks

// Generate mock for TestExecutor interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=test_executor_mock.go github.com/entropix/entropy-certify/internal/core TestExecutor

// Generate mock for SampleSource interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=sample_source_mock.go github.com/entropix/entropy-certify/internal/core SampleSource

// Generate mock for ChunkResultRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=chunk_result_repository_mock.go github.com/entropix/entropy-certify/internal/core ChunkResultRepository

// Generate mock for ResultCache interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=result_cache_mock.go github.com/entropix/entropy-certify/internal/core ResultCache
