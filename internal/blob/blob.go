// Package blob selects and wraps the audit blob backends. Callers depend on
// the blob.Store interface; the infra packages stay behind this facade.
package blob

import (
	"context"
	"fmt"
	"os"

	"remotefactory/internal/blob/core"
	"remotefactory/internal/infra/blob/fs"
	"remotefactory/internal/infra/blob/memory"
	"remotefactory/internal/infra/blob/s3"
)

// Re-exported contract types so callers need only this package.
type (
	Store      = core.Store
	Info       = core.Info
	PutOptions = core.PutOptions
	Driver     = core.Driver
)

// Driver identifiers.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// NewFilesystem returns a filesystem-backed store rooted at the path.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory store for tests.
func NewMemory() Store {
	return memory.New()
}

// Open selects a Store implementation using environment variables:
//
//	FACTORYD_AUDIT_BLOB_DRIVER: fs|s3|memory (default fs)
//	FACTORYD_AUDIT_FS_ROOT: directory root when driver=fs (default ./auditdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FACTORYD_AUDIT_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("FACTORYD_AUDIT_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown audit blob driver %s", driver)
	}
}
