package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"techmart/internal/catalog"
)

// CatalogExport is the document written to object storage.
type CatalogExport struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
	Products   []catalog.Product `json:"products"`
}

// SnapshotExporter writes the normalized catalogue to object storage so
// merchandising can diff listings between days.
type SnapshotExporter struct {
	storefront StorefrontService
	store      ObjectStore
	bucket     string
	now        func() time.Time
}

func NewSnapshotExporter(storefront StorefrontService, store ObjectStore, bucket string) *SnapshotExporter {
	return &SnapshotExporter{
		storefront: storefront,
		store:      store,
		bucket:     bucket,
		now:        time.Now,
	}
}

// ObjectName returns the key a catalogue version is stored under.
func ObjectName(version string) string {
	return fmt.Sprintf("catalog/%s.json", version)
}

// Export uploads the current catalogue and returns the object name.
func (e *SnapshotExporter) Export(ctx context.Context) (string, error) {
	version, products, err := e.storefront.Catalog(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read catalog for export: %w", err)
	}

	if err := e.store.EnsureBucketExists(ctx, e.bucket); err != nil {
		return "", fmt.Errorf("failed to prepare bucket %s: %w", e.bucket, err)
	}

	objectName := ObjectName(version)
	doc := CatalogExport{
		Version:    version,
		ExportedAt: e.now().UTC(),
		Count:      len(products),
		Products:   products,
	}
	if err := e.store.PutJSON(ctx, e.bucket, objectName, doc); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	log.Printf("Exported catalog %s (%d products) to %s/%s", version, len(products), e.bucket, objectName)
	return objectName, nil
}
