package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
)

// archivePayload stores the LZ4-compressed raw payload keyed by content
// hash. Identical content already archived is left untouched.
func (s *Store) archivePayload(tx *gorm.DB, input *core.UploadInput) error {
	compressed := make([]byte, lz4.CompressBlockBound(len(input.RawPayload)))
	n, err := lz4.CompressBlock(input.RawPayload, compressed, nil)
	if err != nil {
		return err
	}
	blob := UploadBlob{
		ContentHash: input.ContentHash,
		Format:      input.Format,
		RawSize:     len(input.RawPayload),
		Compressed:  compressed[:n],
	}
	if n == 0 {
		// incompressible input is stored as-is, RawSize disambiguates
		blob.Compressed = input.RawPayload
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&blob).Error
}

// GetRawPayload returns the archived raw payload for a content hash.
func (s *Store) GetRawPayload(ctx context.Context, contentHash string) ([]byte, error) {
	blob := UploadBlob{}
	if err := s.db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&blob).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.NotFoundError{Entity: "upload", Key: contentHash}
		}
		return nil, translateError(err)
	}
	if len(blob.Compressed) == blob.RawSize {
		return blob.Compressed, nil
	}
	raw := make([]byte, blob.RawSize)
	n, err := lz4.UncompressBlock(blob.Compressed, raw)
	if err != nil {
		return nil, &errs.StorageUnavailableError{Err: fmt.Errorf("decompressing archived upload: %w", err)}
	}
	return raw[:n], nil
}
