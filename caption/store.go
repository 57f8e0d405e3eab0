package caption

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/captionkit/database"
	apperrors "github.com/kbukum/captionkit/errors"
)

// Store persists captions.
type Store interface {
	// ReplaceForVideo atomically swaps every caption of videoID for captions
	// and returns them with ids assigned.
	ReplaceForVideo(ctx context.Context, videoID string, captions []Caption) ([]Caption, error)
	// ListByVideo returns the captions of videoID ordered by start time.
	ListByVideo(ctx context.Context, videoID string) ([]Caption, error)
	Get(ctx context.Context, id uuid.UUID) (*Caption, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Caption, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormStore is a Store over a gorm database.
type GormStore struct {
	db *database.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a store on db. Call Migrate before first use.
func NewGormStore(db *database.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the captions table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&Caption{})
}

func (s *GormStore) ReplaceForVideo(ctx context.Context, videoID string, captions []Caption) ([]Caption, error) {
	saved := make([]Caption, len(captions))
	copy(saved, captions)
	for i := range saved {
		saved[i].VideoID = videoID
		saved[i].ID = uuid.Nil
	}

	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", videoID).Delete(&Caption{}).Error; err != nil {
			return err
		}
		if len(saved) == 0 {
			return nil
		}
		return tx.CreateInBatches(&saved, 100).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, "captions", videoID)
	}
	return saved, nil
}

func (s *GormStore) ListByVideo(ctx context.Context, videoID string) ([]Caption, error) {
	var out []Caption
	err := s.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("start_time ASC, end_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, database.FromDatabase(err, "captions", videoID)
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*Caption, error) {
	var c Caption
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, database.FromDatabase(err, "caption", id.String())
	}
	return &c, nil
}

func (s *GormStore) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Caption, error) {
	var c Caption
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return err
		}
		if err := patch.Apply(&c); err != nil {
			return err
		}
		return tx.Save(&c).Error
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, database.FromDatabase(err, "caption", id.String())
	}
	return &c, nil
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Caption{}, "id = ?", id)
	if res.Error != nil {
		return database.FromDatabase(res.Error, "caption", id.String())
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("caption", id.String())
	}
	return nil
}
