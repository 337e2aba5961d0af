package repositories

import (
	"context"

	"github.com/alexxvives/akademo_api/model"
	"gorm.io/gorm"
)

// VideoRepository reads the content catalog needed to price a video
type VideoRepository struct {
	BaseRepository
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetVideoWithPolicy loads the video together with its lesson and academy so
// the watch multiplier can be resolved in one round trip.
func (r *VideoRepository) GetVideoWithPolicy(ctx context.Context, videoID string) (*model.Video, error) {
	var video model.Video
	err := r.withContext(ctx).
		Preload("Lesson.Academy").
		Where("id = ?", videoID).
		First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *VideoRepository) VideoExists(ctx context.Context, videoID string) (bool, error) {
	var count int64
	if err := r.withContext(ctx).Model(&model.Video{}).Where("id = ?", videoID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *VideoRepository) CreateAcademy(ctx context.Context, academy *model.Academy) error {
	return r.withContext(ctx).Create(academy).Error
}

func (r *VideoRepository) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	return r.withContext(ctx).Omit("Academy").Create(lesson).Error
}

func (r *VideoRepository) CreateVideo(ctx context.Context, video *model.Video) error {
	return r.withContext(ctx).Omit("Lesson").Create(video).Error
}
