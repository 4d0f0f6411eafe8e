// Package sqlite persists scrape jobs and their results.
package sqlite

import (
	"context"
	"errors"
	"time"

	driver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

var _ entities.JobStore = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	db, err := gorm.Open(driver.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	ans := Store{
		db: db,
	}

	return &ans, nil
}

func (s *Store) AutoMigrate(_ context.Context) error {
	return s.db.AutoMigrate(&job{})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *Store) CreateJob(ctx context.Context, j *entities.Job) error {
	if j.Status == "" {
		j.Status = entities.JobStatusCreated
	}

	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}

	dbo := jobFromEntitiesJob(j)

	return s.db.WithContext(ctx).Create(&dbo).Error
}

func (s *Store) GetJob(ctx context.Context, id string) (entities.Job, error) {
	dbo, err := s.find(ctx, id)
	if err != nil {
		return entities.Job{}, err
	}

	return dbo.toEntitiesJob(), nil
}

// CleanUpIncompleteJobs marks jobs left running by a previous process as stopped.
func (s *Store) CleanUpIncompleteJobs(ctx context.Context) error {
	return s.db.WithContext(ctx).Model(&job{}).
		Where("status = ?", entities.JobStatusRunning).
		Update("status", entities.JobStatusStopped).
		Error
}

func (s *Store) SelectAllJobs(ctx context.Context) ([]entities.Job, error) {
	var dbos []job

	db := s.db.WithContext(ctx)
	db = db.Order("created_at DESC")

	if err := db.Find(&dbos).Error; err != nil {
		return nil, err
	}

	ans := make([]entities.Job, len(dbos))
	for i := range dbos {
		ans[i] = dbos[i].toEntitiesJob()
	}

	return ans, nil
}

// LatestResult returns the most recent finished result for url.
func (s *Store) LatestResult(ctx context.Context, url string) (entities.Result, bool, error) {
	var dbo job

	err := s.db.WithContext(ctx).
		Where("url = ? AND status = ? AND result IS NOT NULL", url, entities.JobStatusDone).
		Order("finished_at DESC").
		First(&dbo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Result{}, false, nil
		}

		return entities.Result{}, false, err
	}

	return entities.Result(dbo.Result), true, nil
}

func (s *Store) SetJobStatus(ctx context.Context, id string, status string) error {
	dbo, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	dbo.Status = status
	if status == entities.JobStatusDone || status == entities.JobStatusFailed {
		now := time.Now().UTC()
		dbo.FinishedAt = &now
	}

	return s.db.WithContext(ctx).Save(&dbo).Error
}

func (s *Store) SetJobResult(ctx context.Context, id string, r entities.Result) error {
	dbo, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	dbo.Result = result(r)
	dbo.Status = entities.JobStatusDone
	dbo.FinishedAt = &now

	return s.db.WithContext(ctx).Save(&dbo).Error
}

func (s *Store) SetJobError(ctx context.Context, id string, msg string) error {
	dbo, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	dbo.Error = msg
	dbo.Status = entities.JobStatusFailed
	dbo.FinishedAt = &now

	return s.db.WithContext(ctx).Save(&dbo).Error
}

func (s *Store) find(ctx context.Context, id string) (job, error) {
	var dbo job

	if err := s.db.WithContext(ctx).First(&dbo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return job{}, entities.ErrJobNotFound
		}

		return job{}, err
	}

	return dbo, nil
}
