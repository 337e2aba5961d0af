package seeders

import (
	"log"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"gorm.io/gorm"
)

// CatalogSeeder creates a small academy with lessons and videos covering
// every way a watch budget can be resolved.
type CatalogSeeder struct {
	db *gorm.DB
}

func NewCatalogSeeder(db *gorm.DB) *CatalogSeeder {
	return &CatalogSeeder{db: db}
}

func (s *CatalogSeeder) SeedCatalog() error {
	now := time.Now()

	academies := []model.Academy{
		{ID: "academy_demo", Name: "Demo Academy", DefaultWatchMultiplier: floatPtr(3), CreatedAt: now, UpdatedAt: now},
		{ID: "academy_plain", Name: "Plain Academy", CreatedAt: now, UpdatedAt: now},
	}
	lessons := []model.Lesson{
		// Lesson multiplier wins over the academy default
		{ID: "lesson_intro", AcademyID: "academy_demo", Title: "Introduction", WatchMultiplier: floatPtr(1.5), CreatedAt: now, UpdatedAt: now},
		{ID: "lesson_academy_default", AcademyID: "academy_demo", Title: "Uses academy default", CreatedAt: now, UpdatedAt: now},
		{ID: "lesson_global_default", AcademyID: "academy_plain", Title: "Uses global default", CreatedAt: now, UpdatedAt: now},
	}
	videos := []model.Video{
		{ID: "video_intro", LessonID: "lesson_intro", Title: "Welcome", DurationSeconds: floatPtr(120), CreatedAt: now, UpdatedAt: now},
		{ID: "video_academy_default", LessonID: "lesson_academy_default", Title: "Ten minute lecture", DurationSeconds: floatPtr(600), CreatedAt: now, UpdatedAt: now},
		{ID: "video_global_default", LessonID: "lesson_global_default", Title: "Short clip", DurationSeconds: floatPtr(30), CreatedAt: now, UpdatedAt: now},
		{ID: "video_processing", LessonID: "lesson_intro", Title: "Still transcoding", CreatedAt: now, UpdatedAt: now},
	}

	for i := range academies {
		if err := s.createIfMissing(&model.Academy{}, academies[i].ID, &academies[i], academies[i].Name); err != nil {
			return err
		}
	}
	for i := range lessons {
		if err := s.createIfMissing(&model.Lesson{}, lessons[i].ID, &lessons[i], lessons[i].Title); err != nil {
			return err
		}
	}
	for i := range videos {
		if err := s.createIfMissing(&model.Video{}, videos[i].ID, &videos[i], videos[i].Title); err != nil {
			return err
		}
	}

	log.Println("Catalog seeding completed successfully")
	return nil
}

func (s *CatalogSeeder) createIfMissing(existing interface{}, id string, record interface{}, name string) error {
	err := s.db.Where("id = ?", id).First(existing).Error
	if err == nil {
		log.Printf("%s already exists, skipping", name)
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		log.Printf("Error checking %s: %v", name, err)
		return err
	}

	if err := s.db.Omit("Academy", "Lesson").Create(record).Error; err != nil {
		log.Printf("Error creating %s: %v", name, err)
		return err
	}
	log.Printf("Created: %s", name)
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}
