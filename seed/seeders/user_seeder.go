package seeders

import (
	"log"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/shared"
	"gorm.io/gorm"
)

// UserSeeder creates one user per role
type UserSeeder struct {
	db *gorm.DB
}

func NewUserSeeder(db *gorm.DB) *UserSeeder {
	return &UserSeeder{db: db}
}

// DemoUsers are the accounts created by SeedUsers
func DemoUsers() []model.User {
	now := time.Now()
	return []model.User{
		{ID: "user_admin", Email: "admin@akademo.dev", Name: "Admin", Role: shared.RoleAdmin, CreatedAt: now, UpdatedAt: now},
		{ID: "user_academy", Email: "academy@akademo.dev", Name: "Academy Owner", Role: shared.RoleAcademy, CreatedAt: now, UpdatedAt: now},
		{ID: "user_teacher", Email: "teacher@akademo.dev", Name: "Teacher", Role: shared.RoleTeacher, CreatedAt: now, UpdatedAt: now},
		{ID: "user_student", Email: "student@akademo.dev", Name: "Student", Role: shared.RoleStudent, CreatedAt: now, UpdatedAt: now},
	}
}

func (s *UserSeeder) SeedUsers() error {
	for _, user := range DemoUsers() {
		var existing model.User
		if err := s.db.Where("id = ?", user.ID).First(&existing).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				log.Printf("Error checking user %s: %v", user.Email, err)
				return err
			}
			if err := s.db.Create(&user).Error; err != nil {
				log.Printf("Error creating user %s: %v", user.Email, err)
				return err
			}
			log.Printf("Created %s user: %s", user.Role, user.Email)
		} else {
			log.Printf("User %s already exists, skipping", user.Email)
		}
	}

	log.Println("User seeding completed successfully")
	return nil
}
