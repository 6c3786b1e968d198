package configs

import (
	"brunopizza/entity"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the first admin from ADMIN_EMAIL / ADMIN_PASSWORD.
func SeedAdmin(db *gorm.DB, log *zap.Logger) error {
	email := getEnv("ADMIN_EMAIL", "")
	pass := getEnv("ADMIN_PASSWORD", "")
	if email == "" || pass == "" {
		log.Warn("skip seeding admin: missing ADMIN_EMAIL/ADMIN_PASSWORD")
		return nil
	}

	var count int64
	if err := db.Model(&entity.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("admin already exists", zap.String("email", email))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := entity.User{
		Email:    email,
		Password: string(hash),
		FullName: "Admin",
		Role:     entity.RoleAdmin,
	}
	return db.Create(&admin).Error
}

// SeedCatalog makes sure the pizza builder has its product and size rows.
func SeedCatalog(db *gorm.DB, customPrice int64) error {
	custom := entity.Product{Name: "Custom Pizza", IsCustom: true}
	if err := db.Where(entity.Product{Name: custom.Name, IsCustom: true}).
		Attrs(entity.Product{Price: customPrice, IsAvailable: true}).
		FirstOrCreate(&custom).Error; err != nil {
		return err
	}
	for _, s := range []entity.Size{
		{Name: "Custom", PriceDelta: 0},
		{Name: "S", PriceDelta: 0},
		{Name: "M", PriceDelta: 30000},
		{Name: "L", PriceDelta: 60000},
	} {
		size := s
		if err := db.Where(entity.Size{Name: size.Name}).
			Attrs(entity.Size{PriceDelta: size.PriceDelta}).
			FirstOrCreate(&size).Error; err != nil {
			return err
		}
	}
	return nil
}
