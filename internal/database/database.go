package database

import (
	"errors"
	"fmt"
	"strings"

	"tienda/internal/models"
	"tienda/internal/repositories"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the database selected by the DSN: a postgres DSN
// ("postgres://..." or the "host=..." key/value form) uses the postgres
// driver, anything else is treated as a sqlite path.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "host=") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates the users and products tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SampleProducts is the seed catalog. Rows are keyed by id, so re-seeding
// is idempotent.
func SampleProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Laptop Gaming Pro", Description: "Laptop potente para gaming con tarjeta gráfica dedicada", Price: 1299.99, ImageURL: "https://picsum.photos/200/300?random=1", Category: "Tecnología", Stock: 5},
		{ID: 2, Name: "Smartphone Ultra", Description: "Teléfono inteligente de última generación con 5G", Price: 799.99, ImageURL: "https://picsum.photos/200/300?random=2", Category: "Tecnología", Stock: 15},
		{ID: 3, Name: "Auriculares Bluetooth Premium", Description: "Auriculares inalámbricos con cancelación de ruido", Price: 199.99, ImageURL: "https://picsum.photos/200/300?random=3", Category: "Audio", Stock: 20},
		{ID: 4, Name: "Tablet Pro 12.9", Description: "Tablet profesional para diseño y productividad", Price: 899.99, ImageURL: "https://picsum.photos/200/300?random=4", Category: "Tecnología", Stock: 8},
		{ID: 5, Name: "Smart Watch Series 8", Description: "Reloj inteligente con monitor de salud avanzado", Price: 349.99, ImageURL: "https://picsum.photos/200/300?random=5", Category: "Wearables", Stock: 12},
		{ID: 6, Name: "Cámara DSLR Pro", Description: "Cámara profesional con lente intercambiable", Price: 1499.99, ImageURL: "https://picsum.photos/200/300?random=6", Category: "Fotografía", Stock: 3},
		{ID: 7, Name: "Altavoz Inteligente", Description: "Altavoz con asistente virtual integrado", Price: 129.99, ImageURL: "https://picsum.photos/200/300?random=7", Category: "Audio", Stock: 25},
		{ID: 8, Name: "Monitor 4K 32\"", Description: "Monitor ultra HD para trabajo y entretenimiento", Price: 499.99, ImageURL: "https://picsum.photos/200/300?random=8", Category: "Tecnología", Stock: 7},
	}
}

// SeedProducts inserts the sample catalog, skipping rows that already exist.
func SeedProducts(repo repositories.ProductRepository) error {
	for _, product := range SampleProducts() {
		if _, err := repo.GetByID(product.ID); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("failed to check product %d: %w", product.ID, err)
		}
		p := product
		if err := repo.Create(&p); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", product.ID, err)
		}
	}
	return nil
}
