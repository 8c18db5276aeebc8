package main

import (
	"fmt"
	"log"
	"os"

	"prior-auth-be/internal/model"
	"prior-auth-be/pkg/database"
	"prior-auth-be/pkg/embedding"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// Seeds a demo reviewer, one intake case, and a small cohort of historical
// outcomes so nearest-neighbour lookups return something out of the box.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Seeding demo data...")

	// 1. Reviewer account
	password := os.Getenv("SEED_REVIEWER_PASSWORD")
	if password == "" {
		password = "reviewer123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error: bcrypt failed: %v", err)
	}
	hashStr := string(hash)

	reviewer := model.User{
		Email:        "reviewer@demo.local",
		PasswordHash: &hashStr,
		FullName:     "Demo Reviewer",
		Role:         "reviewer",
		Status:       "active",
	}
	if err := db.Where("email = ?", reviewer.Email).FirstOrCreate(&reviewer).Error; err != nil {
		log.Fatalf("Error: failed to seed reviewer: %v", err)
	}
	color.Green("Reviewer: %s (password %q)", reviewer.Email, password)

	// 2. A fresh case at intake
	demoCase := model.Case{
		Stage:         "intake",
		PayerId:       "aetna-ppo",
		ProviderEmail: "clinic@demo.local",
		Patient: datatypes.JSON([]byte(`{
			"name": "Jane Doe", "age": 54,
			"diagnosis": "rheumatoid arthritis", "icd10": "M05.79"
		}`)),
		Medication: datatypes.JSON([]byte(`{
			"name": "adalimumab", "dosage": "40mg biweekly", "prior_therapies": ["methotrexate"]
		}`)),
		AssignedReviewerId: &reviewer.Id,
	}
	if err := db.Where("payer_id = ? AND stage = ?", demoCase.PayerId, "intake").
		FirstOrCreate(&demoCase).Error; err != nil {
		log.Fatalf("Error: failed to seed case: %v", err)
	}
	color.Green("Case: %s", demoCase.Id)

	// 3. Historical cohort outcomes
	embedder := embedding.NewHashingProvider(64)

	cohort := []struct {
		payer   string
		text    string
		outcome string
		days    int
	}{
		{"aetna-ppo", "rheumatoid arthritis adalimumab methotrexate failed age 50s", "approved", 6},
		{"aetna-ppo", "rheumatoid arthritis etanercept methotrexate failed age 40s", "approved", 9},
		{"aetna-ppo", "psoriatic arthritis adalimumab no prior biologic", "denied", 14},
		{"aetna-ppo", "crohns disease adalimumab steroid dependent", "approved", 4},
		{"uhc-hmo", "rheumatoid arthritis adalimumab methotrexate failed", "approved", 11},
		{"uhc-hmo", "ankylosing spondylitis adalimumab nsaid failed", "denied", 21},
	}

	for i, row := range cohort {
		vec, err := embedder.Generate(row.payer + " " + row.text)
		if err != nil {
			log.Fatalf("Error: embedding failed: %v", err)
		}
		cv := model.CohortVector{
			PayerId:      row.payer,
			Outcome:      row.outcome,
			DecisionDays: row.days,
			Embedding:    pgvector.NewVector(vec),
		}
		if err := db.Create(&cv).Error; err != nil {
			log.Fatalf("Error: failed to seed cohort vector %d: %v", i, err)
		}
	}
	color.Green("Cohort vectors: %d", len(cohort))

	fmt.Println()
	color.Cyan("✅ Seed complete.")
}
