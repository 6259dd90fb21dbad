package testutil

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CompanyFixture represents test company data
type CompanyFixture struct {
	ID   string
	Name string
	Slug string
	Type string
}

// UserFixture represents test user data
type UserFixture struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	Status       string
}

// PatientFixture represents test patient data
type PatientFixture struct {
	ID             string
	CompanyID      string
	EcpID          string
	CustomerNumber string
	FirstName      string
	LastName       string
}

// NewCompanyFixture creates a company fixture with generated IDs
func NewCompanyFixture(name, slug string) CompanyFixture {
	return CompanyFixture{
		ID:   uuid.New().String(),
		Name: name,
		Slug: slug,
		Type: "practice",
	}
}

// NewUserFixture creates an active ECP user fixture in the given company
func NewUserFixture(companyID, email string) UserFixture {
	return UserFixture{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Email:        email,
		PasswordHash: HashPassword("test-password-123"),
		FirstName:    "Test",
		LastName:     "User",
		Role:         "ecp",
		Status:       "active",
	}
}

// NewPatientFixture creates a patient fixture belonging to the given
// company and ECP
func NewPatientFixture(companyID, ecpID, customerNumber string) PatientFixture {
	return PatientFixture{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		EcpID:          ecpID,
		CustomerNumber: customerNumber,
		FirstName:      "Pat",
		LastName:       "Example",
	}
}

// HashPassword hashes a password with bcrypt at the minimum cost, which
// is plenty for test data.
func HashPassword(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}

// FixedTime returns a stable timestamp for deterministic assertions.
func FixedTime() time.Time {
	return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
}
