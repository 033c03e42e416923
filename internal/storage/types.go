package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("storage: not found")
	ErrNotInitialized      = errors.New("storage: database not initialized")
	ErrSchemaTooNew        = errors.New("storage: schema version newer than code")
	ErrNoValidFields       = errors.New("storage: no valid fields provided for update")
	ErrValidation          = errors.New("storage: validation failed")
	ErrConstraintViolation = errors.New("storage: constraint violation")
	ErrUniqueViolation     = errors.New("storage: unique constraint violation")
	ErrForeignKeyViolation = errors.New("storage: foreign key constraint violation")
	ErrFileShared          = errors.New("storage: file is referenced by another row")
)

type PhoneType string

const (
	PhoneTypePrimary   PhoneType = "Primary"
	PhoneTypeSecondary PhoneType = "Secondary"
	PhoneTypeOther     PhoneType = "Other"
)

type ReturnType string

const (
	ReturnTypeOneWay   ReturnType = "One-way"
	ReturnTypeBothWays ReturnType = "Both-ways"
)

// User.Password holds the encoded password hash, never the plaintext.
type User struct {
	ID          string `validate:"required"`
	Email       string `validate:"required,email"`
	Password    string `validate:"required"`
	Name        string `validate:"required"`
	CountryCode *string
	PhoneNumber *string
	Address     *string
	Gender      *string
	Birthday    *string `validate:"omitempty,datetime=2006-01-02"`
	Image       *string
	CreatedAt   time.Time
}

type PhoneNumber struct {
	ID          string    `validate:"required"`
	UserID      string    `validate:"required"`
	CountryCode string    `validate:"required"`
	PhoneNumber string    `validate:"required"`
	PhoneType   PhoneType `validate:"required,oneof=Primary Secondary Other"`
}

type Booking struct {
	ID              string     `validate:"required"`
	UserID          string     `validate:"required"`
	FromLocation    string     `validate:"required"`
	ToLocation      string     `validate:"required"`
	DepartureDate   string     `validate:"required,datetime=2006-01-02"`
	DepartureTime   string     `validate:"required,datetime=15:04:05"`
	ArrivalDate     string     `validate:"required,datetime=2006-01-02"`
	ArrivalTime     string     `validate:"required,datetime=15:04:05"`
	CustomerName    string     `validate:"required"`
	CustomerContact string     `validate:"required"`
	DriverName      *string
	DriverContact   *string
	OwnerName       *string
	OwnerContact    *string
	Money           float64    `validate:"gte=0"`
	Advance         float64    `validate:"gte=0"`
	PaymentAmount   float64    `validate:"gte=0"`
	PaymentStatus   string
	OilStatus       string
	BookingStatus   string
	ReturnType      ReturnType `validate:"required,oneof=One-way Both-ways"`
	Extras          *string
	CreatedAt       time.Time
}

type Document struct {
	ID         string `validate:"required"`
	UserID     string `validate:"required"`
	Name       string `validate:"required"`
	FilePath   string `validate:"required"`
	FileType   string `validate:"required"`
	ExpiryDate string `validate:"required,datetime=2006-01-02"`
	Comments   *string
	CreatedAt  time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, patch Patch) error
	ImagePaths(ctx context.Context) ([]string, error)
	FileReferences(ctx context.Context, path string) (int, error)
}

type PhoneRepository interface {
	Add(ctx context.Context, phone *PhoneNumber) error
	Get(ctx context.Context, id string) (*PhoneNumber, error)
	ListByUser(ctx context.Context, userID string) ([]PhoneNumber, error)
	Delete(ctx context.Context, id string) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
	FilePaths(ctx context.Context) ([]string, error)
	FileReferences(ctx context.Context, path string) (int, error)
}
