package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrReference = errors.New("referenced object does not exist")
)

// All repository interfaces in one file. Every patient-scoped call takes the
// owning account id; records of other accounts behave as missing.
type (
	AccountRepository interface {
		CreateAccount(ctx context.Context, account *model.Account) error
		GetAccount(ctx context.Context, id int) (*model.Account, error)
		GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, owner int, patient *model.Patient) error
		Get(ctx context.Context, owner, id int) (*model.Patient, error)
		Update(ctx context.Context, owner int, patient *model.Patient) error
		Delete(ctx context.Context, owner, id int) error
		List(ctx context.Context, owner int) ([]model.Patient, error)
		SetProfilePicture(ctx context.Context, owner, id int, url string) (*model.Patient, error)
	}

	ReportRepository interface {
		CreateReport(ctx context.Context, owner int, report *model.Report) error
	}

	ResultRepository interface {
		AddResults(ctx context.Context, owner, patientID int, results []model.ClassificationResult) ([]model.ClassificationResult, error)
		DeleteResult(ctx context.Context, owner, id int) error
	}

	MediaRepository interface {
		PutMedia(ctx context.Context, path string, data []byte) error
		GetMedia(ctx context.Context, path string) ([]byte, error)
	}
)
