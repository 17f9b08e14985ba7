package db

import (
	"context"
	"errors"
	"time"

	"genesisgraph/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Append persists one verification verdict. The generated record ID is
// written back into the argument's copy and returned.
func (r *RecordRepository) Append(ctx context.Context, record domain.VerificationRecord) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	if record.Signer == "" && record.Mode == "" {
		return "", errors.New("record must carry a signer or a mode")
	}

	model := VerificationRecordModel{
		ID:             uuid.NewString(),
		Signer:         record.Signer,
		Mode:           record.Mode,
		Algorithm:      record.Algorithm,
		Outcome:        record.Outcome,
		FailedStep:     record.FailedStep,
		Message:        record.Message,
		SignatureValid: record.SignatureValid,
		TransparencyOK: record.TransparencyOK,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.VerificationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VerificationRecordModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	record := recordFromModel(model)
	return &record, nil
}

func (r *RecordRepository) ListBySigner(ctx context.Context, signer string, limit int) ([]domain.VerificationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var models []VerificationRecordModel
	err := r.db.WithContext(ctx).
		Where("signer = ?", signer).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	records := make([]domain.VerificationRecord, 0, len(models))
	for _, m := range models {
		records = append(records, recordFromModel(m))
	}
	return records, nil
}

func recordFromModel(m VerificationRecordModel) domain.VerificationRecord {
	return domain.VerificationRecord{
		ID:             m.ID,
		Signer:         m.Signer,
		Mode:           m.Mode,
		Algorithm:      m.Algorithm,
		Outcome:        m.Outcome,
		FailedStep:     m.FailedStep,
		Message:        m.Message,
		SignatureValid: m.SignatureValid,
		TransparencyOK: m.TransparencyOK,
		CreatedAt:      m.CreatedAt,
	}
}
