package db

import "time"

type VerificationRecordModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Signer         string `gorm:"index"`
	Mode           string `gorm:"not null"`
	Algorithm      string
	Outcome        string `gorm:"index;not null"`
	FailedStep     string
	Message        string
	SignatureValid bool      `gorm:"not null"`
	TransparencyOK *bool     `gorm:"column:transparency_ok"`
	CreatedAt      time.Time `gorm:"index;not null"`
}

func (VerificationRecordModel) TableName() string {
	return "verification_records"
}
