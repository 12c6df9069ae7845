package domain

import "time"

// QRCodeGenerator is one series of allocatable bag codes. Count is the next
// free sequence id; it only ever advances.
type QRCodeGenerator struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Prefix    int       `json:"prefix" gorm:"not null;uniqueIndex"`
	Count     int64     `json:"count" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QRCodeGenerator) TableName() string { return "qr_code_generators" }

// QRCodeInterval is a contiguous range of sequence ids issued together under
// one salt. Immutable once created; intervals of a generator never overlap.
type QRCodeInterval struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	GeneratorID int64     `json:"generator_id" gorm:"not null;index"`
	Start       int64     `json:"start" gorm:"not null"`
	Length      int64     `json:"length" gorm:"not null"`
	Salt        string    `json:"salt" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QRCodeInterval) TableName() string { return "qr_code_intervals" }

// Contains reports whether the sequence id falls inside this interval.
func (i QRCodeInterval) Contains(id int64) bool {
	return id >= i.Start && id < i.Start+i.Length
}
