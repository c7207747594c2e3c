package models

import (
	"time"

	"gorm.io/datatypes"
)

// QueryRecord 是一次问答交换的账本记录，写入后不再修改。
type QueryRecord struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	InputText       string    `gorm:"type:text;not null" json:"question"`
	ResponseText    string    `gorm:"type:text;not null" json:"answer"`
	ModelUsed       string    `gorm:"size:255" json:"model_used,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	ResponseTimeMs  *float64  `json:"response_time_ms,omitempty"`
	CreatedAt       time.Time `gorm:"index;not null" json:"created_at"`

	// Embedding 不落在本表，追加时写入 vector_entries。
	Embedding []float32 `gorm:"-" json:"-"`
}

func (QueryRecord) TableName() string {
	return "query_records"
}

// VectorEntry 保存一条记录的向量，与 QueryRecord 一对一，仅持有记录 ID。
type VectorEntry struct {
	RecordID uint64                       `gorm:"primaryKey;autoIncrement:false"`
	Dim      int                          `gorm:"not null"`
	Vector   datatypes.JSONSlice[float32] `gorm:"not null"`
}

func (VectorEntry) TableName() string {
	return "vector_entries"
}

// QueryRecordedEvent 是记录提交后发布到消息队列的事件。
type QueryRecordedEvent struct {
	RecordID       uint64    `json:"record_id"`
	UserID         uint      `json:"user_id"`
	ModelUsed      string    `json:"model_used,omitempty"`
	ResponseTimeMs *float64  `json:"response_time_ms,omitempty"`
	HasEmbedding   bool      `json:"has_embedding"`
	CreatedAt      time.Time `json:"created_at"`
}
