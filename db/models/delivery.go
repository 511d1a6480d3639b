package models

// Delivery is one send attempt. URLRedacted never carries userinfo, query
// or fragment.
type Delivery struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement"`
	EventID        string `gorm:"column:event_id;type:text;not null;uniqueIndex"`
	Action         string `gorm:"column:action;type:text;not null"`
	URLRedacted    string `gorm:"column:url_redacted;type:text;not null"`
	Host           string `gorm:"column:host;type:text;not null;index:idx_deliveries_host"`
	Title          string `gorm:"column:title;type:text"`
	Status         string `gorm:"column:status;type:text;not null;index:idx_deliveries_status_created,priority:1"`
	Stage          string `gorm:"column:stage;type:text"`
	Error          string `gorm:"column:error;type:text"`
	HTMLBytes      int    `gorm:"column:html_bytes;not null;default:0"`
	ExtractedChars int    `gorm:"column:extracted_chars;not null;default:0"`
	CreatedAt      int64  `gorm:"column:created_at;not null;autoCreateTime:milli;index:idx_deliveries_status_created,priority:2"`
	FinishedAt     int64  `gorm:"column:finished_at;not null"`
}

func (Delivery) TableName() string { return "deliveries" }
