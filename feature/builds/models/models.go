package models

import "time"

// BuildStatus is the lifecycle state of a build.
type BuildStatus string

const (
	StatusPending      BuildStatus = "PENDING"
	StatusTransforming BuildStatus = "TRANSFORMING"
	StatusExporting    BuildStatus = "EXPORTING"
	StatusCompleted    BuildStatus = "COMPLETED"
	StatusFailed       BuildStatus = "FAILED"
	StatusCancelled    BuildStatus = "CANCELLED"
)

// Product represents the 'products' table: one release package line, e.g.
// the international edition or a national extension.
type Product struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Key           string    `gorm:"column:product_key;uniqueIndex" json:"key"`
	Name          string    `gorm:"column:name" json:"name"`
	ReleaseCenter string    `gorm:"column:release_center" json:"release_center"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (Product) TableName() string {
	return "products"
}

// Build represents the 'builds' table: one release build of a product.
type Build struct {
	ID               uint        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID        uint        `gorm:"column:product_id;index" json:"product_id"`
	Status           BuildStatus `gorm:"column:status" json:"status"`
	EffectiveTime    string      `gorm:"column:effective_time" json:"effective_time"`
	FirstTimeRelease bool        `gorm:"column:first_time_release" json:"first_time_release"`
	WorkbenchFixes   bool        `gorm:"column:workbench_fixes" json:"workbench_fixes"`
	PreviousPackage  string      `gorm:"column:previous_package" json:"previous_package"`
	CancelRequested  bool        `gorm:"column:cancel_requested" json:"cancel_requested"`
	FailureMessage   string      `gorm:"column:failure_message" json:"failure_message,omitempty"`
	CreatedAt        time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (Build) TableName() string {
	return "builds"
}
