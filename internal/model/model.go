package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table migrated by the gorm backends.
var DatabaseModels = []any{
	&Snapshot{},
	&Annotation{},
}

// Snapshot is one saved annotation layer.
type Snapshot struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
	Scene           string         `json:"scene" gorm:"size:255;index"`
	SchemaVersion   int            `json:"schemaVersion"`
	SavedAt         time.Time      `json:"savedAt" gorm:"index"`
	AnnotationCount int            `json:"annotationCount"`
	Annotations     []Annotation   `json:"annotations" gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
}

func (*Snapshot) TableName() string {
	return "snapshots"
}

// BeforeCreate assigns a random ID to snapshots saved without one.
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Annotation is one record of a snapshot. The full record is kept in Data;
// kind and label are copied out for querying.
type Annotation struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement"`
	SnapshotID uuid.UUID      `json:"snapshotId" gorm:"type:uuid;index:idx_annotation_order,priority:1"`
	Position   int            `json:"position" gorm:"index:idx_annotation_order,priority:2"`
	ShapeKind  string         `json:"shapeKind" gorm:"size:32;index"`
	Label      string         `json:"label" gorm:"size:255"`
	Data       datatypes.JSON `json:"data"`
}

func (*Annotation) TableName() string {
	return "annotations"
}
