package convert

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sceneannotate/annotator/internal/model"
	"github.com/sceneannotate/annotator/pkg/core"
	"gorm.io/datatypes"
)

// SnapshotToGorm converts a core snapshot into table rows under the given ID.
// Records keep their order through Annotation.Position.
func SnapshotToGorm(id uuid.UUID, s *core.Snapshot) (model.Snapshot, error) {
	out := model.Snapshot{
		ID:              id,
		Scene:           s.Scene,
		SchemaVersion:   s.SchemaVersion,
		SavedAt:         s.CreatedAt,
		AnnotationCount: len(s.Annotations),
		Annotations:     make([]model.Annotation, 0, len(s.Annotations)),
	}

	for i, rec := range s.Annotations {
		data, err := json.Marshal(rec)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("marshal annotation %d: %w", i, err)
		}
		out.Annotations = append(out.Annotations, model.Annotation{
			SnapshotID: id,
			Position:   i,
			ShapeKind:  string(rec.ShapeKind),
			Label:      rec.Label,
			Data:       datatypes.JSON(data),
		})
	}
	return out, nil
}
