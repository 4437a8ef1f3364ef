// Package convert maps gorm rows to and from the public record schema.
package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sceneannotate/annotator/internal/model"
	"github.com/sceneannotate/annotator/pkg/core"
)

// SnapshotToCore rebuilds a snapshot from its rows. Annotations are ordered
// by Position regardless of how they were loaded. A row whose data no longer
// decodes is reported in Rejected, the same as a bad entry in a JSON file.
func SnapshotToCore(s model.Snapshot) *core.Snapshot {
	rows := make([]model.Annotation, len(s.Annotations))
	copy(rows, s.Annotations)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })

	out := &core.Snapshot{
		SchemaVersion: s.SchemaVersion,
		CreatedAt:     s.SavedAt.UTC(),
		Scene:         s.Scene,
		Annotations:   make([]core.Record, 0, len(rows)),
	}
	for i, row := range rows {
		var rec core.Record
		if err := json.Unmarshal(row.Data, &rec); err != nil {
			out.Rejected = append(out.Rejected, core.RejectedRecord{
				Index: i,
				Err:   fmt.Errorf("annotation row %d: %w", row.ID, err),
			})
			continue
		}
		out.Annotations = append(out.Annotations, rec)
	}
	return out
}

// SnapshotInfo summarizes a snapshot row without touching its annotations.
func SnapshotInfo(s model.Snapshot) core.SnapshotInfo {
	return core.SnapshotInfo{
		ID:            s.ID.String(),
		Scene:         s.Scene,
		SchemaVersion: s.SchemaVersion,
		CreatedAt:     s.SavedAt.UTC(),
		Count:         s.AnnotationCount,
	}
}
