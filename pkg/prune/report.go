package prune

import (
	"fmt"

	"github.com/pkgslim/pkgslim/internal/scanner"
)

// Report is the exact size accounting of a pruned package root. The
// identity SizeBefore == SizeAfter + SizeDeleted always holds: soft-deleted
// copies preserve the original bytes, so "before" is simply the sum over
// every file present.
type Report struct {
	TotalFiles   int     `json:"total_files"`
	DeletedFiles int     `json:"deleted_files"`
	DeletedPct   float64 `json:"deleted_pct"`

	SizeBefore   int64   `json:"size_before"`
	SizeAfter    int64   `json:"size_after"`
	SizeDeleted  int64   `json:"size_deleted"`
	ReductionPct float64 `json:"reduction_pct"`
}

// ComputeReport walks root and partitions files into soft-deleted and kept.
func ComputeReport(root string) (*Report, error) {
	files, err := scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	r := &Report{}
	for _, f := range files {
		r.TotalFiles++
		r.SizeBefore += f.Size
		if f.Kind == scanner.KindSoftDeleted {
			r.DeletedFiles++
			r.SizeDeleted += f.Size
		}
	}
	r.SizeAfter = r.SizeBefore - r.SizeDeleted

	if r.TotalFiles > 0 {
		r.DeletedPct = 100 * float64(r.DeletedFiles) / float64(r.TotalFiles)
	}
	if r.SizeBefore > 0 {
		r.ReductionPct = 100 * float64(r.SizeDeleted) / float64(r.SizeBefore)
	}
	return r, nil
}

// String renders the report in the human-readable layout the CLI prints.
func (r *Report) String() string {
	return fmt.Sprintf(
		"  - Total files: %d\n"+
			"  - Deleted files: %d (%.1f%%)\n"+
			"  - Total size before: %.2f MB\n"+
			"  - Total size after:  %.2f MB\n"+
			"  - Size reduction:    %.2f MB (%.1f%%)",
		r.TotalFiles,
		r.DeletedFiles, r.DeletedPct,
		toMB(r.SizeBefore),
		toMB(r.SizeAfter),
		toMB(r.SizeDeleted), r.ReductionPct,
	)
}

func toMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
