package acquire

import (
	"context"
	"path/filepath"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

// FileSource reads a delimited file with a header row. The window is not
// applied; the file is taken as is.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file:" + filepath.Base(s.Path) }

func (s *FileSource) Fetch(_ context.Context, _ Window) (dataset.Table, error) {
	return dataset.ReadTable(s.Path)
}
