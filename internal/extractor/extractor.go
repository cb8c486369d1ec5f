package extractor

import "context"

// Status of a progress report
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
)

// Progress is one raw progress report. The string fields are the display
// strings the extractor prints and may contain terminal escapes.
type Progress struct {
	Status   Status
	Percent  string
	Speed    string
	ETA      string
	Filename string

	// Err is set when the report could not be rendered.
	Err error
}

// Hook receives progress reports while a download runs
type Hook func(Progress)

// Info is the metadata returned by a probe
type Info struct {
	Title    string
	Duration float64 // seconds
}

// Result describes the finished download
type Result struct {
	// Filename is the final file on disk, after merging.
	Filename string
}

// Extractor resolves a URL to media.
type Extractor interface {
	// Probe reads metadata without downloading.
	Probe(ctx context.Context, url string) (*Info, error)
	// Download fetches the media into dir, reporting progress to hook.
	Download(ctx context.Context, url, dir string, hook Hook) (*Result, error)
}
