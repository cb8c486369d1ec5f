package model

// JobStatus discriminates the variants of JobState
type JobStatus string

const (
	JobStatusStarting    JobStatus = "starting"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusFinished    JobStatus = "finished"
	JobStatusError       JobStatus = "error"
	JobStatusNotFound    JobStatus = "not_found"
)

// ErrorDetails is attached to every failed job for the UI.
const ErrorDetails = "Make sure the link is correct and the video is publicly accessible"

// JobState is the progress of one download job. Only the fields belonging
// to Status are populated; the JSON form is flat with a "status" field.
type JobState struct {
	Status JobStatus `json:"status"`

	// starting (after the metadata probe)
	Title    string  `json:"title,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	// downloading
	Percentage string `json:"percentage,omitempty"`
	Speed      string `json:"speed,omitempty"`
	ETA        string `json:"eta,omitempty"`

	// finished
	Filename string `json:"filename,omitempty"`

	// error
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func Starting() JobState {
	return JobState{Status: JobStatusStarting}
}

func Downloading(percentage, speed, eta string) JobState {
	return JobState{
		Status:     JobStatusDownloading,
		Percentage: percentage,
		Speed:      speed,
		ETA:        eta,
	}
}

func Finished(filename string) JobState {
	return JobState{Status: JobStatusFinished, Filename: filename}
}

func Failed(message string) JobState {
	return JobState{Status: JobStatusError, Error: message, Details: ErrorDetails}
}

// NotFound is returned for unknown job ids. It is never stored.
func NotFound() JobState {
	return JobState{Status: JobStatusNotFound}
}

// IsTerminal reports whether no further transitions are expected.
func (s JobState) IsTerminal() bool {
	return s.Status == JobStatusFinished || s.Status == JobStatusError
}

// DownloadTaskPayload is the asynq payload of a queued download.
type DownloadTaskPayload struct {
	URL     string `json:"url"`
	VideoID string `json:"videoId"`
}
