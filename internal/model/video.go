package model

// VideoAsset is a downloaded file as seen through the storage backend
type VideoAsset struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Size     string `json:"size"`
	URL      string `json:"url"`
}

// DownloadRequest is the form posted to /download
type DownloadRequest struct {
	URL string `form:"url" validate:"required"`
}

// DownloadResponse is returned as soon as a job has been submitted
type DownloadResponse struct {
	VideoID string `json:"video_id"`
}

// VideoListResponse is returned by /api/videos
type VideoListResponse struct {
	Status string       `json:"status"`
	Videos []VideoAsset `json:"videos"`
	Error  string       `json:"error,omitempty"`
}
