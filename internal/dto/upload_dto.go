package dto

type UploadPdfResponse struct {
	Accepted  bool   `json:"accepted"`
	JobId     string `json:"job_id"`
	SessionId string `json:"session_id"`
}

// BuildOntologyJob is the payload queued for the background builder.
type BuildOntologyJob struct {
	JobId     string `json:"job_id"`
	SessionId string `json:"session_id"`
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
}
