package domain

type JobStatus string

const (
	JobStarted           JobStatus = "started"
	JobAuthenticating    JobStatus = "authenticating"
	JobRequestingCatalog JobStatus = "requesting_catalog"
	JobWaitingForFile    JobStatus = "waiting_for_file"
	JobDownloading       JobStatus = "downloading"
	JobSyncing           JobStatus = "syncing"
	JobCompleted         JobStatus = "completed"
	JobFailed            JobStatus = "failed"
	JobExpired           JobStatus = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobExpired
}

// ActiveJobStatuses lists the states a running job may be in.
var ActiveJobStatuses = []JobStatus{
	JobStarted, JobAuthenticating, JobRequestingCatalog, JobWaitingForFile, JobDownloading, JobSyncing,
}

const SyncTypeCatalog = "catalog"

type SyncJob struct {
	ID              string    `db:"id" json:"id"`
	SyncType        string    `db:"sync_type" json:"sync_type"`
	Status          JobStatus `db:"status" json:"status"`
	S3Link          string    `db:"s3_link" json:"s3_link,omitempty"`
	ExportAttempts  int       `db:"export_attempts" json:"export_attempts"`
	S3PollCount     int       `db:"s3_poll_count" json:"s3_poll_count"`
	S3ContentLength int64     `db:"s3_content_length" json:"s3_content_length"`
	DownloadBytes   int64     `db:"download_bytes" json:"download_bytes"`
	ProductsCount   int       `db:"products_count" json:"products_count"`
	ErrorMessage    string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt       string    `db:"started_at" json:"started_at"`
	CompletedAt     string    `db:"completed_at" json:"completed_at,omitempty"`
	FinishedInMs    int64     `db:"finished_in_ms" json:"finished_in_ms,omitempty"`
}
