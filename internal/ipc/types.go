package ipc

import (
	"time"

	"archivist/internal/asset"
	"archivist/internal/command"
)

// Asset is the wire form of a processable asset.
type Asset struct {
	ID                  string                 `json:"id"`
	Kind                string                 `json:"kind"`
	Container           string                 `json:"container"`
	OriginalName        string                 `json:"original_name,omitempty"`
	Identifier          string                 `json:"identifier,omitempty"`
	SourcePath          string                 `json:"source_path,omitempty"`
	Status              string                 `json:"status"`
	LastError           string                 `json:"last_error,omitempty"`
	Artifacts           asset.DerivedArtifacts `json:"artifacts"`
	Metadata            map[string]any         `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	ProcessingStartedAt *time.Time             `json:"processing_started_at,omitempty"`
}

// JobResult reports a finished job when the caller waited for it.
type JobResult struct {
	AssetID    string               `json:"asset_id"`
	Outcome    string               `json:"outcome"`
	Reason     string               `json:"reason,omitempty"`
	Error      string               `json:"error,omitempty"`
	DurationMS int64                `json:"duration_ms"`
	Variant    *asset.CustomVariant `json:"variant,omitempty"`
}

// Skip names an asset a bulk operation did not act on.
type Skip struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}

// StageHealth describes readiness of a pipeline.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/dispatcher status information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Dispatcher   bool               `json:"dispatcher"`
	Sync         bool               `json:"sync"`
	Workers      int                `json:"workers"`
	QueueDepth   int                `json:"queue_depth"`
	AssetStats   map[string]int     `json:"asset_stats"`
	LastError    string             `json:"last_error,omitempty"`
	LastResult   *JobResult         `json:"last_result,omitempty"`
	EncoderTier  string             `json:"encoder_tier"`
	VideoEncoder string             `json:"video_encoder"`
	DatabasePath string             `json:"database_path"`
	LockPath     string             `json:"lock_path"`
	MetricsBind  string             `json:"metrics_bind,omitempty"`
	StageHealth  []StageHealth      `json:"stage_health"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// AssetListRequest filters asset listing.
type AssetListRequest struct {
	Container    string   `json:"container"`
	Statuses     []string `json:"statuses"`
	Kind         string   `json:"kind"`
	MetadataOnly bool     `json:"metadata_only"`
	Limit        int      `json:"limit"`
}

// AssetListResponse contains matching assets.
type AssetListResponse struct {
	Assets []Asset `json:"assets"`
}

// AssetDescribeRequest fetches one asset.
type AssetDescribeRequest struct {
	ID string `json:"id"`
}

// AssetDescribeResponse carries one asset.
type AssetDescribeResponse struct {
	Asset Asset `json:"asset"`
}

// RegisterRequest creates a pending asset.
type RegisterRequest struct {
	Kind         string         `json:"kind"`
	Container    string         `json:"container"`
	OriginalName string         `json:"original_name"`
	Identifier   string         `json:"identifier"`
	SourcePath   string         `json:"source_path"`
	UploadPath   string         `json:"upload_path"`
	Metadata     map[string]any `json:"metadata"`
	Dispatch     bool           `json:"dispatch"`
	Wait         bool           `json:"wait"`
}

// RegisterResponse returns the created asset and, when waited, the job.
type RegisterResponse struct {
	Asset Asset      `json:"asset"`
	Job   *JobResult `json:"job,omitempty"`
}

// JobRequest targets one asset (dispatch, retry).
type JobRequest struct {
	ID   string `json:"id"`
	Wait bool   `json:"wait"`
}

// JobResponse reports a submitted job.
type JobResponse struct {
	Submitted bool       `json:"submitted"`
	Job       *JobResult `json:"job,omitempty"`
}

// RetryAllRequest scopes a bulk retry.
type RetryAllRequest struct {
	Container string   `json:"container"`
	Statuses  []string `json:"statuses"`
}

// BulkResponse summarizes a bulk dispatch.
type BulkResponse struct {
	Submitted []string `json:"submitted"`
	Skipped   []Skip   `json:"skipped"`
}

// CancelStuckRequest sets the stuck threshold.
type CancelStuckRequest struct {
	OlderThanMinutes int `json:"older_than_minutes"`
}

// CancelAllRequest cancels every processing asset.
type CancelAllRequest struct{}

// CancelResponse lists cancelled assets.
type CancelResponse struct {
	Cancelled []string `json:"cancelled"`
}

// CustomEncodeRequest queues an on-demand variant.
type CustomEncodeRequest struct {
	ID       string            `json:"id"`
	PresetID string            `json:"preset_id"`
	Settings *command.Settings `json:"settings,omitempty"`
	Wait     bool              `json:"wait"`
}

// DispatchPendingRequest scopes pending dispatch.
type DispatchPendingRequest struct {
	Container string `json:"container"`
}

// ThumbnailsRequest scopes thumbnail regeneration.
type ThumbnailsRequest struct {
	Container string `json:"container"`
	Force     bool   `json:"force"`
}

// ThumbnailsResponse reports regeneration results.
type ThumbnailsResponse struct {
	Regenerated []string `json:"regenerated"`
	Skipped     []Skip   `json:"skipped"`
	Failed      []Skip   `json:"failed"`
}

// DeleteRequest removes an asset.
type DeleteRequest struct {
	ID string `json:"id"`
}

// DeleteResponse confirms removal.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ReconcileRequest runs the source-file reconciler.
type ReconcileRequest struct {
	Container string `json:"container"`
	DryRun    bool   `json:"dry_run"`
}

// Candidate is one reconciler match.
type Candidate struct {
	AssetID      string `json:"asset_id"`
	OriginalName string `json:"original_name,omitempty"`
	Identifier   string `json:"identifier,omitempty"`
	Path         string `json:"path"`
	RelPath      string `json:"rel_path"`
	Tier         string `json:"tier"`
	Applied      bool   `json:"applied"`
}

// ReconcileResponse carries the reconcile report.
type ReconcileResponse struct {
	Root       string      `json:"root"`
	Scanned    int         `json:"scanned"`
	DryRun     bool        `json:"dry_run"`
	Candidates []Candidate `json:"candidates"`
	Unmatched  []string    `json:"unmatched"`
}

// ErrorListRequest filters ledger records.
type ErrorListRequest struct {
	Stage    string `json:"stage"`
	AssetID  string `json:"asset_id"`
	Resolved *bool  `json:"resolved,omitempty"`
	Limit    int    `json:"limit"`
}

// ErrorRecord is the wire form of a ledger record.
type ErrorRecord struct {
	ID        string         `json:"id"`
	AssetID   string         `json:"asset_id,omitempty"`
	AssetKind string         `json:"asset_kind"`
	Stage     string         `json:"stage"`
	FileName  string         `json:"file_name,omitempty"`
	Message   string         `json:"message"`
	Extra     map[string]any `json:"extra,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Resolved  bool           `json:"resolved"`
}

// ErrorListResponse contains ledger records, newest first.
type ErrorListResponse struct {
	Records []ErrorRecord `json:"records"`
}

// ErrorResolveRequest flips a record's resolved flag.
type ErrorResolveRequest struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// ErrorResolveResponse confirms the update.
type ErrorResolveResponse struct {
	Updated bool `json:"updated"`
}

// NotifyTestRequest sends a test notification.
type NotifyTestRequest struct{}

// NotifyTestResponse reports the delivery.
type NotifyTestResponse struct {
	Sent bool `json:"sent"`
}
