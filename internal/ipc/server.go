package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"archivist/internal/asset"
	"archivist/internal/daemon"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/notifications"
	"archivist/internal/services"
	"archivist/internal/workflow"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "Archivist"

// Server exposes daemon operations via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if socketLive(path) {
		return nil, fmt.Errorf("%w: %s", ErrSocketInUse, path)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// ErrSocketInUse reports a control socket another process is serving.
var ErrSocketInUse = errors.New("control socket already in use")

// socketLive reports whether something accepts connections on path. A stale
// socket file left by a crashed daemon refuses the dial.
func socketLive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Serve starts accepting RPC connections until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(c net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// Close stops the server, drops open connections, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	wf := status.Workflow
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Dispatcher = wf.Running
	resp.Sync = wf.Sync
	resp.Workers = wf.Workers
	resp.QueueDepth = wf.QueueDepth
	resp.LastError = wf.LastError
	resp.EncoderTier = string(status.Encoder.Selected.Kind)
	resp.VideoEncoder = status.Encoder.Selected.VideoEncoder
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.MetricsBind = status.MetricsBind
	resp.AssetStats = make(map[string]int, len(wf.AssetStats))
	for k, v := range wf.AssetStats {
		resp.AssetStats[string(k)] = v
	}
	if wf.LastResult != nil {
		resp.LastResult = fromResult(*wf.LastResult)
	}
	names := make([]string, 0, len(wf.StageHealth))
	for name := range wf.StageHealth {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		health := wf.StageHealth[name]
		resp.StageHealth = append(resp.StageHealth, StageHealth{Name: name, Ready: health.Ready, Detail: health.Detail})
	}
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) AssetList(req AssetListRequest, resp *AssetListResponse) error {
	statuses, err := parseStatuses(req.Statuses)
	if err != nil {
		return err
	}
	kind := asset.Kind(strings.TrimSpace(req.Kind))
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", services.ErrValidation, req.Kind)
	}
	assets, err := s.daemon.Assets().List(s.ctx, asset.Filter{
		Container:    req.Container,
		Statuses:     statuses,
		Kind:         kind,
		MetadataOnly: req.MetadataOnly,
		Limit:        req.Limit,
	})
	if err != nil {
		return err
	}
	resp.Assets = make([]Asset, 0, len(assets))
	for _, a := range assets {
		resp.Assets = append(resp.Assets, fromAsset(a))
	}
	return nil
}

func (s *service) AssetDescribe(req AssetDescribeRequest, resp *AssetDescribeResponse) error {
	a, err := s.daemon.Assets().MustGet(s.ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return err
	}
	resp.Asset = fromAsset(a)
	return nil
}

func (s *service) Register(req RegisterRequest, resp *RegisterResponse) error {
	a, handle, err := s.daemon.Workflow().Register(s.ctx, workflow.RegisterRequest{
		Kind:         asset.Kind(strings.TrimSpace(req.Kind)),
		Container:    req.Container,
		OriginalName: req.OriginalName,
		Identifier:   req.Identifier,
		SourcePath:   req.SourcePath,
		UploadPath:   req.UploadPath,
		Metadata:     req.Metadata,
		Dispatch:     req.Dispatch,
	})
	if a != nil {
		resp.Asset = fromAsset(a)
	}
	if err != nil {
		// a metadata-only registration with dispatch stays pending
		if a != nil && errors.Is(err, workflow.ErrSourceMissing) {
			return nil
		}
		return err
	}
	s.logger.Info("asset registered",
		logging.String(logging.FieldEventType, "asset_registered"),
		logging.AssetID(a.ID),
		logging.String("kind", string(a.Kind)),
	)
	resp.Job, err = s.wait(handle, req.Wait)
	return err
}

func (s *service) Dispatch(req JobRequest, resp *JobResponse) error {
	handle, err := s.daemon.Workflow().Dispatch(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Submitted = true
	resp.Job, err = s.wait(handle, req.Wait)
	return err
}

func (s *service) Retry(req JobRequest, resp *JobResponse) error {
	handle, err := s.daemon.Workflow().Retry(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Submitted = true
	resp.Job, err = s.wait(handle, req.Wait)
	return err
}

func (s *service) RetryAll(req RetryAllRequest, resp *BulkResponse) error {
	statuses, err := parseStatuses(req.Statuses)
	if err != nil {
		return err
	}
	report, err := s.daemon.Workflow().RetryAll(s.ctx, workflow.RetryFilter{Container: req.Container, Statuses: statuses})
	fillBulk(resp, report)
	return err
}

func (s *service) CancelStuck(req CancelStuckRequest, resp *CancelResponse) error {
	ids, err := s.daemon.Workflow().CancelStuck(s.ctx, time.Duration(req.OlderThanMinutes)*time.Minute)
	resp.Cancelled = ids
	return err
}

func (s *service) CancelAll(_ CancelAllRequest, resp *CancelResponse) error {
	ids, err := s.daemon.Workflow().CancelAllProcessing(s.ctx)
	resp.Cancelled = ids
	return err
}

func (s *service) CustomEncode(req CustomEncodeRequest, resp *JobResponse) error {
	handle, err := s.daemon.Workflow().CustomEncode(s.ctx, req.ID, req.PresetID, req.Settings)
	if err != nil {
		return err
	}
	resp.Submitted = true
	resp.Job, err = s.wait(handle, req.Wait)
	return err
}

func (s *service) DispatchPending(req DispatchPendingRequest, resp *BulkResponse) error {
	report, err := s.daemon.Workflow().DispatchPending(s.ctx, req.Container)
	fillBulk(resp, report)
	return err
}

func (s *service) RegenerateThumbnails(req ThumbnailsRequest, resp *ThumbnailsResponse) error {
	report, err := s.daemon.Workflow().RegenerateThumbnails(s.ctx, req.Container, req.Force)
	resp.Regenerated = report.Regenerated
	resp.Skipped = toSkips(report.Skipped)
	resp.Failed = toSkips(report.Failed)
	return err
}

func (s *service) DeleteAsset(req DeleteRequest, resp *DeleteResponse) error {
	if err := s.daemon.Workflow().DeleteAsset(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) Reconcile(req ReconcileRequest, resp *ReconcileResponse) error {
	report, err := s.daemon.Reconcile(s.ctx, req.Container, req.DryRun)
	resp.Root = report.Root
	resp.Scanned = report.Scanned
	resp.DryRun = report.DryRun
	resp.Unmatched = report.Unmatched
	for _, c := range report.Candidates {
		resp.Candidates = append(resp.Candidates, Candidate{
			AssetID:      c.AssetID,
			OriginalName: c.OriginalName,
			Identifier:   c.Identifier,
			Path:         c.Path,
			RelPath:      c.RelPath,
			Tier:         string(c.Tier),
			Applied:      c.Applied,
		})
	}
	return err
}

func (s *service) ErrorList(req ErrorListRequest, resp *ErrorListResponse) error {
	l, err := s.daemon.Ledger()
	if err != nil {
		return err
	}
	filter := ledger.Filter{AssetID: req.AssetID, Resolved: req.Resolved, Limit: req.Limit}
	if req.Stage != "" {
		if filter.Stage, err = ledger.ParseStage(req.Stage); err != nil {
			return err
		}
	}
	records, err := l.List(s.ctx, filter)
	if err != nil {
		return err
	}
	resp.Records = make([]ErrorRecord, 0, len(records))
	for _, r := range records {
		resp.Records = append(resp.Records, ErrorRecord{
			ID:        r.ID,
			AssetID:   r.AssetID,
			AssetKind: r.AssetKind,
			Stage:     string(r.Stage),
			FileName:  r.FileName,
			Message:   r.Message,
			Extra:     r.Extra,
			CreatedAt: r.CreatedAt,
			Resolved:  r.Resolved,
		})
	}
	return nil
}

func (s *service) ErrorResolve(req ErrorResolveRequest, resp *ErrorResolveResponse) error {
	l, err := s.daemon.Ledger()
	if err != nil {
		return err
	}
	if err := l.SetResolved(s.ctx, req.ID, req.Resolved); err != nil {
		return err
	}
	resp.Updated = true
	return nil
}

func (s *service) NotifyTest(_ NotifyTestRequest, resp *NotifyTestResponse) error {
	if err := s.daemon.Notifier().Publish(s.ctx, notifications.EventTest, nil); err != nil {
		return err
	}
	resp.Sent = true
	return nil
}

func (s *service) wait(handle *workflow.Handle, wait bool) (*JobResult, error) {
	if handle == nil || !wait {
		return nil, nil
	}
	result, err := handle.Wait(s.ctx)
	if err != nil {
		return nil, err
	}
	return fromResult(result), nil
}

func parseStatuses(values []string) ([]asset.Status, error) {
	statuses := make([]asset.Status, 0, len(values))
	for _, v := range values {
		status := asset.Status(strings.ToLower(strings.TrimSpace(v)))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", services.ErrValidation, v)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func fillBulk(resp *BulkResponse, report workflow.BulkReport) {
	resp.Submitted = report.Submitted
	resp.Skipped = toSkips(report.Skipped)
}

func toSkips(skips []workflow.Skip) []Skip {
	out := make([]Skip, 0, len(skips))
	for _, sk := range skips {
		out = append(out, Skip{AssetID: sk.AssetID, Reason: sk.Reason})
	}
	return out
}

func fromResult(r workflow.Result) *JobResult {
	out := &JobResult{
		AssetID:    r.AssetID,
		Outcome:    string(r.Outcome),
		Reason:     r.Reason,
		DurationMS: r.Duration.Milliseconds(),
		Variant:    r.Variant,
	}
	if r.Err != nil {
		out.Error = services.Diagnostic(r.Err)
	}
	return out
}

func fromAsset(a *asset.Asset) Asset {
	return Asset{
		ID:                  a.ID,
		Kind:                string(a.Kind),
		Container:           a.Container,
		OriginalName:        a.OriginalName,
		Identifier:          a.Identifier,
		SourcePath:          a.SourcePath,
		Status:              string(a.Status),
		LastError:           a.LastError,
		Artifacts:           a.Artifacts,
		Metadata:            a.Metadata,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
		ProcessingStartedAt: a.ProcessingStartedAt,
	}
}
