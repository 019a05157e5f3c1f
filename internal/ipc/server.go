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
	"sync"
	"time"

	"dialbridge/internal/daemon"
	"dialbridge/internal/logging"
	"dialbridge/internal/mappings"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("DialBridge", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun dialbridge stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("engine start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "engine started"
	s.log().Info("engine started via IPC",
		logging.String(logging.FieldEventType, "engine_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("engine stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("engine stopped via IPC",
		logging.String(logging.FieldEventType, "engine_stop"))
	return nil
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(req.IncludeRaw)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.EngineRunning = status.Engine.Running
	resp.RunID = status.Engine.RunID
	resp.Ticks = status.Engine.Ticks
	if !status.Engine.LastTick.IsZero() {
		resp.LastTick = status.Engine.LastTick.Format(time.RFC3339)
	}
	resp.LastError = status.Engine.LastError
	resp.Navigator = NavigatorStatus{
		State:       string(status.Engine.Navigator.State),
		Container:   status.Engine.Navigator.Container,
		Entity:      status.Engine.Navigator.Entity,
		Property:    status.Engine.Navigator.Property,
		EntityCount: status.Engine.Navigator.EntityCount,
	}
	resp.LockPath = status.LockFilePath
	resp.MappingDBPath = status.MappingDBPath
	resp.DeviceMonitor = status.DeviceMonitor
	resp.DeviceAttached = status.DeviceAttached
	resp.Raw = status.Engine.Raw
	return nil
}

func (s *service) Reset(_ ResetRequest, resp *ResetResponse) error {
	s.log().Debug("position reset requested")
	if err := s.daemon.ResetPosition(); err != nil {
		return err
	}
	resp.Reset = true
	s.log().Info("position record reset",
		logging.String(logging.FieldEventType, "position_reset"))
	return nil
}

func (s *service) MappingList(_ MappingListRequest, resp *MappingListResponse) error {
	identities, err := s.daemon.MappingIdentities(s.ctx)
	if err != nil {
		return err
	}
	resp.Identities = identities
	return nil
}

func (s *service) MappingShow(req MappingShowRequest, resp *MappingShowResponse) error {
	if req.Identity == "" {
		return errors.New("mapping show requires an identity")
	}
	mapping, err := s.daemon.MappingGet(s.ctx, req.Identity)
	if err != nil {
		return err
	}
	resp.Identity = mapping.Identity
	resp.Assignments = make([]MappingAssignment, 0, len(mapping.Buttons))
	buttons := make([]int, 0, len(mapping.Buttons))
	for button := range mapping.Buttons {
		buttons = append(buttons, button)
	}
	sort.Ints(buttons)
	for _, button := range buttons {
		a := mapping.Buttons[button]
		resp.Assignments = append(resp.Assignments, MappingAssignment{
			Button:       button,
			PropertyID:   a.PropertyID,
			PropertyName: a.PropertyName,
		})
	}
	return nil
}

func (s *service) MappingAssign(req MappingAssignRequest, resp *MappingAssignResponse) error {
	if req.Identity == "" || req.PropertyID == "" {
		return errors.New("mapping assign requires an identity and property id")
	}
	err := s.daemon.MappingAssign(s.ctx, req.Identity, req.Button, mappings.Assignment{
		PropertyID:   req.PropertyID,
		PropertyName: req.PropertyName,
	})
	if err != nil {
		return err
	}
	resp.Assigned = true
	s.log().Info("mapping assigned",
		logging.String(logging.FieldIdentity, req.Identity),
		logging.Int(logging.FieldButton, req.Button),
		logging.String(logging.FieldTarget, req.PropertyID))
	return nil
}

func (s *service) MappingUnassign(req MappingUnassignRequest, resp *MappingUnassignResponse) error {
	if req.Identity == "" {
		return errors.New("mapping unassign requires an identity")
	}
	if err := s.daemon.MappingUnassign(s.ctx, req.Identity, req.Button); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

func (s *service) MappingExport(req MappingExportRequest, resp *MappingExportResponse) error {
	if req.Identity == "" || req.Path == "" {
		return errors.New("mapping export requires an identity and path")
	}
	if err := s.daemon.MappingExport(s.ctx, req.Identity, req.Path); err != nil {
		return err
	}
	resp.Path = req.Path
	return nil
}

func (s *service) MappingImport(req MappingImportRequest, resp *MappingImportResponse) error {
	if req.Path == "" {
		return errors.New("mapping import requires a path")
	}
	mapping, err := s.daemon.MappingImport(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Identity = mapping.Identity
	resp.Assignments = len(mapping.Buttons)
	return nil
}
