// Package rpc carries the host capability over JSON-RPC on a unix socket.
// The application-side plugin runs Server around its native scripting
// bridge; dialbridged consumes it through Client, which satisfies
// host.Capability.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	stdrpc "net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"dialbridge/internal/host"
	"dialbridge/internal/logging"
)

const serviceName = "DialHost"

// Server exposes a host.Capability at a unix socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *stdrpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer listens at path and serves cap.
func NewServer(ctx context.Context, path string, cap host.Capability, logger *slog.Logger) (*Server, error) {
	if cap == nil {
		return nil, errors.New("host rpc server requires a capability")
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

	rpcServer := stdrpc.NewServer()
	svc := &service{cap: cap, ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "host-rpc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("host rpc listening", logging.String("socket", s.path))
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
				s.logger.Warn("accept failed", logging.Error(err))
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
	_ = os.RemoveAll(s.path)
}

type service struct {
	cap host.Capability
	ctx context.Context
}

func (s *service) Containers(_ EmptyRequest, resp *ContainersResponse) error {
	containers, err := s.cap.Containers(s.ctx)
	if err != nil {
		return err
	}
	resp.Containers = containers
	return nil
}

func (s *service) SelectedContainer(_ EmptyRequest, resp *SelectedContainerResponse) error {
	selected, err := s.cap.SelectedContainer(s.ctx)
	if err != nil {
		return err
	}
	resp.Selected = selected
	return nil
}

func (s *service) SelectContainer(req SelectContainerRequest, _ *EmptyResponse) error {
	return s.cap.SelectContainer(s.ctx, req.ID)
}

func (s *service) Entities(req EntitiesRequest, resp *EntitiesResponse) error {
	entities, err := s.cap.Entities(s.ctx, req.ContainerID)
	if err != nil {
		return err
	}
	resp.Entities = entities
	return nil
}

func (s *service) SelectEntity(req SelectEntityRequest, _ *EmptyResponse) error {
	return s.cap.SelectEntity(s.ctx, req.ContainerID, req.Index)
}

func (s *service) Properties(req PropertiesRequest, resp *PropertiesResponse) error {
	properties, err := s.cap.Properties(s.ctx, req.EntityID)
	if err != nil {
		return err
	}
	resp.Properties = properties
	return nil
}

func (s *service) Value(req ValueRequest, resp *ValueResponse) error {
	value, err := s.cap.Value(s.ctx, req.Target)
	if err != nil {
		return err
	}
	resp.Value = value
	return nil
}

func (s *service) SetValue(req SetValueRequest, _ *EmptyResponse) error {
	return s.cap.SetValue(s.ctx, req.Target, req.Value)
}

func (s *service) ValueAtTime(req ValueAtTimeRequest, resp *ValueResponse) error {
	value, err := s.cap.ValueAtTime(s.ctx, req.Target, req.At)
	if err != nil {
		return err
	}
	resp.Value = value
	return nil
}

func (s *service) SetValueAtTime(req SetValueAtTimeRequest, _ *EmptyResponse) error {
	return s.cap.SetValueAtTime(s.ctx, req.Target, req.At, req.Value)
}

func (s *service) Keyframes(req KeyframesRequest, resp *KeyframesResponse) error {
	keyframes, err := s.cap.Keyframes(s.ctx, req.Target)
	if err != nil {
		return err
	}
	resp.Keyframes = keyframes
	return nil
}

func (s *service) InsertKeyframe(req InsertKeyframeRequest, _ *EmptyResponse) error {
	return s.cap.InsertKeyframe(s.ctx, req.Target, req.Keyframe)
}

func (s *service) RemoveKeyframe(req RemoveKeyframeRequest, _ *EmptyResponse) error {
	return s.cap.RemoveKeyframe(s.ctx, req.Target, req.At)
}

func (s *service) Timeline(_ EmptyRequest, resp *TimelineResponse) error {
	timeline, err := s.cap.Timeline(s.ctx)
	if err != nil {
		return err
	}
	resp.Timeline = timeline
	return nil
}

func (s *service) SetPlayhead(req SetPlayheadRequest, _ *EmptyResponse) error {
	return s.cap.SetPlayhead(s.ctx, req.At)
}
