// Package ingest exposes the event writer over gRPC so remote producers
// can stream telemetry to a central collector. Each stream message is one
// encoded event frame; the response is the count of accepted events.
package ingest

import (
	"io"
	"net"

	"mimir/domain/event"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protowire"
)

const publishMethod = "/mimir.Ingest/Publish"

// Appender accepts encoded event frames. *eventfile.Writer satisfies it.
type Appender interface {
	AddRaw(frame []byte) error
}

// Server adapts an Appender to the Ingest service.
type Server struct {
	grpc *grpc.Server
	dst  Appender
}

func NewServer(dst Appender) *Server {
	s := &Server{
		grpc: grpc.NewServer(grpc.ForceServerCodec(rawCodec{})),
		dst:  dst,
	}
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

func (s *Server) Serve(lis net.Listener) error { return s.grpc.Serve(lis) }
func (s *Server) Stop()                        { s.grpc.GracefulStop() }

// publisher is the handler contract the service descriptor dispatches to.
type publisher interface {
	publish(stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "mimir.Ingest",
	HandlerType: (*publisher)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Publish",
		Handler:       publishHandler,
		ClientStreams: true,
	}},
	Metadata: "mimir/ingest",
}

func publishHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(publisher).publish(stream)
}

func (s *Server) publish(stream grpc.ServerStream) error {
	var accepted uint64
	for {
		var f frame
		if err := stream.RecvMsg(&f); err != nil {
			if err == io.EOF {
				ack := frame(protowire.AppendVarint(
					protowire.AppendTag(nil, 1, protowire.VarintType), accepted))
				return stream.SendMsg(&ack)
			}
			return err
		}

		if _, err := event.Decode(f); err != nil {
			return status.Errorf(codes.InvalidArgument, "bad frame: %v", err)
		}
		if err := s.dst.AddRaw(f); err != nil {
			return status.Errorf(codes.FailedPrecondition, "append: %v", err)
		}
		accepted++
	}
}
