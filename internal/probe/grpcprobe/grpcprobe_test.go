package grpcprobe

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

// writeEchoDescriptor builds a descriptor set for a single EchoService with
// one Echo method over google.protobuf.StringValue, and writes it to a
// temp file for resolveMethod to load, since the driver reads descriptors
// from disk rather than from compiled stubs.
func writeEchoDescriptor(t *testing.T) (string, string, string) {
	t.Helper()
	svcName := "echo.EchoService"
	method := "Echo"

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("echo.proto"),
		Package:    proto.String("echo"),
		Dependency: []string{"google/protobuf/wrappers.proto"},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("EchoService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String(method),
						InputType:  proto.String(".google.protobuf.StringValue"),
						OutputType: proto.String(".google.protobuf.StringValue"),
					},
				},
			},
		},
		Syntax: proto.String("proto3"),
	}

	wrappersFDP := protodesc.ToFileDescriptorProto((&wrapperspb.StringValue{}).ProtoReflect().Descriptor().ParentFile())

	fds := &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{wrappersFDP, fdp}}
	raw, err := proto.Marshal(fds)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "echo.fds")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path, svcName, method
}

func TestCheckMissingConfigIsConfigError(t *testing.T) {
	_, err := Driver{}.Check(context.Background(), &monitor.Monitor{}, probe.Env{})
	var cfgErr *monitorerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckUnaryKeywordMatch(t *testing.T) {
	path, svcName, method := writeEchoDescriptor(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(srv any, stream grpc.ServerStream) error {
		var in wrapperspb.StringValue
		if err := stream.RecvMsg(&in); err != nil {
			return err
		}
		return stream.SendMsg(wrapperspb.String("hello " + in.Value))
	}))
	go srv.Serve(ln)
	defer srv.Stop()

	addr := ln.Addr().(*net.TCPAddr)
	m := &monitor.Monitor{
		Hostname:              "127.0.0.1",
		Port:                  addr.Port,
		Timeout:               2,
		GRPCDescriptorSetPath: path,
		GRPCServiceName:       svcName,
		GRPCMethod:            method,
		GRPCBody:              `"world"`,
		Keyword:               "hello world",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := Driver{}.Check(ctx, m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}
