// Package grpcprobe implements the grpc-keyword probe driver (spec.md §3's
// grpc fields): call a unary method described by a serialized
// FileDescriptorSet and match the response against an optional keyword.
// Grounded on the teacher's own proto.Marshal/Unmarshal usage in
// internal/repository/kafka/producer.go, generalized from a fixed message
// type to a descriptor-driven dynamic message so this module never needs
// compiled stubs for a probed service's own .proto files.
package grpcprobe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/obs"
	"github.com/NordCoder/vigilant/internal/probe"
)

type Driver struct{}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	if m.GRPCDescriptorSetPath == "" || m.GRPCServiceName == "" || m.GRPCMethod == "" {
		return probe.Result{}, monitorerr.NewConfigError("grpc-keyword probe requires a descriptor set, service, and method")
	}

	methodDesc, err := resolveMethod(m.GRPCDescriptorSetPath, m.GRPCServiceName, m.GRPCMethod)
	if err != nil {
		return probe.Result{}, err
	}

	req := dynamicpb.NewMessage(methodDesc.Input())
	if m.GRPCBody != "" {
		if err := protojson.Unmarshal([]byte(m.GRPCBody), req); err != nil {
			return probe.Result{}, monitorerr.NewConfigError("grpc request body invalid json: %v", err)
		}
	}
	resp := dynamicpb.NewMessage(methodDesc.Output())

	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(m.Timeout)*time.Second)
	defer cancel()

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, obs.GRPCClientOpts()...)
	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", m.Hostname, m.Port), dialOpts...)
	if err != nil {
		return probe.Result{}, monitorerr.NewNetworkError("grpc dial failed", err)
	}
	defer conn.Close()

	fullMethod := fmt.Sprintf("/%s/%s", m.GRPCServiceName, m.GRPCMethod)
	start := time.Now()
	if err := conn.Invoke(dialCtx, fullMethod, req, resp); err != nil {
		if monitorerr.Cancelled(dialCtx.Err()) {
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), err)
		}
		return probe.Result{}, monitorerr.NewNetworkError("grpc call failed", err)
	}
	ping := time.Since(start).Milliseconds()

	if m.Keyword != "" {
		out, err := protojson.Marshal(resp)
		if err != nil {
			return probe.Result{}, monitorerr.NewConfigError("marshal grpc response: %v", err)
		}
		matched := strings.Contains(string(out), m.Keyword)
		if m.InvertKeyword {
			matched = !matched
		}
		if !matched {
			return probe.Result{}, monitorerr.NewProbePredicateError("keyword %q not matched in grpc response", m.Keyword)
		}
	}

	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("%s/%s responded", m.GRPCServiceName, m.GRPCMethod), Ping: probe.PingMillis(ping)}, nil
}

func resolveMethod(descriptorPath, serviceName, methodName string) (protoreflect.MethodDescriptor, error) {
	raw, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, monitorerr.NewConfigError("read grpc descriptor set: %v", err)
	}
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fds); err != nil {
		return nil, monitorerr.NewConfigError("parse grpc descriptor set: %v", err)
	}
	files, err := protodesc.NewFiles(&fds)
	if err != nil {
		return nil, monitorerr.NewConfigError("build grpc file registry: %v", err)
	}

	svcDesc, err := files.FindDescriptorByName(protoreflect.FullName(serviceName))
	if err != nil {
		return nil, monitorerr.NewConfigError("grpc service %s not in descriptor set", serviceName)
	}
	service, ok := svcDesc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, monitorerr.NewConfigError("%s is not a grpc service", serviceName)
	}
	method := service.Methods().ByName(protoreflect.Name(methodName))
	if method == nil {
		return nil, monitorerr.NewConfigError("grpc method %s not found on %s", methodName, serviceName)
	}
	return method, nil
}
