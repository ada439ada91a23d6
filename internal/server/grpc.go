package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
)

// ClassificationServiceName is the fully qualified gRPC service name.
const ClassificationServiceName = "docclassify.v1.ClassificationService"

const (
	classifyMethod = "/" + ClassificationServiceName + "/Classify"
	getTaskMethod  = "/" + ClassificationServiceName + "/GetTask"
)

// ClassificationServer is the server API for the classification service.
// Requests and responses are google.protobuf.Struct values carrying the same
// JSON documents the HTTP API uses.
type ClassificationServer interface {
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterClassificationServer(s grpc.ServiceRegistrar, srv ClassificationServer) {
	s.RegisterService(&ClassificationServiceDesc, srv)
}

func classifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassificationServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: classifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClassificationServer).Classify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassificationServer).GetTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getTaskMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClassificationServer).GetTask(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ClassificationServiceDesc is the grpc.ServiceDesc for the classification service.
var ClassificationServiceDesc = grpc.ServiceDesc{
	ServiceName: ClassificationServiceName,
	HandlerType: (*ClassificationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: classifyHandler},
		{MethodName: "GetTask", Handler: getTaskHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docclassify/v1/classification.proto",
}

// ClassificationClient calls the classification service over conn.
type ClassificationClient struct {
	cc grpc.ClientConnInterface
}

func NewClassificationClient(cc grpc.ClientConnInterface) *ClassificationClient {
	return &ClassificationClient{cc: cc}
}

func (c *ClassificationClient) Classify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, classifyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ClassificationClient) GetTask(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getTaskMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassificationService implements ClassificationServer.
type ClassificationService struct {
	classifier extract.DocumentClassifier
	tasks      TaskReader
	logger     *slog.Logger
}

var _ ClassificationServer = (*ClassificationService)(nil)

func NewClassificationService(cl extract.DocumentClassifier, tasks TaskReader, logger *slog.Logger) *ClassificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationService{classifier: cl, tasks: tasks, logger: logger}
}

func (s *ClassificationService) Classify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	data, err := protojson.Marshal(in)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("decode request: %v", err)
	}
	res, err := classifyRaw(ctx, s.classifier, data)
	if err != nil {
		s.logger.Warn("grpc classify failed", "error", err)
		return nil, common.GRPCError(err)
	}
	return toStruct(res)
}

func (s *ClassificationService) GetTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw := in.GetFields()["task_id"].GetStringValue()
	v := common.NewValidator().Field("task_id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	task, err := s.tasks.Get(ctx, uuid.MustParse(raw))
	if err != nil {
		s.logger.Warn("grpc get task failed", "task_id", raw, "error", err)
		return nil, common.GRPCError(err)
	}
	return toStruct(newTaskStatusResponse(task))
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

// NewGRPCServer builds a server with the classification service, the standard
// health service (marked SERVING) and reflection registered.
func NewGRPCServer(svc ClassificationServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogging(logger)))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ClassificationServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(srv)
	RegisterClassificationServer(srv, svc)
	return srv, hs
}

func unaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, id)

		start := time.Now()
		resp, err := handler(ctx, req)
		log := logger.With("method", info.FullMethod, "request_id", id, "elapsed_ms", time.Since(start).Milliseconds())
		if err != nil {
			log.Warn("grpc request failed", "error", err)
		} else {
			log.Info("grpc request")
		}
		return resp, err
	}
}
