package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	const listMethod = "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"

	for _, tc := range []struct {
		name   string
		token  string
		method string
		md     metadata.MD
		want   codes.Code
	}{
		{"Disabled", "", listMethod, nil, codes.OK},
		{"HealthExempt", "secret", healthpb.Health_Check_FullMethodName, nil, codes.OK},
		{"MissingMetadata", "secret", listMethod, nil, codes.Unauthenticated},
		{"MissingAuthHeader", "secret", listMethod, metadata.Pairs("other", "value"), codes.Unauthenticated},
		{"WrongToken", "secret", listMethod, metadata.Pairs("authorization", "Bearer wrong"), codes.Unauthenticated},
		{"InvalidScheme", "secret", listMethod, metadata.Pairs("authorization", "Basic secret"), codes.Unauthenticated},
		{"CorrectToken", "secret", listMethod, metadata.Pairs("authorization", "Bearer secret"), codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if got := status.Code(err); got != tc.want {
				t.Fatalf("code = %v, want %v (err=%v)", got, tc.want, err)
			}
			if tc.want == codes.OK && resp != "ok" {
				t.Fatalf("expected 'ok', got %v", resp)
			}
		})
	}
}

func TestLoggingInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

	resp, err := LoggingInterceptor(context.Background(), nil, info, stubHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("expected resp=%q err=nil, got resp=%v err=%v", "ok", resp, err)
	}

	_, err = LoggingInterceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return nil, fmt.Errorf("boom") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

	resp, err := RecoveryInterceptor(context.Background(), nil, info, stubHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("expected resp=%q err=nil, got resp=%v err=%v", "ok", resp, err)
	}

	_, err = RecoveryInterceptor(context.Background(), nil, info,
		func(_ context.Context, _ any) (any, error) { panic("test panic") })
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", status.Code(err))
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, tc := range []struct {
		name   string
		token  string
		path   string
		header string
		want   int
	}{
		{"NoHeader", "secret", "/v1/active-work", "", http.StatusUnauthorized},
		{"WrongToken", "secret", "/v1/active-work", "Bearer wrong", http.StatusUnauthorized},
		{"InvalidScheme", "secret", "/v1/active-work", "Basic secret", http.StatusUnauthorized},
		{"CorrectToken", "secret", "/v1/active-work", "Bearer secret", http.StatusOK},
		{"HealthExempt", "secret", "/v1/health", "", http.StatusOK},
		{"Disabled", "", "/v1/active-work", "", http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, ok).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d; body: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	id := rec.Header().Get(RequestIDHeader)
	if !strings.HasPrefix(id, "req-") || seen != id {
		t.Fatalf("request id = %q (handler saw %q)", id, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(RequestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "client-42" {
		t.Fatalf("client request id not kept, got %q", got)
	}
}
