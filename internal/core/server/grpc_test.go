package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/formatkeeper/internal/check"
	"github.com/solatis/formatkeeper/internal/core/api"
	"github.com/solatis/formatkeeper/internal/core/auth"
	"github.com/solatis/formatkeeper/internal/core/config"
	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/docx/docxtest"
	"github.com/solatis/formatkeeper/internal/rules"
)

const secretID = "0123456789abcdef0123456789abcdef"

type harness struct {
	client *api.Client
	health grpc_health_v1.HealthClient
	apiKey string
	srv    *GRPCServer
}

func startServer(t *testing.T, withAuth bool) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.MigrateUp(database); err != nil {
		t.Fatal(err)
	}
	store, err := db.NewStore(database, log)
	if err != nil {
		t.Fatal(err)
	}

	spec, err := rules.Compile(map[string]any{
		"paragraph": map[string]any{"论文正文": map[string]any{"is_default": true, "bold": true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	checker := check.New(rules.NewRepository(spec, rules.Options{Logger: log}), check.Options{Logger: log})
	svc, err := api.NewCheckService(checker, store, api.Options{Logger: log})
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{}
	var authn *auth.Authenticator
	if withAuth {
		secrets := map[string][]byte{secretID: bytes.Repeat([]byte("s"), 32)}
		key, hash, err := auth.GenerateAPIKey(secrets, secretID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.CreateAPIKey(context.Background(), "test", secretID, hash); err != nil {
			t.Fatal(err)
		}
		h.apiKey = key
		authn = auth.NewAuthenticator(secrets, store, log)
	}

	cfg := config.Default().Server
	cfg.ShutdownTimeout = 5 * time.Second
	srv, err := NewGRPCServer(cfg, svc, authn, log)
	if err != nil {
		t.Fatal(err)
	}
	h.srv = srv

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	h.client = api.NewClient(conn)
	h.health = grpc_health_v1.NewHealthClient(conn)
	return h
}

func document(t *testing.T) []byte {
	return docxtest.Package{
		Styles: docxtest.DefaultStyle("Normal", "Normal", "", ""),
		Body:   docxtest.Para("", docxtest.Run("", "正文")),
	}.Bytes(t)
}

func TestServer_CheckAndHistory(t *testing.T) {
	h := startServer(t, false)
	ctx := context.Background()

	run, err := h.client.CheckDocument(ctx, "paper.docx", document(t), true)
	if err != nil {
		t.Fatalf("CheckDocument() error = %v", err)
	}
	if run.DiagnosticCount() != 1 {
		t.Errorf("diagnostics = %d, want 1", run.DiagnosticCount())
	}

	runs, err := h.client.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].DiagnosticCount != 1 {
		t.Errorf("ListRuns() = %+v", runs)
	}

	got, err := h.client.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.DiagnosticCount() != 1 || got.Blocks[0].Details[0].RuleKey != rules.AttrBold {
		t.Errorf("GetRun() = %+v", got)
	}
}

func TestServer_Health(t *testing.T) {
	h := startServer(t, false)
	for _, svc := range []string{"", api.ServiceName} {
		resp, err := h.health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", svc, err)
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v, want SERVING", svc, resp.GetStatus())
		}
	}
}

func TestServer_Auth(t *testing.T) {
	h := startServer(t, true)

	tests := []struct {
		name string
		key  string
		want codes.Code
	}{
		{"no key", "", codes.Unauthenticated},
		{"bad key", "fk-v1-nope", codes.Unauthenticated},
		{"valid key", h.apiKey, codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.key != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", tt.key)
			}
			_, err := h.client.CheckDocument(ctx, "paper.docx", document(t), false)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestServer_Shutdown(t *testing.T) {
	h := startServer(t, false)
	if err := h.srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
