package node

import (
	"context"
	"net"
	"net/http"
	_ "net/http/pprof"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/gorilla/mux"
	"go.opencensus.io/tag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/tradepost-labs/tradepost/api"
	"github.com/tradepost-labs/tradepost/metrics"
)

// Handler builds the HTTP handler exposing the marketplace RPC at /rpc/v0
// and the prometheus endpoint at /debug/metrics.
func Handler(a api.Marketplace) (http.Handler, error) {
	m := mux.NewRouter()

	rpcServer := jsonrpc.NewServer(jsonrpc.WithServerErrors(api.RPCErrors))
	rpcServer.Register("Tradepost", a)

	m.Handle("/rpc/v0", timedHandler(rpcServer))

	exporter, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "tradepost",
	})
	if err != nil {
		return nil, xerrors.Errorf("could not create the prometheus stats exporter: %w", err)
	}
	m.Handle("/debug/metrics", exporter)

	m.PathPrefix("/").Handler(http.DefaultServeMux) // pprof

	return m, nil
}

func timedHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stop := metrics.Timer(r.Context(), metrics.APIRequestDuration)
		defer stop()
		next.ServeHTTP(w, r)
	})
}

// ServeRPC serves h at addr until ctx is cancelled, then drains in-flight
// requests before returning.
func ServeRPC(ctx context.Context, h http.Handler, addr string) error {
	srv := &http.Server{
		Handler: h,
		BaseContext: func(net.Listener) context.Context {
			ctx, _ := tag.New(context.Background(), tag.Upsert(metrics.Endpoint, "rpc"))
			return ctx
		},
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return xerrors.Errorf("could not listen on %s: %w", addr, err)
	}
	log.Infof("marketplace RPC listening on %s", l.Addr())

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		log.Warn("shutting down RPC server")

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	eg.Go(func() error {
		if err := srv.Serve(l); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	return eg.Wait()
}
