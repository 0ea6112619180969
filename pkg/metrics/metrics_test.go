package metrics_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/graph"
	"github.com/papercomputeco/switchyard/pkg/memory"
	"github.com/papercomputeco/switchyard/pkg/metrics"
	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/switchyard/pkg/utils/test"
)

type state struct {
	Topic string
}

func scrape(m *metrics.Metrics) string {
	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(body)
}

var _ = Describe("Metrics", func() {
	var (
		ctx context.Context
		m   *metrics.Metrics
	)

	BeforeEach(func() {
		ctx = context.Background()
		m = metrics.New()
	})

	It("counts node visits, routes and node errors from graph hooks", func() {
		g := graph.New[state]()
		Expect(g.AddNode("route", func(_ context.Context, s state) (state, error) { return s, nil })).To(Succeed())
		Expect(g.AddNode("finance", func(_ context.Context, s state) (state, error) {
			return s, errors.New("down")
		})).To(Succeed())
		Expect(g.SetEntryPoint("route")).To(Succeed())
		Expect(g.AddConditionalEdge("route", func(s state) (string, error) {
			return s.Topic, nil
		}, map[string]string{"finance": "finance", "other": graph.END})).To(Succeed())
		Expect(g.AddEdge("finance", graph.END)).To(Succeed())

		r, err := g.Compile(graph.WithHooks(m.Hooks()))
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Invoke(ctx, state{Topic: "other"})
		Expect(err).NotTo(HaveOccurred())
		_, err = r.Invoke(ctx, state{Topic: "finance"})
		Expect(err).To(HaveOccurred())

		body := scrape(m)
		Expect(body).To(ContainSubstring(`switchyard_node_visits_total{node="route"} 2`))
		Expect(body).To(ContainSubstring(`switchyard_node_visits_total{node="finance"} 1`))
		Expect(body).To(ContainSubstring(`switchyard_node_errors_total{node="finance"} 1`))
		Expect(body).To(ContainSubstring(`switchyard_routes_total{node="route",route="other"} 1`))
		Expect(body).To(ContainSubstring(`switchyard_node_duration_seconds_count{node="route"} 2`))
	})

	It("observes memory record and recall outcomes", func() {
		driver, err := inmemory.NewDriver(1)
		Expect(err).NotTo(HaveOccurred())

		mem, err := memory.Open(ctx, driver, &testutils.LengthEmbedder{FailOn: "bad"}, memory.WithObserver(m))
		Expect(err).NotTo(HaveOccurred())
		defer mem.Close()

		_, err = mem.Record(ctx, storage.RoleUser, "a")
		Expect(err).NotTo(HaveOccurred())
		_, err = mem.Record(ctx, storage.RoleAgent, "bad")
		Expect(err).To(HaveOccurred())

		_, err = mem.Recall(ctx, "a", 3)
		Expect(err).NotTo(HaveOccurred())

		body := scrape(m)
		Expect(body).To(ContainSubstring(`switchyard_memory_records_total{result="ok",role="user"} 1`))
		Expect(body).To(ContainSubstring(`switchyard_memory_records_total{result="error",role="agent"} 1`))
		Expect(body).To(ContainSubstring(`switchyard_memory_recalls_total{result="ok"} 1`))
		Expect(body).To(ContainSubstring(`switchyard_memory_recall_results_sum 1`))
	})

	It("serves metrics until the context is cancelled", func() {
		serveCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- m.Serve(serveCtx, "127.0.0.1:0", nil)
		}()

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})

	It("reports a failed bind even when cancelled first", func() {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer taken.Close()

		serveCtx, cancel := context.WithCancel(ctx)
		cancel()

		err = m.Serve(serveCtx, taken.Addr().String(), nil)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, http.ErrServerClosed)).To(BeFalse())
	})
})
