package graph_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/graph"
)

type topicState struct {
	Topic string
	Trail []string
	Count int
}

func mark(name string) graph.NodeFunc[topicState] {
	return func(_ context.Context, s topicState) (topicState, error) {
		s.Trail = append(s.Trail, name)
		return s, nil
	}
}

func byTopic(s topicState) (string, error) {
	return s.Topic, nil
}

func topicGraph() *graph.Graph[topicState] {
	g := graph.New[topicState]()
	Expect(g.AddNode("route", mark("route"))).To(Succeed())
	Expect(g.AddNode("finance", mark("finance"))).To(Succeed())
	Expect(g.AddNode("weather", mark("weather"))).To(Succeed())
	Expect(g.AddNode("general", mark("general"))).To(Succeed())
	Expect(g.SetEntryPoint("route")).To(Succeed())
	Expect(g.AddConditionalEdge("route", byTopic, map[string]string{
		"finance": "finance",
		"weather": "weather",
		"other":   "general",
	})).To(Succeed())
	Expect(g.AddEdge("finance", graph.END)).To(Succeed())
	Expect(g.AddEdge("weather", graph.END)).To(Succeed())
	Expect(g.AddEdge("general", graph.END)).To(Succeed())
	return g
}

var _ = Describe("Graph", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("construction", func() {
		It("rejects empty and reserved node names", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("", mark("x"))).To(MatchError(graph.ErrInvalidNodeName))
			Expect(g.AddNode(graph.END, mark("x"))).To(MatchError(graph.ErrInvalidNodeName))
		})

		It("rejects duplicate node names", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())

			err := g.AddNode("a", mark("a"))
			var dup graph.DuplicateNodeError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.Node).To(Equal("a"))
		})

		It("rejects edges that name unknown nodes", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())

			Expect(g.AddEdge("missing", "a")).To(MatchError(graph.UnknownNodeError{Node: "missing"}))
			Expect(g.AddEdge("a", "missing")).To(MatchError(graph.UnknownNodeError{Node: "missing"}))
			Expect(g.AddConditionalEdge("a", byTopic, map[string]string{"x": "missing"})).
				To(MatchError(graph.UnknownNodeError{Node: "missing"}))
			Expect(g.SetEntryPoint("missing")).To(MatchError(graph.UnknownNodeError{Node: "missing"}))
		})

		It("accepts END as an edge destination", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddEdge("a", graph.END)).To(Succeed())
		})

		It("allows one outgoing rule per node", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddEdge("a", graph.END)).To(Succeed())

			Expect(g.AddEdge("a", graph.END)).To(MatchError(graph.DuplicateEdgeError{From: "a"}))
			Expect(g.AddConditionalEdge("a", byTopic, map[string]string{"x": graph.END})).
				To(MatchError(graph.DuplicateEdgeError{From: "a"}))
		})

		It("rejects conditional edges without routes or a decision function", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())

			Expect(g.AddConditionalEdge("a", byTopic, nil)).NotTo(Succeed())
			Expect(g.AddConditionalEdge("a", nil, map[string]string{"x": graph.END})).NotTo(Succeed())
		})
	})

	Describe("Compile", func() {
		It("fails on an empty graph", func() {
			_, err := graph.New[topicState]().Compile()
			Expect(err).To(MatchError(graph.ErrEmptyGraph))
		})

		It("fails without an entry point", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddEdge("a", graph.END)).To(Succeed())

			_, err := g.Compile()
			Expect(err).To(MatchError(graph.ErrNoEntryPoint))
		})

		It("fails when the entry point is END", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddEdge("a", graph.END)).To(Succeed())
			Expect(g.SetEntryPoint(graph.END)).To(Succeed())

			_, err := g.Compile()
			Expect(err).To(MatchError(graph.ErrEmptyGraph))
		})

		It("fails when a node has no outgoing edge", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddNode("b", mark("b"))).To(Succeed())
			Expect(g.SetEntryPoint("a")).To(Succeed())
			Expect(g.AddEdge("a", "b")).To(Succeed())

			_, err := g.Compile()
			Expect(err).To(MatchError(graph.MissingEdgeError{Node: "b"}))
		})

		It("is idempotent", func() {
			g := topicGraph()

			first, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())
			second, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())

			for _, topic := range []string{"finance", "weather", "other"} {
				_, p1, err := first.InvokePath(ctx, topicState{Topic: topic})
				Expect(err).NotTo(HaveOccurred())
				_, p2, err := second.InvokePath(ctx, topicState{Topic: topic})
				Expect(err).NotTo(HaveOccurred())
				Expect(p1).To(Equal(p2))
			}
		})

		It("is not affected by later changes to the graph", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.SetEntryPoint("a")).To(Succeed())
			Expect(g.AddEdge("a", graph.END)).To(Succeed())

			r, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())

			Expect(g.AddNode("b", mark("b"))).To(Succeed())
			Expect(g.AddEdge("b", graph.END)).To(Succeed())
			Expect(r.Nodes()).To(Equal([]string{"a"}))
		})

		It("reports unreachable nodes as diagnostics", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddNode("orphan", mark("orphan"))).To(Succeed())
			Expect(g.SetEntryPoint("a")).To(Succeed())
			Expect(g.AddEdge("a", graph.END)).To(Succeed())
			Expect(g.AddEdge("orphan", graph.END)).To(Succeed())

			r, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Diagnostics()).To(HaveLen(1))
			Expect(r.Diagnostics()[0].Node).To(Equal("orphan"))
		})
	})

	Describe("Invoke", func() {
		var r *graph.Runnable[topicState]

		BeforeEach(func() {
			var err error
			r, err = topicGraph().Compile()
			Expect(err).NotTo(HaveOccurred())
		})

		It("follows the conditional edge selected by the state", func() {
			out, path, err := r.InvokePath(ctx, topicState{Topic: "finance"})
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal([]string{"route", "finance", graph.END}))
			Expect(out.Trail).To(Equal([]string{"route", "finance"}))
		})

		It("maps route keys onto differently named nodes", func() {
			out, err := r.Invoke(ctx, topicState{Topic: "other"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Trail).To(Equal([]string{"route", "general"}))
		})

		It("fails on a route key missing from the table", func() {
			_, path, err := r.InvokePath(ctx, topicState{Topic: "unknown"})

			var unmapped graph.UnmappedRouteError
			Expect(errors.As(err, &unmapped)).To(BeTrue())
			Expect(unmapped.Node).To(Equal("route"))
			Expect(unmapped.Key).To(Equal("unknown"))
			Expect(path).To(Equal([]string{"route"}))
		})

		It("wraps node failures with the node name", func() {
			boom := errors.New("boom")
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.AddNode("b", func(_ context.Context, s topicState) (topicState, error) {
				return s, boom
			})).To(Succeed())
			Expect(g.SetEntryPoint("a")).To(Succeed())
			Expect(g.AddEdge("a", "b")).To(Succeed())
			Expect(g.AddEdge("b", graph.END)).To(Succeed())

			failing, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())

			out, path, err := failing.InvokePath(ctx, topicState{})
			Expect(err).To(MatchError(boom))

			var nodeErr *graph.NodeError
			Expect(errors.As(err, &nodeErr)).To(BeTrue())
			Expect(nodeErr.Node).To(Equal("b"))
			Expect(path).To(Equal([]string{"a", "b"}))
			Expect(out.Trail).To(Equal([]string{"a"}))
		})

		It("wraps decision failures with the source node name", func() {
			boom := errors.New("no topic")
			g := graph.New[topicState]()
			Expect(g.AddNode("a", mark("a"))).To(Succeed())
			Expect(g.SetEntryPoint("a")).To(Succeed())
			Expect(g.AddConditionalEdge("a", func(topicState) (string, error) {
				return "", boom
			}, map[string]string{"x": graph.END})).To(Succeed())

			failing, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())

			_, err = failing.Invoke(ctx, topicState{})
			Expect(err).To(MatchError(boom))
			Expect(err.Error()).To(ContainSubstring(`"a"`))
		})

		It("runs loops until node logic exits them", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("tick", func(_ context.Context, s topicState) (topicState, error) {
				s.Count++
				return s, nil
			})).To(Succeed())
			Expect(g.SetEntryPoint("tick")).To(Succeed())
			Expect(g.AddConditionalEdge("tick", func(s topicState) (string, error) {
				if s.Count < 3 {
					return "again", nil
				}
				return "done", nil
			}, map[string]string{"again": "tick", "done": graph.END})).To(Succeed())

			loop, err := g.Compile()
			Expect(err).NotTo(HaveOccurred())

			out, path, err := loop.InvokePath(ctx, topicState{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(3))
			Expect(path).To(Equal([]string{"tick", "tick", "tick", graph.END}))
		})

		It("stops a run at the step limit", func() {
			g := graph.New[topicState]()
			Expect(g.AddNode("spin", mark("spin"))).To(Succeed())
			Expect(g.SetEntryPoint("spin")).To(Succeed())
			Expect(g.AddEdge("spin", "spin")).To(Succeed())

			loop, err := g.Compile(graph.WithStepLimit(5))
			Expect(err).NotTo(HaveOccurred())

			out, err := loop.Invoke(ctx, topicState{})
			Expect(err).To(MatchError(graph.StepLimitError{Limit: 5, Node: "spin"}))
			Expect(out.Trail).To(HaveLen(5))
		})

		It("stops before dispatch when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, path, err := r.InvokePath(cancelled, topicState{Topic: "finance"})
			Expect(err).To(MatchError(context.Canceled))
			Expect(path).To(BeEmpty())
		})

		It("calls hooks around nodes and routes", func() {
			var events []string
			hooks := graph.Hooks{
				OnNodeEnter: func(_ context.Context, node string) {
					events = append(events, "enter:"+node)
				},
				OnNodeLeave: func(_ context.Context, node string, _ time.Duration, err error) {
					Expect(err).NotTo(HaveOccurred())
					events = append(events, "leave:"+node)
				},
				OnRoute: func(_ context.Context, from, key, to string) {
					events = append(events, "route:"+from+":"+key+":"+to)
				},
			}

			hooked, err := topicGraph().Compile(graph.WithHooks(hooks))
			Expect(err).NotTo(HaveOccurred())

			_, err = hooked.Invoke(ctx, topicState{Topic: "weather"})
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]string{
				"enter:route",
				"leave:route",
				"route:route:weather:weather",
				"enter:weather",
				"leave:weather",
			}))
		})

		It("threads independent state through concurrent runs", func() {
			done := make(chan topicState, 2)
			for _, topic := range []string{"finance", "weather"} {
				go func(topic string) {
					defer GinkgoRecover()
					out, err := r.Invoke(ctx, topicState{Topic: topic})
					Expect(err).NotTo(HaveOccurred())
					done <- out
				}(topic)
			}

			var trails [][]string
			trails = append(trails, (<-done).Trail, (<-done).Trail)
			Expect(trails).To(ConsistOf(
				[]string{"route", "finance"},
				[]string{"route", "weather"},
			))
		})
	})

	Describe("Mermaid", func() {
		It("renders nodes, labeled routes and visited styling", func() {
			r, err := topicGraph().Compile()
			Expect(err).NotTo(HaveOccurred())

			_, path, err := r.InvokePath(ctx, topicState{Topic: "finance"})
			Expect(err).NotTo(HaveOccurred())

			out := r.Mermaid(path...)
			Expect(out).To(HavePrefix("graph TD\n"))
			Expect(out).To(ContainSubstring(`route -- "finance" --> finance`))
			Expect(out).To(ContainSubstring(`route -- "other" --> general`))
			Expect(out).To(ContainSubstring("finance --> __end__"))
			Expect(out).To(ContainSubstring("class finance visited;"))
			Expect(out).NotTo(ContainSubstring("class weather visited;"))
		})

		It("omits styling without a visited path", func() {
			r, err := topicGraph().Compile()
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Contains(r.Mermaid(), "classDef")).To(BeFalse())
		})
	})
})
