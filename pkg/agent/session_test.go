package agent_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/agent"
	"github.com/papercomputeco/switchyard/pkg/memory"
	testutils "github.com/papercomputeco/switchyard/pkg/utils/test"
)

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		mem     *memory.Memory
		session *agent.Session
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = openMemory(ctx, &testutils.LengthEmbedder{})
		DeferCleanup(mem.Close)

		runnable, err := agent.Build(agent.Config{Memory: mem})
		Expect(err).NotTo(HaveOccurred())

		session = agent.NewSession(runnable)
		out = &bytes.Buffer{}
	})

	It("has a session id", func() {
		Expect(session.ID).NotTo(BeEmpty())
	})

	It("runs one turn per line and stops on exit", func() {
		in := strings.NewReader("hello\n\n   \nprecio del bitcoin\n  EXIT \nnever seen\n")

		Expect(session.Run(ctx, in, out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("[general] hello"))
		Expect(out.String()).To(ContainSubstring("[finance] precio del bitcoin"))
		Expect(out.String()).NotTo(ContainSubstring("never seen"))

		history, err := mem.History(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(6))
		Expect(session.Turns()).To(Equal(2))
	})

	It("stops at end of input", func() {
		Expect(session.Run(ctx, strings.NewReader("weather today"), out)).To(Succeed())
		Expect(mem.Len()).To(Equal(3))
	})

	It("accepts lines longer than the default scanner buffer", func() {
		long := strings.Repeat("a", 70*1024)
		in := strings.NewReader(long + "\nexit\n")

		Expect(session.Run(ctx, in, out)).To(Succeed())
		Expect(session.Turns()).To(Equal(1))

		history, err := mem.History(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(history[0].Content).To(Equal(long))
	})

	It("rejects a line over MaxLineSize", func() {
		in := strings.NewReader(strings.Repeat("a", agent.MaxLineSize+1) + "\n")

		err := session.Run(ctx, in, out)
		Expect(err).To(MatchError(ContainSubstring("reading input")))
		Expect(mem.Len()).To(Equal(0))
	})

	It("stops before another turn when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := session.Run(cancelled, strings.NewReader("hello\n"), out)
		Expect(err).To(MatchError(context.Canceled))
		Expect(mem.Len()).To(Equal(0))
	})

	It("ends the session with the failing turn's error", func() {
		embedder := &testutils.LengthEmbedder{FailOn: "boom"}
		failingMem := openMemory(ctx, embedder)
		DeferCleanup(failingMem.Close)

		runnable, err := agent.Build(agent.Config{Memory: failingMem})
		Expect(err).NotTo(HaveOccurred())

		err = agent.NewSession(runnable).Run(ctx, strings.NewReader("ok\nboom\nafter\n"), out)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("turn 2"))
		Expect(failingMem.Len()).To(Equal(3))
	})
})
