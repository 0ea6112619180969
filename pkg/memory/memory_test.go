package memory_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
	"github.com/papercomputeco/switchyard/pkg/memory"
	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/storage/inmemory"
	"github.com/papercomputeco/switchyard/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/switchyard/pkg/utils/test"
	"github.com/papercomputeco/switchyard/pkg/vector"
)

type recordedCall struct {
	role    storage.Role
	k       int
	results int
	err     error
}

type fakeObserver struct {
	mu      sync.Mutex
	records []recordedCall
	recalls []recordedCall
}

func (o *fakeObserver) ObserveRecord(role storage.Role, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, recordedCall{role: role, err: err})
}

func (o *fakeObserver) ObserveRecall(k, results int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recalls = append(o.recalls, recordedCall{k: k, results: results, err: err})
}

var _ = Describe("Memory", func() {
	var (
		ctx      context.Context
		embedder *testutils.LengthEmbedder
		driver   *inmemory.Driver
		mem      *memory.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = &testutils.LengthEmbedder{}

		var err error
		driver, err = inmemory.NewDriver(1)
		Expect(err).NotTo(HaveOccurred())

		mem, err = memory.Open(ctx, driver, embedder)
		Expect(err).NotTo(HaveOccurred())
	})

	record := func(role storage.Role, texts ...string) {
		for _, t := range texts {
			_, err := mem.Record(ctx, role, t)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	Describe("Open", func() {
		It("requires a driver and an embedder", func() {
			_, err := memory.Open(ctx, nil, embedder)
			Expect(err).To(HaveOccurred())

			_, err = memory.Open(ctx, driver, nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an embedder whose dimensions differ from the store", func() {
			mock := testutils.NewMockEmbedder()
			_, err := memory.Open(ctx, driver, mock)
			Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
		})

		It("restores the index from persisted turns", func() {
			record(storage.RoleUser, "a", "bb", "ccc")

			reopened, err := memory.Open(ctx, driver, embedder)
			Expect(err).NotTo(HaveOccurred())
			Expect(reopened.Len()).To(Equal(3))

			texts, err := reopened.Recall(ctx, "zz", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(Equal([]string{"bb"}))
		})
	})

	Describe("Record", func() {
		It("assigns sequence ids 1..n in call order", func() {
			for i, t := range []string{"hola", "hola, soy tu agente", "adios"} {
				rec, err := mem.Record(ctx, storage.RoleUser, t)
				Expect(err).NotTo(HaveOccurred())
				Expect(rec.Seq).To(Equal(int64(i + 1)))
				Expect(rec.Content).To(Equal(t))
			}
			Expect(mem.Len()).To(Equal(3))
		})

		It("leaves both stores unchanged when embedding fails", func() {
			record(storage.RoleUser, "a")
			embedder.FailOn = "poison"

			_, err := mem.Record(ctx, storage.RoleAgent, "poison")
			Expect(err).To(HaveOccurred())

			var writeErr *memory.WriteError
			Expect(errors.As(err, &writeErr)).To(BeTrue())
			Expect(writeErr.Role).To(Equal(storage.RoleAgent))
			Expect(writeErr.Text).To(Equal("poison"))

			var provErr *embeddings.ProviderError
			Expect(errors.As(err, &provErr)).To(BeTrue())

			history, err := mem.History(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(mem.Len()).To(Equal(1))
		})

		It("continues numbering after a failed record", func() {
			embedder.FailOn = "poison"
			record(storage.RoleUser, "a")
			_, err := mem.Record(ctx, storage.RoleUser, "poison")
			Expect(err).To(HaveOccurred())

			rec, err := mem.Record(ctx, storage.RoleUser, "bb")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Seq).To(Equal(int64(2)))
		})

		It("fails atomically when the embedding has the wrong size", func() {
			mock := testutils.NewMockEmbedder()
			mock.Dims = 1
			mock.Embeddings["wide"] = []float32{1, 2}

			m, err := memory.Open(ctx, driver, mock)
			Expect(err).NotTo(HaveOccurred())

			_, err = m.Record(ctx, storage.RoleUser, "wide")
			Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
			Expect(m.Len()).To(Equal(0))

			history, err := m.History(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("fails atomically when the log append fails", func() {
			_, err := mem.Record(ctx, storage.Role("narrator"), "a")
			var writeErr *memory.WriteError
			Expect(errors.As(err, &writeErr)).To(BeTrue())
			Expect(mem.Len()).To(Equal(0))
		})

		It("serializes concurrent writers without gaps", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := mem.Record(ctx, storage.RoleUser, fmt.Sprintf("turn-%d", i))
					Expect(err).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()

			history, err := mem.History(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(20))
			for i, rec := range history {
				Expect(rec.Seq).To(Equal(int64(i + 1)))
			}
			Expect(mem.Len()).To(Equal(20))
		})
	})

	Describe("Recall", func() {
		It("returns the nearest texts first", func() {
			record(storage.RoleUser, "a", "bb", "ccc")

			texts, err := mem.Recall(ctx, "b", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(Equal([]string{"a", "bb"}))
		})

		It("reports distances and sequence ids", func() {
			record(storage.RoleUser, "a", "bb", "ccc")

			matches, err := mem.RecallMatches(ctx, "b", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
			Expect(matches[0].Distance).To(BeNumerically("==", 0))
			Expect(matches[1].Distance).To(BeNumerically("==", 1))
			Expect(matches[2].Distance).To(BeNumerically("==", 4))
			Expect(matches[2].Seq).To(Equal(int64(3)))
		})

		It("self-matches each recorded text", func() {
			texts := []string{"a", "bb", "ccc"}
			record(storage.RoleUser, texts...)

			for _, t := range texts {
				got, err := mem.Recall(ctx, t, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal([]string{t}))
			}
		})

		It("clamps k to the number of recorded texts", func() {
			record(storage.RoleUser, "a", "bb")

			texts, err := mem.Recall(ctx, "a", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(Equal([]string{"a", "bb"}))
		})

		It("returns an empty result for k of zero", func() {
			record(storage.RoleUser, "a")

			texts, err := mem.Recall(ctx, "a", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).NotTo(BeNil())
			Expect(texts).To(BeEmpty())
		})

		It("returns an empty result on an empty memory", func() {
			for _, k := range []int{0, 1, 5} {
				texts, err := mem.Recall(ctx, "anything", k)
				Expect(err).NotTo(HaveOccurred())
				Expect(texts).To(BeEmpty())
			}
		})

		It("does not embed the query when nothing can match", func() {
			embedder.FailOn = "q"
			texts, err := mem.Recall(ctx, "q", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(BeEmpty())
		})

		It("propagates provider errors", func() {
			record(storage.RoleUser, "a")
			embedder.FailOn = "q"

			_, err := mem.Recall(ctx, "q", 1)
			var provErr *embeddings.ProviderError
			Expect(errors.As(err, &provErr)).To(BeTrue())
		})
	})

	Describe("History", func() {
		It("returns the log in record order with roles", func() {
			record(storage.RoleUser, "hola")
			record(storage.RoleAgent, "hola, soy tu agente")

			history, err := mem.History(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(Equal([]storage.Record{
				{Seq: 1, Role: storage.RoleUser, Content: "hola"},
				{Seq: 2, Role: storage.RoleAgent, Content: "hola, soy tu agente"},
			}))
		})
	})

	Describe("Observer", func() {
		It("sees every record and recall", func() {
			obs := &fakeObserver{}
			m, err := memory.Open(ctx, driver, embedder, memory.WithObserver(obs))
			Expect(err).NotTo(HaveOccurred())

			_, err = m.Record(ctx, storage.RoleUser, "a")
			Expect(err).NotTo(HaveOccurred())
			embedder.FailOn = "b"
			_, err = m.Record(ctx, storage.RoleAgent, "b")
			Expect(err).To(HaveOccurred())

			_, err = m.Recall(ctx, "a", 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(obs.records).To(HaveLen(2))
			Expect(obs.records[0].err).NotTo(HaveOccurred())
			Expect(obs.records[1].role).To(Equal(storage.RoleAgent))
			Expect(obs.records[1].err).To(HaveOccurred())
			Expect(obs.recalls).To(ConsistOf(recordedCall{k: 2, results: 1}))
		})
	})

	Describe("Close", func() {
		It("rejects operations after close", func() {
			Expect(mem.Close()).To(Succeed())

			_, err := mem.Record(ctx, storage.RoleUser, "a")
			Expect(err).To(MatchError(memory.ErrClosed))

			_, err = mem.Recall(ctx, "a", 1)
			Expect(err).To(MatchError(memory.ErrClosed))

			_, err = mem.History(ctx)
			Expect(err).To(MatchError(memory.ErrClosed))

			Expect(mem.Close()).To(MatchError(memory.ErrClosed))
		})

		It("closes the embedder", func() {
			mock := testutils.NewMockEmbedder()
			d, err := inmemory.NewDriver(3)
			Expect(err).NotTo(HaveOccurred())

			m, err := memory.Open(ctx, d, mock)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Close()).To(Succeed())
			Expect(mock.Closed).To(BeTrue())
		})
	})

	Describe("with a sqlite store", func() {
		It("resumes numbering and recall after reopening", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "memory.db")

			open := func() *memory.Memory {
				d, err := sqlite.NewDriver(ctx, sqlite.Config{DBPath: dbPath, Dimensions: 1}, nil)
				Expect(err).NotTo(HaveOccurred())
				m, err := memory.Open(ctx, d, &testutils.LengthEmbedder{})
				Expect(err).NotTo(HaveOccurred())
				return m
			}

			first := open()
			_, err := first.Record(ctx, storage.RoleUser, "a")
			Expect(err).NotTo(HaveOccurred())
			_, err = first.Record(ctx, storage.RoleAgent, "bb")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second := open()
			defer second.Close()
			Expect(second.Len()).To(Equal(2))

			rec, err := second.Record(ctx, storage.RoleUser, "ccc")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Seq).To(Equal(int64(3)))

			texts, err := second.Recall(ctx, "b", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(texts).To(Equal([]string{"a", "bb"}))
		})
	})
})
