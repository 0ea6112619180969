package embeddingutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/embeddings/cached"
	"github.com/papercomputeco/switchyard/pkg/embeddings/hashing"
	"github.com/papercomputeco/switchyard/pkg/embeddings/ollama"
	"github.com/papercomputeco/switchyard/pkg/embeddings/openai"
	embeddingutils "github.com/papercomputeco/switchyard/pkg/embeddings/utils"
	testutils "github.com/papercomputeco/switchyard/pkg/utils/test"
)

var _ = Describe("NewEmbedder", func() {
	It("builds a hashing embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: "hashing",
			Dimensions:   32,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&hashing.Embedder{}))
		Expect(e.Dimensions()).To(Equal(32))
	})

	It("builds an ollama embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: "ollama",
			TargetURL:    "http://localhost:11434",
			Model:        "nomic-embed-text",
			Dimensions:   768,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("builds an openai embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: "openai",
			APIKey:       "sk-test",
			Dimensions:   512,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&openai.Embedder{}))
		Expect(e.Dimensions()).To(Equal(512))
	})

	It("wraps the provider in a cache when a size is set", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: "hashing",
			Dimensions:   16,
			CacheSize:    128,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&cached.Embedder{}))
		Expect(e.Dimensions()).To(Equal(16))
		Expect(e.Close()).To(Succeed())
	})

	It("rejects an oversized cache", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: "hashing",
			Dimensions:   16,
			CacheSize:    cached.MaxSize + 1,
		})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "faiss"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))
	})
})

var _ = Describe("WithCache", func() {
	It("closes the provider when the cache cannot be built", func() {
		inner := testutils.NewMockEmbedder()

		_, err := embeddingutils.WithCache(inner, cached.MaxSize+1)
		Expect(err).To(HaveOccurred())
		Expect(inner.Closed).To(BeTrue())
	})

	It("leaves the provider open on success", func() {
		inner := testutils.NewMockEmbedder()

		e, err := embeddingutils.WithCache(inner, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.Closed).To(BeFalse())
		Expect(e.Close()).To(Succeed())
	})
})
