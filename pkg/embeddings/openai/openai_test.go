package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/embeddings"
	"github.com/papercomputeco/switchyard/pkg/embeddings/openai"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		received map[string]any
		status   int
		body     string
		noRetry  = 0
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		body = `{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(HaveSuffix("/embeddings"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() *openai.Embedder {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     "sk-test",
			BaseURL:    server.URL + "/v1/",
			Dimensions: 2,
			MaxRetries: &noRetry,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("requires an API key", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("falls back to OPENAI_API_KEY", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "sk-env")
		e, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Dimensions()).To(Equal(openai.DefaultDimensions))
	})

	It("converts the returned embedding to float32", func() {
		vec, err := newEmbedder().Embed(context.Background(), "what is the price")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.25, -0.5}))
		Expect(received).To(HaveKeyWithValue("input", "what is the price"))
		Expect(received).To(HaveKeyWithValue("model", openai.DefaultEmbeddingModel))
		Expect(received).To(HaveKeyWithValue("dimensions", BeNumerically("==", 2)))
	})

	It("wraps API failures in a provider error", func() {
		status = http.StatusBadRequest
		body = `{"error":{"message":"bad model","type":"invalid_request_error"}}`

		_, err := newEmbedder().Embed(context.Background(), "hello")
		Expect(err).To(HaveOccurred())

		var provErr *embeddings.ProviderError
		Expect(errors.As(err, &provErr)).To(BeTrue())
		Expect(provErr.Provider).To(Equal(openai.ProviderName))
	})

	It("fails when the response carries no data", func() {
		body = `{"object":"list","model":"m","data":[],"usage":{"prompt_tokens":0,"total_tokens":0}}`

		_, err := newEmbedder().Embed(context.Background(), "hello")
		var provErr *embeddings.ProviderError
		Expect(errors.As(err, &provErr)).To(BeTrue())
	})
})
