package storageutils_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchyard/pkg/storage/inmemory"
	"github.com/papercomputeco/switchyard/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/switchyard/pkg/storage/utils"
)

var _ = Describe("NewDriver", func() {
	ctx := context.Background()

	It("builds a sqlite driver", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: storageutils.ProviderSQLite,
			SQLitePath:   filepath.Join(GinkgoT().TempDir(), "history.db"),
			Dimensions:   4,
		})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()
		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		Expect(d.Dimensions()).To(Equal(4))
	})

	It("builds an in-memory driver", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: storageutils.ProviderMemory,
			Dimensions:   4,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("requires a DSN for postgres", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: storageutils.ProviderPostgres,
			Dimensions:   4,
		})
		Expect(err).To(MatchError(ContainSubstring("requires a DSN")))
	})

	It("rejects unknown providers", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "faiss"})
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})
})
