// Command archivectl is the command-line surface over the archive façade
// (pkg/archive): commit a new version from a file, check out a past
// version, or diff two versions. Grounded on the teacher's
// cmd/service/main.go: a flat func main, config loaded up front,
// log.Fatal on setup errors, fmt.Println for the usage banner.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kasuganosora/histore/pkg/archive"
	"github.com/kasuganosora/histore/pkg/archivestore"
	"github.com/kasuganosora/histore/pkg/archivestore/badgerstore"
	"github.com/kasuganosora/histore/pkg/archivestore/volatile"
	"github.com/kasuganosora/histore/pkg/config"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/document/csvdoc"
	"github.com/kasuganosora/histore/pkg/document/jsonldoc"
	"github.com/kasuganosora/histore/pkg/extsort"
	"github.com/kasuganosora/histore/pkg/rowcodec"
)

func main() {
	cfg := config.LoadConfigOrDefault()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "commit":
		err = runCommit(cfg, os.Args[2:])
	case "checkout":
		err = runCheckout(cfg, os.Args[2:])
	case "diff":
		err = runDiff(cfg, os.Args[2:])
	case "debug":
		err = runDebug(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Println("archivectl: a history store for structured tabular datasets")
	fmt.Println("commands:")
	fmt.Println("  commit [--label L] [--description D] [--key-columns c1,c2] <archive-dir> <doc-file>")
	fmt.Println("  checkout <archive-dir> <version>")
	fmt.Println("  diff <archive-dir> <v1> <v2>")
	fmt.Println("  debug <archive-dir> <from-version> <to-version>")
}

func compressionFor(cfg *config.Config) rowcodec.Compression {
	if cfg.Archive.CompressRows {
		return rowcodec.CompressionGzip
	}
	return rowcodec.CompressionIdentity
}

func openStore(cfg *config.Config, dir string) (archivestore.Store, error) {
	switch cfg.Archive.StoreKind {
	case "volatile":
		return volatile.New(), nil
	default:
		return badgerstore.Open(dir, compressionFor(cfg))
	}
}

func openFacade(cfg *config.Config, dir string) (*archive.Facade, error) {
	store, err := openStore(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("archivectl: open store at %s: %w", dir, err)
	}
	return archive.New(store, archive.Options{
		SortOptions: extsort.Options{
			BufferSize:  cfg.ExternalSort.BufferSizeBytes,
			TempDir:     cfg.ExternalSort.TempDir,
			Compression: compressionFor(cfg),
		},
		CacheMaxCost: cfg.Archive.CheckoutCacheSz,
	})
}

func openDocument(path string, keyColumnIDs []int) (document.Source, error) {
	var reader document.Reader = document.DefaultReader{}
	if len(keyColumnIDs) > 0 {
		reader = document.AnnotatedReader{KeyColumnIDs: keyColumnIDs}
	}
	if strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".ndjson") {
		return jsonldoc.Open(path, jsonldoc.Options{Reader: reader})
	}
	return csvdoc.Open(path, csvdoc.Options{HasHeader: true, Reader: reader})
}

func runCommit(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	label := fs.String("label", "", "human-readable label for this version")
	description := fs.String("description", "", "free-text description of this version")
	keyColumns := fs.String("key-columns", "", "comma-separated column ids the document is keyed on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("archivectl commit: expected <archive-dir> <doc-file>")
	}
	archiveDir, docPath := fs.Arg(0), fs.Arg(1)

	keyColumnIDs, err := parseColumnIDs(*keyColumns)
	if err != nil {
		return err
	}

	doc, err := openDocument(docPath, keyColumnIDs)
	if err != nil {
		return fmt.Errorf("archivectl: open document %s: %w", docPath, err)
	}

	f, err := openFacade(cfg, archiveDir)
	if err != nil {
		return err
	}

	meta, err := f.Commit(doc, archivestore.VersionMeta{Label: *label, Description: *description}, keyColumnIDs)
	if err != nil {
		return fmt.Errorf("archivectl: commit: %w", err)
	}
	fmt.Printf("committed version %d (%s)\n", meta.Version, meta.CommittedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func runCheckout(cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("archivectl checkout: expected <archive-dir> <version>")
	}
	version, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("archivectl checkout: bad version %q: %w", args[1], err)
	}

	f, err := openFacade(cfg, args[0])
	if err != nil {
		return err
	}
	rows, err := f.Checkout(version)
	if err != nil {
		return fmt.Errorf("archivectl: checkout: %w", err)
	}
	return printJSON(rows)
}

func runDiff(cfg *config.Config, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("archivectl diff: expected <archive-dir> <v1> <v2>")
	}
	v1, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("archivectl diff: bad v1 %q: %w", args[1], err)
	}
	v2, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("archivectl diff: bad v2 %q: %w", args[2], err)
	}

	f, err := openFacade(cfg, args[0])
	if err != nil {
		return err
	}
	changes, err := f.Diff(v1, v2)
	if err != nil {
		return fmt.Errorf("archivectl: diff: %w", err)
	}
	return printJSON(changes)
}

func runDebug(cfg *config.Config, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("archivectl debug: expected <archive-dir> <from-version> <to-version>")
	}
	from, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("archivectl debug: bad from-version %q: %w", args[1], err)
	}
	to, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("archivectl debug: bad to-version %q: %w", args[2], err)
	}

	f, err := openFacade(cfg, args[0])
	if err != nil {
		return err
	}
	if err := f.DebugDump(os.Stdout, from, to); err != nil {
		return fmt.Errorf("archivectl: debug: %w", err)
	}
	return nil
}

func parseColumnIDs(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, len(parts))
	for i, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("archivectl: bad key column id %q: %w", p, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
