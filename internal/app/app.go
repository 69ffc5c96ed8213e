package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// dumpConcurrency bounds parallel record decoding during a full scan.
const dumpConcurrency = 8

// App is the CLI-facing application: cache inspection and maintenance.
type App struct {
	store  ports.RecordStore
	logger ports.Logger
	opts   domain.Options
}

// New creates a new App instance.
func New(store ports.RecordStore, logger ports.Logger, opts domain.Options) *App {
	return &App{
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// RecordSummary is the printable shape of one cache record.
type RecordSummary struct {
	Digest      string   `yaml:"digest"`
	Name        string   `yaml:"name"`
	Members     []string `yaml:"members"`
	LifetimeMS  int32    `yaml:"lifetimeMs"`
	SourceBytes int      `yaml:"sourceBytes"`
	Artifact    int      `yaml:"artifactBytes"`
	Resolutions int      `yaml:"resolutions"`
}

func summarize(digest string, rec *domain.GroupRecord) RecordSummary {
	s := RecordSummary{
		Digest:      digest,
		Name:        rec.Name,
		LifetimeMS:  rec.LifetimeMS,
		SourceBytes: len(rec.CombinedSource),
		Artifact:    len(rec.Artifact),
		Resolutions: len(rec.Resolved),
	}
	for _, m := range rec.Members {
		s.Members = append(s.Members, m.Key)
	}
	return s
}

// Dump prints the record stored under digest, or every record when digest is
// empty. With asYAML the full summaries are emitted as a YAML document.
func (a *App) Dump(ctx context.Context, w io.Writer, digest string, asYAML bool) error {
	var summaries []RecordSummary

	if digest != "" {
		rec, err := a.store.LoadDigest(digest)
		if err != nil {
			return err
		}
		if rec == nil {
			return zerr.With(domain.ErrRecordReadFailed, "digest", digest)
		}
		summaries = append(summaries, summarize(digest, rec))
	} else {
		digests, err := a.store.List()
		if err != nil {
			return err
		}

		var mu sync.Mutex
		eg, _ := errgroup.WithContext(ctx)
		eg.SetLimit(dumpConcurrency)
		for _, d := range digests {
			eg.Go(func() error {
				rec, err := a.store.LoadDigest(d)
				if err != nil || rec == nil {
					// Unusable records are reported, not fatal to the scan.
					a.logger.Warn(fmt.Sprintf("skipping unusable record %q", d))
					return nil
				}
				mu.Lock()
				summaries = append(summaries, summarize(d, rec))
				mu.Unlock()
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	}

	if asYAML {
		return yaml.NewEncoder(w).Encode(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %s  members=%d  lifetime=%dms  source=%dB  artifact=%dB  resolutions=%d\n",
			s.Digest, s.Name, len(s.Members), s.LifetimeMS, s.SourceBytes, s.Artifact, s.Resolutions)
	}
	return nil
}

// Clean removes cache records. With staleTempsOnly it only prunes leftover
// temp files from interrupted writes.
func (a *App) Clean(w io.Writer, staleTempsOnly bool) error {
	if staleTempsOnly {
		n, err := a.store.PruneTemps()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "removed %d stale temp files\n", n)
		return nil
	}

	n, err := a.store.Clear()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "removed %d cache records\n", n)
	return nil
}

// Options returns the effective configuration the app was built with.
func (a *App) Options() domain.Options { return a.opts }
