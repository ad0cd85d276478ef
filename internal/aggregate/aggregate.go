// Package aggregate merges partial, possibly conflicting artist records
// from the metadata and directory services into one normalized view of
// the ways a listener can support an artist.
package aggregate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/musicnerd/backstage/musicbrainz"
	"github.com/musicnerd/backstage/musicnerd"
)

// ErrInvalidQuery is the aggregator's only failure mode: the caller
// supplied neither a name nor a streaming id.
var ErrInvalidQuery = errors.New("aggregate: query needs an artist name or spotify id")

// SourceID identifies an upstream provider that contributed data.
type SourceID string

const (
	SourceDirectory SourceID = "directory"
	SourceMetadata  SourceID = "metadata"
)

// Query is the aggregator's input. At least one field is required.
type Query struct {
	Name      string `json:"artistName"`
	SpotifyID string `json:"spotifyId,omitempty"`
}

// Result is constructed fresh per invocation and never mutated after
// construction. Sources records which providers contributed at least
// one field; it exists for observability, not business logic.
type Result struct {
	ArtistName  string      `json:"artistName"`
	Links       Links       `json:"links"`
	Categorized Categorized `json:"categorized"`
	Sources     []SourceID  `json:"sources"`
}

// MetadataSource is the slice of the musicbrainz client the aggregator
// needs.
type MetadataSource interface {
	SearchArtist(ctx context.Context, name string) (string, error)
	LookupArtist(ctx context.Context, id string) (*musicbrainz.ArtistDetail, error)
}

// DirectorySource is the slice of the musicnerd client the aggregator
// needs.
type DirectorySource interface {
	FindBySpotifyID(ctx context.Context, spotifyID string) (*musicnerd.Record, error)
	FindByName(ctx context.Context, name string) (*musicnerd.Record, error)
}

const defaultSourceTimeout = 4 * time.Second

type Aggregator struct {
	meta    MetadataSource
	dir     DirectorySource
	timeout time.Duration
	log     zerolog.Logger
}

func New(meta MetadataSource, dir DirectorySource, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		meta:    meta,
		dir:     dir,
		timeout: defaultSourceTimeout,
		log:     log.With().Str("component", "aggregate").Logger(),
	}
}

// WithTimeout overrides the per-source budget. Zero disables it.
func (a *Aggregator) WithTimeout(d time.Duration) *Aggregator {
	a.timeout = d
	return a
}

// Aggregate fans out to every applicable source, merges the results in
// precedence order and categorizes the links. Individual source
// failures degrade to partial data; when every source fails the result
// is a valid empty record, not an error. The only error returned is
// ErrInvalidQuery.
func (a *Aggregator) Aggregate(ctx context.Context, q Query) (*Result, error) {
	if q.Name == "" && q.SpotifyID == "" {
		return nil, ErrInvalidQuery
	}

	var (
		dirByID   *musicnerd.Record
		dirByName *musicnerd.Record
		detail    *musicbrainz.ArtistDetail
	)

	// Each source call is isolated: goroutines stash their result and
	// swallow their error, so one failure never cancels the others.
	g, gctx := errgroup.WithContext(ctx)

	if a.dir != nil && q.SpotifyID != "" {
		g.Go(func() error {
			sctx, cancel := a.sourceCtx(gctx)
			defer cancel()
			rec, err := a.dir.FindBySpotifyID(sctx, q.SpotifyID)
			if err == nil {
				dirByID = rec
			}
			return nil
		})
	}
	if a.dir != nil && q.Name != "" {
		g.Go(func() error {
			sctx, cancel := a.sourceCtx(gctx)
			defer cancel()
			rec, err := a.dir.FindByName(sctx, q.Name)
			if err == nil {
				dirByName = rec
			}
			return nil
		})
	}
	if a.meta != nil && q.Name != "" {
		g.Go(func() error {
			sctx, cancel := a.sourceCtx(gctx)
			defer cancel()
			id, err := a.meta.SearchArtist(sctx, q.Name)
			if err != nil {
				return nil
			}
			d, err := a.meta.LookupArtist(sctx, id)
			if err == nil {
				detail = d
			}
			return nil
		})
	}

	_ = g.Wait()

	// Reconcile the two directory lookups: the id-based record is the
	// more precise one and wins.
	dir := dirByID
	if dir == nil {
		dir = dirByName
	} else if dirByName != nil && dirByName.Name != dirByID.Name {
		a.log.Info().
			Str("byId", dirByID.Name).
			Str("byName", dirByName.Name).
			Msg("directory lookups disagree, keeping id-based record")
	}

	result := &Result{
		ArtistName: q.Name,
		Links:      Links{},
		Sources:    []SourceID{},
	}

	// Merge in fixed precedence order: the hand-curated directory
	// record first, then metadata relations filling still-missing keys.
	if dir != nil {
		result.Sources = append(result.Sources, SourceDirectory)
		if result.ArtistName == "" {
			result.ArtistName = dir.Name
		}
		result.Links.setIfAbsent("twitter", dir.TwitterHandle)
		result.Links.setIfAbsent("ethAddress", dir.EthAddress)
		result.Links.setIfAbsent("bandcamp", dir.Bandcamp)
		result.Links.setIfAbsent("soundxyz", dir.SoundXYZ)
		result.Links.setIfAbsent("catalog", dir.Catalog)
		result.Links.setIfAbsent("beatport", dir.Beatport)
		result.Links.setIfAbsent("official", dir.OfficialStore)
		result.Links.add("merch", dir.MerchLinks...)
	}

	if detail != nil {
		result.Sources = append(result.Sources, SourceMetadata)
		if result.ArtistName == "" {
			result.ArtistName = detail.Name
		}
		for _, key := range orderedKeys {
			result.Links.setIfAbsent(key, detail.RelationLinks[key])
		}
	}

	result.Categorized = categorize(result.Links)

	if len(result.Sources) == 0 {
		a.log.Debug().Str("artist", q.Name).Msg("all sources empty or unavailable")
	}

	return result, nil
}

func (a *Aggregator) sourceCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}
