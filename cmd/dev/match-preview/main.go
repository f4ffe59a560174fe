// match-preview prints the counterpart query built for a seeker or listing
// read as JSON, and optionally runs it against the configured store.
//
//	match-preview -kind seeker < seeker.json
//	match-preview -kind listing -file listing.json -run -config dev.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garnizeh/talentmatch/internal/app"
	"github.com/garnizeh/talentmatch/internal/config"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

type preview struct {
	Partition string            `yaml:"partition"`
	Filter    string            `yaml:"filter"`
	Bindings  map[string]string `yaml:"bindings"`
	Matches   []string          `yaml:"matches,omitempty"`
}

func main() {
	var (
		kind       = flag.String("kind", "seeker", "Record kind: seeker or listing")
		file       = flag.String("file", "", "JSON file to read (default stdin)")
		run        = flag.Bool("run", false, "Run the query against the configured store")
		configPath = flag.String("config", "", "Path to config YAML file (with -run)")
	)
	flag.Parse()

	raw, err := readInput(*file)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	var out preview
	switch *kind {
	case "seeker":
		var s models.Seeker
		if err := json.Unmarshal(raw, &s); err != nil {
			log.Fatalf("decode seeker: %v", err)
		}
		q := match.ListingsForSeeker(s)
		out = newPreview(q)
		if *run {
			out.Matches = runQuery(ctx, *configPath, func(b *app.Backends) ([]models.Listing, error) {
				return b.Listings.Query(ctx, q)
			})
		}
	case "listing":
		var l models.Listing
		if err := json.Unmarshal(raw, &l); err != nil {
			log.Fatalf("decode listing: %v", err)
		}
		q := match.SeekersForListing(l)
		out = newPreview(q)
		if *run {
			out.Matches = runQuery(ctx, *configPath, func(b *app.Backends) ([]models.Seeker, error) {
				return b.Seekers.Query(ctx, q)
			})
		}
	default:
		log.Fatalf("unknown kind %q", *kind)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func newPreview(q repository.Query) preview {
	return preview{Partition: q.PartitionPredicate, Filter: q.FilterExpression, Bindings: q.Bindings}
}

func runQuery[C match.Summarizer](ctx context.Context, configPath string, query func(*app.Backends) ([]C, error)) []string {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	b, err := app.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("open backends: %v", err)
	}
	defer b.Close()

	found, err := query(b)
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	lines := make([]string, 0, len(found))
	for _, c := range found {
		lines = append(lines, c.Summary())
	}
	if len(lines) == 0 {
		fmt.Fprintln(os.Stderr, "no matches")
	}
	return lines
}
