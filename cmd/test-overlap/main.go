package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/meetpoint/server/internal/clients/isochrone"
	"github.com/dpup/meetpoint/server/internal/clients/places"
	"github.com/dpup/meetpoint/server/internal/config"
	"github.com/dpup/meetpoint/server/internal/export"
	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
	"github.com/dpup/meetpoint/server/internal/lib/ranking"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
	"github.com/dpup/meetpoint/server/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "resolve":
		handleResolve()
	case "validate":
		handleValidate()
	case "rank":
		handleRank()
	case "export":
		handleExport()
	case "decode":
		handleDecode()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags registers the flags every subcommand shares
type commonFlags struct {
	file          *string
	contour       *float64
	ownerProperty *string
	valueProperty *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		file:          fs.String("file", "", "Isochrone GeoJSON FeatureCollection (one origin per owner), - for stdin"),
		contour:       fs.Float64("contour", 0, "Intersect this contour value instead of each owner's largest"),
		ownerProperty: fs.String("owner-property", "group_index", "Feature property identifying the origin"),
		valueProperty: fs.String("value-property", "value", "Feature property holding the contour value"),
	}
}

// resolve parses the isochrone file and intersects it
func (f commonFlags) resolve(cfg *config.Config) overlap.Region {
	if *f.file == "" {
		log.Fatalf("--file is required")
	}

	var in io.Reader = os.Stdin
	if *f.file != "-" {
		file, err := os.Open(*f.file)
		if err != nil {
			log.Fatalf("Error reading %s: %v", *f.file, err)
		}
		defer file.Close()
		in = file
	}

	cfg.Ingest.OwnerProperty = *f.ownerProperty
	cfg.Ingest.ValueProperty = *f.valueProperty
	if *f.contour > 0 {
		cfg.Overlap.ContourValue = f.contour
	}
	cfg.Overlap.CacheTTL = 0

	contours, err := isochrone.NewParser(cfg.Ingest.ParserOptions()).ParseReader(in)
	if err != nil {
		log.Fatalf("Error parsing isochrones: %v", err)
	}
	printOwners(contours)

	svc, err := services.NewMeetingService(cfg, nil, nil)
	if err != nil {
		log.Fatalf("Error creating service: %v", err)
	}
	return svc.ResolveContours(logging.EnsureLogger(context.Background()), contours)
}

// printOwners lists each owner's contour bands in ascending order. It writes
// to stderr so export output on stdout stays clean.
func printOwners(contours []reachability.Contour) {
	sets, err := reachability.GroupByOwner(contours)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Owners: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Owners: %d\n", len(sets))
	for _, set := range sets {
		values := make([]string, 0, set.Len())
		for _, c := range set.Contours() {
			values = append(values, fmt.Sprintf("%g", c.Value))
		}
		fmt.Fprintf(os.Stderr, "  %s: %d contours [%s]\n", set.Owner(), set.Len(), strings.Join(values, ", "))
	}
}

func handleResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(os.Args[2:])

	region := common.resolve(config.DefaultConfig())
	printRegion(region)
}

func handleValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	common := addCommonFlags(fs)
	lat := fs.Float64("lat", 0, "Latitude of the meeting point")
	lng := fs.Float64("lng", 0, "Longitude of the meeting point")
	fs.Parse(os.Args[2:])

	if *lat == 0 && *lng == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-overlap validate --file isochrones.geojson --lat -6.175 --lng 106.875")
		os.Exit(1)
	}

	region := common.resolve(config.DefaultConfig())
	printRegion(region)

	point := geo.Coordinate{Longitude: *lng, Latitude: *lat}
	svc, _ := services.NewMeetingService(config.DefaultConfig(), nil, nil)
	if err := svc.Validate(point, region); err != nil {
		fmt.Printf("\n❌ (%.6f, %.6f) rejected: %v\n", point.Latitude, point.Longitude, err)
		os.Exit(2)
	}
	fmt.Printf("\n✅ (%.6f, %.6f) is inside the overlap\n", point.Latitude, point.Longitude)
}

func handleRank() {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	common := addCommonFlags(fs)
	placesFile := fs.String("places", "", "Places search response (JSON array or {\"results\": [...]})")
	sortKey := fs.String("sort", "distance", "Sort key: distance, rating or relevance")
	limit := fs.Int("limit", 20, "Maximum results (0 = unlimited)")
	fs.Parse(os.Args[2:])

	if *placesFile == "" {
		log.Fatalf("--places is required")
	}
	data, err := os.ReadFile(*placesFile)
	if err != nil {
		log.Fatalf("Error reading %s: %v", *placesFile, err)
	}
	candidates, dropped, err := places.ParseCandidates(data)
	if err != nil {
		log.Fatalf("Error parsing places: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Ranking.MaxResults = *limit
	region := common.resolve(cfg)
	printRegion(region)

	svc, err := services.NewMeetingService(cfg, nil, nil)
	if err != nil {
		log.Fatalf("Error creating service: %v", err)
	}
	ranked, err := svc.Rank(logging.EnsureLogger(context.Background()), candidates, region, ranking.SortKey(*sortKey))
	if err != nil {
		log.Fatalf("Error ranking: %v", err)
	}

	fmt.Printf("\nCandidates: %d parsed, %d dropped, %d inside the overlap\n", len(candidates), dropped, len(ranked))
	for i, c := range ranked {
		fmt.Printf("  %2d. %-30s %8.0f m from anchor", i+1, displayName(c.Candidate), c.DistanceToAnchor)
		if c.Rating != nil {
			fmt.Printf("  rating %.1f", *c.Rating)
		}
		if c.Relevance != nil {
			fmt.Printf("  relevance %.2f", *c.Relevance)
		}
		fmt.Println()
	}
}

func handleExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	common := addCommonFlags(fs)
	format := fs.String("format", "geojson", "Output format: geojson, kml, wkb or polyline")
	out := fs.String("out", "", "Output file (default stdout)")
	fs.Parse(os.Args[2:])

	region := common.resolve(config.DefaultConfig())
	if !region.HasGeometry() {
		printRegion(region)
		os.Exit(2)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Error creating %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	var err error
	switch *format {
	case "geojson":
		var data []byte
		if data, err = export.GeoJSON(region); err == nil {
			_, err = fmt.Fprintln(w, string(data))
		}
	case "kml":
		err = export.KML(w, "Meeting area", region)
	case "wkb":
		var data []byte
		if data, err = export.WKB(region); err == nil {
			_, err = fmt.Fprintln(w, hex.EncodeToString(data))
		}
	case "polyline":
		var rings []string
		if rings, err = export.EncodedRings(region); err == nil {
			_, err = fmt.Fprintln(w, strings.Join(rings, "\n"))
		}
	default:
		log.Fatalf("Unknown format: %s", *format)
	}
	if err != nil {
		log.Fatalf("Error exporting: %v", err)
	}
}

// handleDecode reads encoded rings, as written by "export --format polyline",
// and reports each ring's size and whether --lat/--lng falls inside it
func handleDecode() {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	file := fs.String("file", "-", "File with one encoded ring per line, - for stdin")
	lat := fs.Float64("lat", 0, "Latitude to test against each ring")
	lng := fs.Float64("lng", 0, "Longitude to test against each ring")
	fs.Parse(os.Args[2:])

	var in io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("Error reading %s: %v", *file, err)
		}
		defer f.Close()
		in = f
	}

	point := geo.Coordinate{Longitude: *lng, Latitude: *lat}
	checkPoint := *lat != 0 || *lng != 0

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	n := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n++
		ring, err := geo.DecodeRing(line)
		if err != nil {
			log.Fatalf("Ring %d: %v", n, err)
		}
		fmt.Printf("Ring %d: %d vertices, %.0f m² planar, %.0f m² geodesic\n",
			n, len(ring.Open()), geo.PlanarArea(ring), geo.GeodesicArea(ring))
		if checkPoint {
			fmt.Printf("  (%.6f, %.6f) inside: %t\n", point.Latitude, point.Longitude, geo.PointInRing(point, ring))
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error reading rings: %v", err)
	}
}

func printRegion(region overlap.Region) {
	fmt.Printf("Overlap: %s (owners: %v)\n", region.Kind, region.OwnerIDs)
	switch region.Kind {
	case overlap.Intersection:
		fmt.Printf("  Polygons: %d\n", len(region.Geometry.Polygons))
		fmt.Printf("  Travel time: %g\n", region.TravelTime)
		fmt.Printf("  Area: %.0f m² planar, %.0f m² geodesic\n", region.AreaSquareMeters, region.GeodesicAreaSquareMeters)
		if anchor, ok := region.Anchor(); ok {
			fmt.Printf("  Anchor: (%.6f, %.6f)\n", anchor.Latitude, anchor.Longitude)
		}
	case overlap.NoOverlap:
		fmt.Printf("  Travel time: %g\n", region.TravelTime)
	case overlap.Error:
		fmt.Printf("  Error: %s\n", region.Message)
	}
}

func displayName(c ranking.Candidate) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func printUsage() {
	fmt.Println("Overlap Testing Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  test-overlap <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  resolve    Intersect the isochrones in --file")
	fmt.Println("  validate   Check --lat/--lng against the overlap")
	fmt.Println("  rank       Filter and sort --places inside the overlap")
	fmt.Println("  export     Write the overlap as geojson, kml, wkb or polyline")
	fmt.Println("  decode     Inspect encoded rings from export --format polyline")
	fmt.Println("  help       Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  test-overlap resolve --file isochrones.geojson")
	fmt.Println("  test-overlap rank --file isochrones.geojson --places places.json --sort rating")
	fmt.Println("  test-overlap export --file isochrones.geojson --format kml --out overlap.kml")
	fmt.Println("  test-overlap export --file - --format polyline < isochrones.geojson | test-overlap decode --lat -6.175 --lng 106.875")
}
