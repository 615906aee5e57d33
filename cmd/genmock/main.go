// Command genmock writes synthetic radar export files for local runs and
// manual testing. Every file it writes is read back through the real intake
// and normalization code, so the printed stats match what ingestion will do.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/inbox \
//	  -radars S723E,S724N \
//	  -days 90 -end 2024-03-31 -family daily
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/adapter/intake"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	radars []string
	days   int
	end    time.Time
	schema domain.Schema
	seed   uint64
	noise  bool
}

func run() error {
	outDir := flag.String("out", "", "directory to write the generated file into")
	radars := flag.String("radars", "S723E,S724N", "comma-separated radar names")
	days := flag.Int("days", 30, "number of days per radar")
	end := flag.String("end", "", "last generated date, YYYY-MM-DD (default yesterday)")
	family := flag.String("family", "daily", "input family: daily or otr")
	seed := flag.Uint64("seed", 1, "random seed")
	noise := flag.Bool("noise", true, "include a bad date, a duplicate row, a blank value and a spike")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	schema, err := domain.ResolveSchema(domain.Families(0), "", *family)
	if err != nil {
		return err
	}

	endDate := time.Now().UTC().AddDate(0, 0, -1)
	if *end != "" {
		endDate, err = time.Parse(domain.ISODate, *end)
		if err != nil {
			return fmt.Errorf("parse -end: %w", err)
		}
	}

	// Pin "today" to the day after the last date so normalization keeps every row.
	domain.SetClock(clockwork.NewFakeClockAt(endDate.AddDate(0, 0, 1)))
	defer domain.SetClock(nil)

	opts := options{
		radars: strings.Split(*radars, ","),
		days:   *days,
		end:    endDate,
		schema: schema,
		seed:   *seed,
		noise:  *noise,
	}
	data := generate(opts)

	name := fileName(schema, endDate)
	path := filepath.Join(*outDir, name)
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	log.Printf("wrote %s", path)

	raw, err := intake.Parse(name, bytes.NewReader(data), nil)
	if err != nil {
		return err
	}
	table, err := domain.Normalize(raw, schema)
	if err != nil {
		return err
	}
	printStats(table)
	return nil
}

func fileName(schema domain.Schema, end time.Time) string {
	if schema.Name == "otr" {
		return "OTR_" + end.Format("20060102") + ".csv"
	}
	return "radar_" + end.Format("20060102") + ".csv"
}

// generate renders one export: a header, one row per radar and day, and an
// empty trailing column on every line.
func generate(o options) []byte {
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	groups := domain.DefaultMetricGroups()

	var b bytes.Buffer
	header := append([]string{"Date", "Radar Name"}, o.schema.Metrics...)
	b.WriteString(strings.Join(header, string(intake.Delimiter)))
	b.WriteString(";\n")

	var last string
	for _, radar := range o.radars {
		start := o.end.AddDate(0, 0, -(o.days - 1))
		for d := range o.days {
			date := start.AddDate(0, 0, d)
			fields := []string{date.Format(o.schema.DateLayout), radar}
			for _, g := range groups {
				for range g.Metrics {
					fields = append(fields, decimalComma(sample(rng, g.Kind)))
				}
			}
			if o.noise && d == o.days/2 {
				fields[len(fields)-1] = decimalComma(400)
			}
			last = strings.Join(fields, string(intake.Delimiter)) + ";\n"
			b.WriteString(last)
		}
	}

	if o.noise && last != "" {
		b.WriteString(last)
		blank := make([]string, len(header))
		blank[0] = o.end.Format(o.schema.DateLayout)
		blank[1] = o.radars[0] + "X"
		b.WriteString(strings.Join(blank, string(intake.Delimiter)) + ";\n")
		bad := append([]string{"not-a-date", o.radars[0]}, make([]string, len(o.schema.Metrics))...)
		b.WriteString(strings.Join(bad, string(intake.Delimiter)) + ";\n")
	}
	return b.Bytes()
}

func sample(rng *rand.Rand, kind domain.GroupKind) float64 {
	switch kind {
	case domain.KindProbability:
		return 70 + rng.Float64()*30
	case domain.KindError:
		return rng.Float64() * 5
	default:
		return 10 + rng.NormFloat64()*3
	}
}

func decimalComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}

func printStats(t domain.NormalizedTable) {
	r := t.Report
	fmt.Println("\n=== Normalization stats ===")
	fmt.Printf("Family: %s\n", t.Schema)
	fmt.Printf("Rows read: %d\n", r.RowsRead)
	fmt.Printf("Rows kept: %d\n", len(t.Records))
	fmt.Printf("Dropped: %d\n", len(r.Dropped))
	for _, d := range r.Dropped {
		fmt.Printf("  line %d: %v\n", d.Line, d.Err)
	}
	fmt.Printf("Duplicates: %d\n", r.Duplicates)
	fmt.Printf("Out of window: %d\n", r.OutOfWindow)
}
