// Command genimma generates a synthetic marine report archive using the
// actual encoder, so fixtures always match real decoder behavior. Output is
// deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genimma -out data/incoming/IMMA1_synthetic -records 500 -seed 42
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/oceanobs/imma-etl/internal/imma"
)

var countries = []string{"US", "GB", "DE", "NL", "NO", "JP", "FR"}

var callsigns = []string{
	"PERSEUS", "ORION", "CASSIOPEIA", "MERIDIAN", "ALBATROSS",
	"NORDKAP", "VALDIVIA", "GAZELLE", "CHALLENGER", "DISCOVERY",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output archive path")
	records := flag.Int("records", 100, "number of report lines to generate")
	seed := flag.Int64("seed", 42, "random seed")
	year := flag.Int("year", 1985, "observation year")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	schema := imma.DefaultSchema()
	rng := rand.New(rand.NewSource(*seed))

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for i := 0; i < *records; i++ {
		rec := synthRecord(rng, *year)
		line, err := imma.EncodeRecord(schema, rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	log.Printf("wrote %d records to %s", *records, *out)
	return nil
}

// synthRecord builds one plausible ship report: a populated core plus the
// ICOADS and unique-identifier attachments. A few fields are left missing at
// random so downstream handling of null values gets exercised.
func synthRecord(rng *rand.Rand, year int) *imma.Record {
	lat := rng.Float64()*140 - 70
	lon := rng.Float64()*360 - 180

	core := map[string]imma.Value{
		"YR":  imma.IntValue(int64(year)),
		"MO":  imma.IntValue(int64(1 + rng.Intn(12))),
		"DY":  imma.IntValue(int64(1 + rng.Intn(28))),
		"HR":  imma.RealValue(round2(rng.Float64() * 23.99)),
		"LAT": imma.RealValue(round2(lat)),
		"LON": imma.RealValue(round2(lon)),
		"ID":  imma.StringValue(callsigns[rng.Intn(len(callsigns))]),
		"C1":  imma.CodedValue(countries[rng.Intn(len(countries))], ""),
		"D":   imma.IntValue(int64(rng.Intn(360))),
		"W":   imma.RealValue(round1(rng.Float64() * 40)),
		"SLP": imma.RealValue(round1(950 + rng.Float64()*100)),
		"AT":  imma.RealValue(round1(rng.Float64()*50 - 10)),
	}
	if rng.Intn(4) > 0 {
		core["SST"] = imma.RealValue(round1(rng.Float64() * 30))
	}

	rec := &imma.Record{
		Core: imma.Section{ID: "core", Name: "core", Fields: core},
	}

	rec.Attachments = append(rec.Attachments, imma.Section{
		ID:   " 1",
		Name: "attm1",
		Fields: map[string]imma.Value{
			"DCK": imma.IntValue(int64(700 + rng.Intn(300))),
			"SID": imma.IntValue(int64(1 + rng.Intn(200))),
			"PT":  imma.CodedValue("5", ""),
		},
	})

	// Six base 36 digits, no leading zeros.
	uid := int64(60466176 + rng.Int63n(2176782336-60466176))
	rec.Attachments = append(rec.Attachments, imma.Section{
		ID:   "98",
		Name: "attm98",
		Fields: map[string]imma.Value{
			"UID": imma.IntValue(uid),
			"RSA": imma.IntValue(0),
			"IRF": imma.IntValue(1),
		},
	})

	return rec
}

func round1(v float64) float64 {
	return float64(int64(v*10)) / 10
}

func round2(v float64) float64 {
	return float64(int64(v*100)) / 100
}
