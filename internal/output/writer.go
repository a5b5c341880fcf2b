package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/August26/proxyline/internal/model"
)

// record is the serialised form of a proxy.
type record struct {
	Proxy   string `json:"proxy"`
	Scheme  string `json:"scheme"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	User    string `json:"user,omitempty"`
	Country string `json:"country,omitempty"`
}

func toRecord(p model.Proxy) record {
	r := record{
		Proxy:  p.String(),
		Scheme: p.Scheme().String(),
		Host:   p.Host(),
		Port:   p.Port(),
	}
	if c, ok := p.Credentials(); ok {
		r.User = c.User
	}
	if cc, ok := p.Country(); ok {
		r.Country = cc
	}
	return r
}

// PrintResultsTable prints a human-readable table of proxies.
func PrintResultsTable(w io.Writer, proxies []model.Proxy) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	// header
	fmt.Fprintln(tw, "IP:PORT\tSCHEME\tCOUNTRY\tAUTH")

	for _, p := range proxies {
		country, _ := p.Country()
		_, auth := p.Credentials()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.IPPort(),
			p.Scheme(),
			dashIfEmpty(country),
			boolToYN(auth),
		)
	}

	tw.Flush()
}

// PrintSummary prints the aggregated batch stats.
func PrintSummary(w io.Writer, stats model.BatchStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Checked proxies:   %d\n", stats.TotalProxies)
	fmt.Fprintf(w, "  Unique hosts:      %d\n", stats.UniqueHosts)
	fmt.Fprintf(w, "  Alive proxies:     %d\n", stats.AliveProxies)
	fmt.Fprintf(w, "  Success rate:      %.1f %%\n", stats.SuccessRatePct)
	fmt.Fprintf(w, "  Batch time:        %.2f s\n", float64(stats.TotalProcessingTimeMs)/1000.0)
	printCounts(w, "  Alive by scheme:", stats.AliveByScheme)
	printCounts(w, "  Alive by country:", stats.AliveByCountry)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-8s %d\n", k, counts[k])
	}
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func boolToYN(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// WriteFile writes proxies + summary stats to a file in json, csv or txt
// format.
func WriteFile(path string, format string, proxies []model.Proxy, stats model.BatchStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Write(f, format, proxies, stats); err != nil {
		return err
	}
	return f.Close()
}

// Write is WriteFile over w.
func Write(w io.Writer, format string, proxies []model.Proxy, stats model.BatchStats) error {
	switch format {
	case "json":
		return writeJSON(w, proxies, stats)
	case "csv":
		return writeCSV(w, proxies)
	case "txt":
		return writeTXT(w, proxies)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// writeJSON writes an object with "results" and "summary".
func writeJSON(w io.Writer, proxies []model.Proxy, stats model.BatchStats) error {
	results := make([]record, 0, len(proxies))
	for _, p := range proxies {
		results = append(results, toRecord(p))
	}
	payload := struct {
		Results []record         `json:"results"`
		Summary model.BatchStats `json:"summary"`
	}{
		Results: results,
		Summary: stats,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// writeCSV writes one row per proxy; the summary is not included.
func writeCSV(w io.Writer, proxies []model.Proxy) error {
	cw := csv.NewWriter(w)

	header := []string{"proxy", "scheme", "host", "port", "user", "country"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range proxies {
		r := toRecord(p)
		row := []string{r.Proxy, r.Scheme, r.Host, strconv.Itoa(r.Port), r.User, r.Country}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeTXT writes canonical proxy strings, one per line. Reading the file
// back yields the same proxies unless a password ends in whitespace, which
// line trimming drops.
func writeTXT(w io.Writer, proxies []model.Proxy) error {
	for _, p := range proxies {
		if _, err := fmt.Fprintln(w, p.String()); err != nil {
			return err
		}
	}
	return nil
}
