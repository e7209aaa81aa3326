package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
	"github.com/JohnDeved/otrkey-cli/internal/client"
	"github.com/JohnDeved/otrkey-cli/internal/config"
	"github.com/JohnDeved/otrkey-cli/internal/index"
	"github.com/JohnDeved/otrkey-cli/internal/tui"
	"github.com/JohnDeved/otrkey-cli/internal/util"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "otrkey",
		Short: "Search the OTR key file catalog from your terminal",
		Long: `otrkey - Find Online TV Recorder .otrkey files across download mirrors.

The published catalog is cached locally; recordings are grouped across
mirrors and encodings and every result links to the mirror's search page.`,
		RunE:              runTUI,
		PersistentPreRunE: loadConfig,
		SilenceUsage:      true,
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Download the catalog and mirror list into the local cache",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Refresh cached file lists from the mirrors' listing pages",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}
	scrapeCmd.Flags().Bool("force", false, "Scrape even when a mirror was fetched recently")
	scrapeCmd.Flags().Int("workers", 0, "Number of mirrors to scrape in parallel (0 = config value)")
	scrapeCmd.Flags().String("mirror", "", "Only scrape the named mirror")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the cached catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().StringSlice("format", nil, "Only include these formats (mp4, avi, ac3, mp3, HQ, HD)")
	searchCmd.Flags().StringSlice("mirror", nil, "Only include these mirrors")
	searchCmd.Flags().Int("limit", 50, "Maximum number of recordings (0 = unlimited)")
	searchCmd.Flags().Bool("json", false, "Output JSON")

	parseCmd := &cobra.Command{
		Use:   "parse <filename>...",
		Short: "Show the metadata encoded in otrkey filenames",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runParse,
	}
	parseCmd.Flags().Bool("json", false, "Output JSON")

	mirrorsCmd := &cobra.Command{
		Use:   "mirrors",
		Short: "List cached mirrors",
		Args:  cobra.NoArgs,
		RunE:  runMirrors,
	}
	mirrorsCmd.Flags().Bool("json", false, "Output JSON")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	statsCmd.Flags().Bool("json", false, "Output JSON")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cached catalog as mirror_name,file_name CSV",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	rootCmd.AddCommand(syncCmd, scrapeCmd, searchCmd, parseCmd, mirrorsCmd, statsCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cfg is loaded before any command runs.
var cfg *config.Config

// loadConfig loads the config and sets up console logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.SetupConsoleLogger(c.LogLevel)
	cfg = c
	return nil
}

func openDB() (*index.DB, error) {
	db, err := index.OpenDB(config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isInteractiveTerminal() {
		return cmd.Help()
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	if stats.Files == 0 {
		fmt.Fprintf(os.Stderr, "Catalog cache is empty, downloading...\n")
		if err := syncCatalog(db); err != nil {
			return err
		}
	}

	idx, err := db.LoadIndex()
	if err != nil {
		return err
	}
	mirrorStats, err := db.MirrorStats()
	if err != nil {
		return err
	}

	// The TUI owns the terminal from here on.
	closer, err := config.SetupFileLogger(config.LogPath(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	return tui.Run(idx, mirrorStats)
}

func runSync(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return syncCatalog(db)
}

func syncCatalog(db *index.DB) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c := client.New(cfg.RequestsPerSecond, cfg.UserAgent)
	res, err := index.Sync(ctx, c, db, cfg.CatalogURL, cfg.MirrorsURL, func(done, total int64) {
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\r  Downloading catalog: %s / %s (%.0f%%)    ",
				util.FormatBytes(done), util.FormatBytes(total), float64(done)/float64(total)*100)
		} else {
			fmt.Fprintf(os.Stderr, "\r  Downloading catalog: %s    ", util.FormatBytes(done))
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Done! Cached %s files from %d mirrors\n", util.FormatCount(res.Rows), res.Mirrors)
	return nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	force, _ := cmd.Flags().GetBool("force")
	workers, _ := cmd.Flags().GetInt("workers")
	only, _ := cmd.Flags().GetString("mirror")
	if workers <= 0 {
		workers = cfg.Workers
	}

	mirrors, err := db.Mirrors()
	if err != nil {
		return err
	}
	if len(mirrors) == 0 {
		return fmt.Errorf("no mirrors cached; run 'otrkey sync' first")
	}
	if only != "" {
		var picked []catalog.Mirror
		for _, m := range mirrors {
			if m.Name == only {
				picked = append(picked, m)
			}
		}
		if len(picked) == 0 {
			return fmt.Errorf("unknown mirror %q", only)
		}
		mirrors = picked
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c := client.New(cfg.RequestsPerSecond, cfg.UserAgent)
	crawler := index.NewCrawler(c, db, time.Duration(cfg.MirrorStaleHours)*time.Hour)
	crawler.SetForce(force)
	crawler.SetWorkers(workers)
	crawler.SetProgressCallback(func(p index.CrawlProgress) {
		fmt.Fprintf(os.Stderr, "\r  Scraping: %-24s  [mirrors: %d  files: %d  cached: %d  skipped: %d]",
			util.TruncatePath(p.CurrentMirror, 24), p.MirrorsDone, p.FilesFound, p.Fallbacks, p.Skipped)
	})

	fmt.Fprintf(os.Stderr, "Scraping %d mirror(s)...\n", len(mirrors))
	if err := crawler.CrawlAll(ctx, mirrors); err != nil {
		fmt.Fprintln(os.Stderr)
		return err
	}

	p := crawler.Progress()
	fmt.Fprintf(os.Stderr, "\n\nDone! Scraped %d mirrors, %s files (%d kept cached entries, %d up to date)\n",
		p.MirrorsDone, util.FormatCount(int(p.FilesFound)), p.Fallbacks, p.Skipped)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	idx, err := db.LoadIndex()
	if err != nil {
		return err
	}

	formats, _ := cmd.Flags().GetStringSlice("format")
	mirrors, _ := cmd.Flags().GetStringSlice("mirror")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonMode, _ := cmd.Flags().GetBool("json")

	res := idx.Search(catalog.Query{Text: query, Formats: formats, Mirrors: mirrors})
	total := len(res.Groups)
	groups := res.Groups
	if limit > 0 && limit < len(groups) {
		groups = groups[:limit]
	}

	if jsonMode {
		out := struct {
			Query   string          `json:"query"`
			Formats []string        `json:"formats,omitempty"`
			Mirrors []string        `json:"mirrors,omitempty"`
			Idle    bool            `json:"idle"`
			Count   int             `json:"count"`
			Results []catalog.Group `json:"results"`
		}{
			Query:   query,
			Formats: formats,
			Mirrors: mirrors,
			Idle:    res.Idle,
			Count:   total,
			Results: groups,
		}
		if out.Results == nil {
			out.Results = []catalog.Group{}
		}
		return writeJSON(os.Stdout, out)
	}

	if res.Idle {
		return fmt.Errorf("empty query")
	}
	if total == 0 {
		fmt.Println("No results found.")
		if idx.Len() == 0 {
			fmt.Println("Tip: Run 'otrkey sync' to download the catalog first.")
		}
		return nil
	}

	for _, g := range groups {
		fmt.Println(g.Heading())
		if len(g.Links) == 0 {
			fmt.Println("    (no mirror link)")
		}
		for _, l := range g.Links {
			fmt.Printf("    %-4s  %-20s  %s\n", l.Format, l.Mirror, l.URL)
		}
	}

	if total > len(groups) {
		fmt.Fprintf(os.Stderr, "\n%d of %d recordings shown.\n", len(groups), total)
	} else {
		fmt.Fprintf(os.Stderr, "\n%d recordings found.\n", total)
	}
	return nil
}

type parsedName struct {
	FileName string `json:"file_name"`
	Valid    bool   `json:"valid"`
	Title    string `json:"title,omitempty"`
	Season   string `json:"season,omitempty"`
	Episode  string `json:"episode,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Duration string `json:"duration,omitempty"`
	Format   string `json:"format,omitempty"`
	French   bool   `json:"french,omitempty"`
	Auto     bool   `json:"auto,omitempty"`
	Cut      bool   `json:"cut,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	out := make([]parsedName, 0, len(args))
	for _, name := range args {
		meta, ok := catalog.ParseFilename(name)
		if !ok {
			out = append(out, parsedName{FileName: name})
			continue
		}
		out = append(out, parsedName{
			FileName: name,
			Valid:    true,
			Title:    meta.Title,
			Season:   meta.Season,
			Episode:  meta.Episode,
			Tag:      meta.EpisodeTag(),
			Date:     meta.Date,
			Time:     meta.Time,
			Channel:  meta.Channel,
			Duration: meta.Duration,
			Format:   meta.Format,
			French:   meta.French,
			Auto:     meta.Auto,
			Cut:      meta.Cut,
		})
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		return writeJSON(os.Stdout, out)
	}

	for _, p := range out {
		fmt.Println(p.FileName)
		if !p.Valid {
			fmt.Println("  (not an otrkey filename)")
			continue
		}
		fmt.Printf("  Title:    %s\n", p.Title)
		if p.Tag != "" {
			fmt.Printf("  Episode:  %s\n", p.Tag)
		}
		fmt.Printf("  Aired:    %s %s\n", p.Date, p.Time)
		fmt.Printf("  Channel:  %s\n", p.Channel)
		fmt.Printf("  Duration: %s min\n", p.Duration)
		fmt.Printf("  Format:   %s\n", p.Format)
	}
	return nil
}

func runMirrors(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.MirrorStats()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		type mirrorOut struct {
			Name        string     `json:"name"`
			SearchURL   string     `json:"search_url,omitempty"`
			Files       int        `json:"files"`
			LastFetched *time.Time `json:"last_fetched,omitempty"`
		}
		out := make([]mirrorOut, 0, len(stats))
		for _, s := range stats {
			m := mirrorOut{Name: s.Name, SearchURL: s.SearchURL, Files: s.Files}
			if !s.LastFetched.IsZero() {
				t := s.LastFetched
				m.LastFetched = &t
			}
			out = append(out, m)
		}
		return writeJSON(os.Stdout, out)
	}

	if len(stats) == 0 {
		fmt.Println("No mirrors cached.")
		fmt.Println("Tip: Run 'otrkey sync' to download the mirror list.")
		return nil
	}
	for _, s := range stats {
		fmt.Printf("%-24s  %10s  %-16s  %s\n", s.Name, util.FormatCount(s.Files), util.FormatAge(s.LastFetched), s.SearchURL)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	idx, err := db.LoadIndex()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		out := struct {
			Mirrors  int    `json:"mirrors"`
			Files    int    `json:"files"`
			Parsed   int    `json:"parsed"`
			Skipped  int    `json:"skipped"`
			Database string `json:"database"`
		}{
			Mirrors:  stats.Mirrors,
			Files:    stats.Files,
			Parsed:   idx.Len(),
			Skipped:  idx.Skipped(),
			Database: config.DBPath(),
		}
		return writeJSON(os.Stdout, out)
	}

	fmt.Printf("Cache Statistics:\n")
	fmt.Printf("  Mirrors:   %s\n", util.FormatCount(stats.Mirrors))
	fmt.Printf("  Files:     %s\n", util.FormatCount(stats.Files))
	fmt.Printf("  Parsed:    %s\n", util.FormatCount(idx.Len()))
	fmt.Printf("  Unparsed:  %s\n", util.FormatCount(idx.Skipped()))
	fmt.Printf("  Database:  %s\n", config.DBPath())

	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Rows()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if err := catalog.WriteRows(w, rows); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s rows to %s\n", util.FormatCount(len(rows)), output)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}
