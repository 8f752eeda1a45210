package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/cardsift-mcp/internal/extractor"
	"github.com/dshills/cardsift-mcp/internal/scanner"
)

// fileResult is one scanned file's contribution to the JSON report
type fileResult struct {
	Path  string `json:"path"`
	Cards int    `json:"cards"`
}

// scanReport is the JSON artifact written with -json
type scanReport struct {
	GeneratedAt  string       `json:"generated_at"`
	Path         string       `json:"path"`
	FilesScanned int          `json:"files_scanned"`
	FilesSkipped int          `json:"files_skipped"`
	FilesFailed  int          `json:"files_failed"`
	CardsFound   int          `json:"cards_found"`
	TotalHits    int          `json:"total_hits"`
	BytesScanned int64        `json:"bytes_scanned"`
	DurationMS   int64        `json:"duration_ms"`
	Files        []fileResult `json:"files,omitempty"`
	Records      []string     `json:"records,omitempty"`
}

func main() {
	noCVV := flag.Bool("no-cvv", false, "also match records with an empty CVV field")
	trailing := flag.Bool("trailing", false, "also match records with trailing info after the year")
	hidden := flag.Bool("hidden", false, "scan hidden files and directories")
	chunkSize := flag.Int("chunk", 0, "characters per extraction window (default 10000)")
	maxDisplay := flag.Int("max-display", extractor.DefaultMaxDisplayResults, "maximum records printed to stdout")
	extList := flag.String("ext", strings.Join(scanner.DefaultExtensions, ","), "comma-separated file extensions to scan")
	maxFileMB := flag.Int64("max-file-mb", 64, "skip files larger than this many megabytes")
	exportOut := flag.Bool("export", false, "write the full export buffer to a timestamped .txt file")
	jsonOut := flag.Bool("json", false, "write the report to a timestamped .json file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scanfile [flags] <file-or-directory>\n\n")
		fmt.Fprintf(os.Stderr, "Scan a file or directory tree for card-format records.\n")
		fmt.Fprintf(os.Stderr, "Unlike the MCP server, output is raw; handle artifacts accordingly.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	root, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to resolve path: %v", err)
	}

	log.SetOutput(os.Stderr)

	extensions := splitExtensions(*extList)
	maxBytes := *maxFileMB << 20

	startTime := time.Now()

	files, skipped, err := discoverFiles(root, extensions, *hidden, maxBytes)
	if err != nil {
		log.Fatalf("Failed to discover files: %v", err)
	}

	ext := extractor.New()
	opts := extractor.Options{
		ChunkSize:           *chunkSize,
		IncludeNoCVV:        *noCVV,
		IncludeTrailingInfo: *trailing,
	}

	var (
		scanned    int
		failed     int
		totalHits  int
		totalBytes int64
		records    []string
		perFile    []fileResult
		errMsgs    []string
	)

	// One seen set across all files, so a card leaked into many files
	// appears once in the export
	seen := make(map[string]bool)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			failed++
			errMsgs = append(errMsgs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		scanned++
		totalBytes += int64(len(data))

		text := strings.ToValidUTF8(string(data), "")
		fileCards := 0
		for finding := range ext.Extract(text, opts) {
			totalHits++
			key := finding.Record.CanonicalKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			records = append(records, finding.Value)
			fileCards++
		}

		if fileCards > 0 {
			perFile = append(perFile, fileResult{Path: path, Cards: fileCards})
		}
	}

	duration := time.Since(startTime)

	rate := 0.0
	if secs := duration.Seconds(); secs > 0 {
		rate = float64(totalBytes) / (1 << 20) / secs
	}

	// Print report summary
	fmt.Printf("Scan Report for %s\n", root)
	fmt.Printf("  Files Scanned: %d\n", scanned)
	fmt.Printf("  Files Skipped: %d\n", skipped)
	fmt.Printf("  Files Failed: %d\n", failed)
	fmt.Printf("  Cards Found: %d\n", len(records))
	fmt.Printf("  Total Hits: %d\n", totalHits)
	fmt.Printf("  Duration: %v\n", duration)
	fmt.Printf("  Scan Rate: %.2f MB/s\n", rate)

	if len(errMsgs) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, msg := range errMsgs {
			fmt.Printf("  - %s\n", msg)
		}
	}

	if len(records) > 0 {
		shown := len(records)
		if shown > *maxDisplay {
			shown = *maxDisplay
		}
		fmt.Printf("\nRecords (showing %d of %d):\n", shown, len(records))
		for _, r := range records[:shown] {
			fmt.Printf("  %s\n", r)
		}
		if shown < len(records) {
			fmt.Printf("  ... %d more, use -export to save all\n", len(records)-shown)
		}
	}

	stamp := startTime.Format("20060102_150405")

	if *exportOut {
		export := ""
		if len(records) > 0 {
			export = strings.Join(records, "\n") + "\n"
		}
		name := fmt.Sprintf("cardsift_export_%s.txt", stamp)
		if err := os.WriteFile(name, []byte(export), 0600); err != nil {
			log.Fatalf("Failed to write export file: %v", err)
		}
		fmt.Printf("\nExport written to %s\n", name)
	}

	if *jsonOut {
		report := scanReport{
			GeneratedAt:  startTime.Format(time.RFC3339),
			Path:         root,
			FilesScanned: scanned,
			FilesSkipped: skipped,
			FilesFailed:  failed,
			CardsFound:   len(records),
			TotalHits:    totalHits,
			BytesScanned: totalBytes,
			DurationMS:   duration.Milliseconds(),
			Files:        perFile,
			Records:      records,
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		name := fmt.Sprintf("cardsift_results_%s.json", stamp)
		if err := os.WriteFile(name, data, 0600); err != nil {
			log.Fatalf("Failed to write JSON report: %v", err)
		}
		fmt.Printf("JSON report written to %s\n", name)
	}
}

// discoverFiles lists the files to scan. An explicit file argument is
// scanned regardless of its extension; directories are walked with the
// extension allow-list.
func discoverFiles(root string, extensions []string, includeHidden bool, maxBytes int64) ([]string, int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, 0, err
	}

	if !info.IsDir() {
		if info.Size() > maxBytes {
			return nil, 1, nil
		}
		return []string{root}, 0, nil
	}

	var files []string
	skipped := 0

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}

		name := info.Name()

		if info.IsDir() {
			if !includeHidden && strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if !includeHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if !matchesExtension(name, extensions) {
			return nil
		}
		if info.Size() > maxBytes {
			skipped++
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, skipped, err
}

// matchesExtension checks a file name against the allow-list, case-insensitively
func matchesExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, allowed := range extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// splitExtensions parses the -ext flag value
func splitExtensions(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, ".") {
			p = "." + p
		}
		out = append(out, p)
	}
	return out
}
