package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseMakerList reads one record per line from r, per spec.md §4.6 and
// models.py's ModRecord.from_tsv_line: a single tab-separated field is a
// Separator; more fields are url, instructions, patch_suffix, display_name,
// info_url, archive_filename, expected_hash, with trailing fields optional.
//
// order resolves each Downloadable's Enabled flag: enabled iff the name is
// present in order.Enabled, or order is nil (order list not being applied -
// a full install enables everything). Lines whose URL cannot be classified
// produce a warning and are skipped rather than aborting the parse.
func ParseMakerList(r io.Reader, order *OrderList) ([]Record, []string, error) {
	var records []Record
	var warnings []string

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) == 1 {
			records = append(records, Separator{Name: parts[0]})
			continue
		}

		url := parts[0]
		kind, err := classifyKind(url)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("maker-list line %d: %v, skipping", lineNo, err))
			continue
		}

		rec := Downloadable{
			URL:             url,
			Instructions:    field(parts, 1, "0"),
			PatchSuffix:     field(parts, 2, ""),
			DisplayName:     field(parts, 3, "Unknown"),
			InfoURL:         field(parts, 4, ""),
			ArchiveFilename: field(parts, 5, ""),
			ExpectedHash:    field(parts, 6, ""),
			Kind:            kind,
		}

		if len(parts) > 7 {
			warnings = append(warnings, fmt.Sprintf(
				"maker-list line %d: ignoring %d unrecognised trailing field(s) for %q",
				lineNo, len(parts)-7, rec.DisplayName))
		}

		rec.Enabled = order == nil || order.Enabled[rec.DisplayName]
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, warnings, err
	}
	return records, warnings, nil
}

func field(parts []string, index int, fallback string) string {
	if index < len(parts) {
		return parts[index]
	}
	return fallback
}

// EmitMakerList writes records back out in the same tab-separated grammar
// ParseMakerList reads, satisfying spec.md §8's parse-emit-parse round-trip
// law: every Downloadable's seven fields are always written, so a
// subsequent parse reproduces equal records regardless of which trailing
// fields were originally omitted.
func EmitMakerList(w io.Writer, records []Record) error {
	for _, r := range records {
		var line string
		switch rec := r.(type) {
		case Separator:
			line = rec.Name
		case Downloadable:
			line = strings.Join([]string{
				rec.URL,
				rec.Instructions,
				rec.PatchSuffix,
				rec.DisplayName,
				rec.InfoURL,
				rec.ArchiveFilename,
				rec.ExpectedHash,
			}, "\t")
		default:
			return fmt.Errorf("manifest: unknown record type %T", r)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
