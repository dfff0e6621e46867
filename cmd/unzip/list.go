package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/meigma/unzip"
)

const unknownTime = "                   "

// printComment writes the archive comment followed by a newline, or nothing
// when the archive has none.
func printComment(w io.Writer, src unzip.Source) error {
	info, err := unzip.Inspect(src)
	if err != nil {
		return err
	}
	if info.Comment() == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, info.Comment())
	return err
}

// printListing writes one line per entry, in central directory order,
// between a header and a totals line.
func printListing(w io.Writer, src unzip.Source, verbose bool) error {
	info, err := unzip.Inspect(src)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if verbose {
		writeVerbose(bw, info)
	} else {
		writeShort(bw, info)
	}
	return bw.Flush()
}

func writeShort(w io.Writer, info *unzip.InspectResult) {
	rule := strings.Repeat("-", 10) + "  " + strings.Repeat("-", 19) + "  " + strings.Repeat("-", 40)

	fmt.Fprintf(w, "%10s  %19s  %s\n", "Size", "Modified", "Name")
	fmt.Fprintln(w, rule)
	for _, e := range info.Entries() {
		fmt.Fprintf(w, "%10s  %s  %s\n", humanize.IBytes(e.Size), modified(e), e.Name)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%10s  %19s  %d files\n", humanize.IBytes(info.TotalUncompressedSize()), "", len(info.Entries()))
}

func writeVerbose(w io.Writer, info *unzip.InspectResult) {
	rule := strings.Repeat("-", 80)

	fmt.Fprintf(w, "%8s  %8s  %5s  %19s  %8s  %s\n", "Length", "Size", "Ratio", "Date & Time", "CRC-32", "Name")
	fmt.Fprintln(w, rule)
	for _, e := range info.Entries() {
		fmt.Fprintf(w, "%8d  %8d  %4d%%  %s  %08x  %s\n",
			e.Size, e.CompressedSize, unzip.Ratio(e.Size, e.CompressedSize), modified(e), e.CRC32, e.Name)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%8d  %8d  %4d%%  %19s  %8s  %d files\n",
		info.TotalUncompressedSize(), info.TotalCompressedSize(), info.CompressionRatio(), "", "", len(info.Entries()))
}

func modified(e unzip.Entry) string {
	if !e.HasModified {
		return unknownTime
	}
	return e.Modified.String()
}
