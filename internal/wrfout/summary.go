package wrfout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// InfoPath returns where the information file of the WRF output at path is
// written: <parent of parent>/information/<stem>_info.txt.
func InfoPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parent := filepath.Dir(filepath.Dir(path))
	return filepath.Join(parent, "information", stem+"_info.txt")
}

// WriteInfo writes the dataset information file next to the WRF output and
// returns its path.
func WriteInfo(d *Dataset) (string, error) {
	path := InfoPath(d.Path())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteSummary(f, d); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}

// WriteSummary writes a human readable description of d to w: global
// attributes, stored variables, computed variables and the time axis.
func WriteSummary(w io.Writer, d *Dataset) error {
	var sb strings.Builder
	sb.WriteString("################### Overview ###################\n")
	fmt.Fprintf(&sb, "file: %s\n", d.Path())
	if st, err := os.Stat(d.Path()); err == nil {
		fmt.Fprintf(&sb, "size: %s\n", humanize.Bytes(uint64(st.Size())))
	}
	fmt.Fprintf(&sb, "frames: %s\n", humanize.Comma(int64(d.NumFrames())))
	if ts := d.Times(); len(ts) > 0 {
		fmt.Fprintf(&sb, "first: %s\nlast: %s\n", ts[0].Format(time.RFC3339), ts[len(ts)-1].Format(time.RFC3339))
	}

	sb.WriteString("\n<< global attributes >>\n")
	attrs := d.GlobalAttributes()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "    %s: %s\n", k, attrs[k])
	}

	sb.WriteString("\n<< variables >>\n")
	for _, name := range d.Variables() {
		info, err := d.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "    %s(%s) [%s] %s\n", info.Name, strings.Join(info.Dimensions, ", "), info.Units, info.Description)
	}

	sb.WriteString("\n<< diagnostics >>\n")
	for _, name := range Diagnostics() {
		fmt.Fprintf(&sb, "    %s\n", name)
	}

	sb.WriteString("\n<< times >>\n")
	for i, t := range d.Times() {
		fmt.Fprintf(&sb, "    %4d %s\n", i, t.Format(wrfTimeLayout))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
